package services

import "context"

type actorKey struct{}

// WithActor tags ctx with the operator on whose behalf audit entries are
// written.
func WithActor(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, actorKey{}, username)
}

// ActorFrom returns the operator stored by WithActor, or "".
func ActorFrom(ctx context.Context) string {
	v, _ := ctx.Value(actorKey{}).(string)
	return v
}

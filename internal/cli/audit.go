package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"
)

// Audit prints the audit trail newest first.
func (a *App) Audit(ctx context.Context) error {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIME\tACTION\tSUBJECT\tACTOR")

	n := 0
	for e, err := range a.session.AuditTrail(ctx) {
		if err != nil {
			tw.Flush()
			return err
		}
		actor := e.Actor
		if actor == "" {
			actor = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", e.ID, e.Timestamp.UTC().Format(time.RFC3339), e.Action, e.SubjectID, actor)
		n++
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d entr%s\n", n, plural(n, "y", "ies"))
	return nil
}

// Verify checks the audit hash chain.
func (a *App) Verify(ctx context.Context) error {
	if err := a.session.VerifyAudit(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Audit log verified")
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

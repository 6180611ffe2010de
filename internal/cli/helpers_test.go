package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/nidkeeper/internal/config"
	"github.com/dmitrijs2005/nidkeeper/internal/logging"
	"github.com/dmitrijs2005/nidkeeper/internal/metrics"
	"github.com/dmitrijs2005/nidkeeper/internal/models"
	"github.com/dmitrijs2005/nidkeeper/internal/repositories/repomanager"
	"github.com/dmitrijs2005/nidkeeper/internal/services"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	*App
	ctx   context.Context
	out   *bytes.Buffer
	creds *services.CredentialService
	audit *services.AuditService
}

func newTestApp(t *testing.T, cfg *config.Config, lines ...string) *testApp {
	t.Helper()
	ctx := context.Background()

	if cfg == nil {
		cfg = &config.Config{}
		cfg.LoadDefaults()
	}
	cfg.KDFIterations = 1000

	db, rm, err := repomanager.Open(ctx, repomanager.DriverSQLite, ":memory:", time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	met := metrics.New()
	log := logging.Discard()
	as := services.NewAuditService(db, rm, cfg, log, met)
	cs, err := services.NewCredentialService(db, rm, cfg, as, log, met)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	app := NewApp(cfg, services.NewSession(rm, cs, as, log), services.NewBootstrap(cs, log), log, in, out)

	return &testApp{App: app, ctx: ctx, out: out, creds: cs, audit: as}
}

func (a *testApp) createUser(t *testing.T, username, password string, role models.Role) {
	t.Helper()
	_, err := a.creds.Create(a.ctx, username, []byte(password), role, false)
	require.NoError(t, err)
}

// actions returns the audit trail newest first.
func (a *testApp) actions(t *testing.T) []models.Action {
	t.Helper()
	var got []models.Action
	for e, err := range a.audit.ListDescending(a.ctx) {
		require.NoError(t, err)
		got = append(got, e.Action)
	}
	return got
}

// stubPasswords answers password prompts in order and fails with io.EOF
// once the list is exhausted.
func stubPasswords(t *testing.T, passwords ...string) {
	t.Helper()
	orig := getPassword
	queue := passwords
	getPassword = func(string, io.Writer) ([]byte, error) {
		if len(queue) == 0 {
			return nil, io.EOF
		}
		p := queue[0]
		queue = queue[1:]
		return []byte(p), nil
	}
	t.Cleanup(func() { getPassword = orig })
}

func silenceREPL(t *testing.T) {
	t.Helper()
	orig := printlnFn
	printlnFn = func(...any) (int, error) { return 0, nil }
	t.Cleanup(func() { printlnFn = orig })
}

func stubTerminal(t *testing.T, tty bool) {
	t.Helper()
	orig := isTerminal
	isTerminal = func() bool { return tty }
	t.Cleanup(func() { isTerminal = orig })
}

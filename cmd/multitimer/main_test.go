package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alexanderramin/multitimer/internal/cli"
	"github.com/alexanderramin/multitimer/internal/clock"
	"github.com/alexanderramin/multitimer/internal/config"
	"github.com/alexanderramin/multitimer/internal/domain"
	"github.com/alexanderramin/multitimer/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newProcess wires an App the way main does for mode, against a shared
// database file and clock.
func newProcess(t *testing.T, mode cli.Mode, dbPath string, clk clock.Clock) *cli.App {
	t.Helper()
	cfg := config.Default()
	cfg.DBPath = dbPath
	cfg.LogLevel = "error"
	cfg.SoundCommand = ""
	cfg.DesktopNotifications = false
	cfg.FlashTerminal = false

	app := &cli.App{Clock: clk, Config: cfg}
	require.NoError(t, setup(context.Background(), app, mode))
	t.Cleanup(app.Close)
	return app
}

func TestSetup_OneShotHasNoAlertRuntime(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "timers.db")
	app := newProcess(t, cli.ModeOneShot, dbPath, testutil.NewFakeClock())

	assert.NotNil(t, app.Timers)
	assert.NotNil(t, app.Router)
	assert.NotNil(t, app.Reconciler)
	assert.Nil(t, app.AwaitAlerts)
	assert.Nil(t, app.Serve)
}

func TestSetup_DaemonServes(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "timers.db")
	app := newProcess(t, cli.ModeDaemon, dbPath, testutil.NewFakeClock())

	assert.NotNil(t, app.Serve)
	assert.NotNil(t, app.AwaitAlerts)
}

func TestRearmWaitEndsWhenAnotherProcessSilences(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "timers.db")
	clk := testutil.NewFakeClock()
	boot := newProcess(t, cli.ModeDaemon, dbPath, clk)
	verb := newProcess(t, cli.ModeOneShot, dbPath, clk)
	ctx := context.Background()

	tm, err := verb.Timers.Add(ctx, "Tea", time.Second, true)
	require.NoError(t, err)
	clk.Advance(2 * time.Second)

	res, err := boot.Reconciler.Rearm(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{tm.ID}, res.Finished)

	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		boot.AwaitAlerts(waitCtx)
		close(done)
	}()

	require.NoError(t, verb.Router.Apply(ctx, tm.ID, domain.ActionSilence, domain.SourceApp))

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("alert kept sounding after another process silenced it")
	}
	assert.NoError(t, waitCtx.Err())

	got, err := verb.Timers.Get(ctx, tm.ID)
	require.NoError(t, err)
	assert.True(t, got.Silenced)
}

package daemon_test

import (
	"context"
	"testing"
	"time"

	"rollcall/internal/daemon"
	"rollcall/internal/logging"
	"rollcall/internal/testsupport"
)

type blockingSession struct{}

func (blockingSession) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func blockingFactory(context.Context) (daemon.SessionRunner, error) {
	return blockingSession{}, nil
}

func TestDaemonLockExcludesSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	first, err := daemon.New(cfg, st, logger, blockingFactory)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Stop()

	second, err := daemon.New(cfg, st, logger, blockingFactory)
	if err != nil {
		t.Fatalf("New second: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected second instance to fail on the lock")
	}
}

func TestDaemonStopReleasesLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	first, err := daemon.New(cfg, st, logger, blockingFactory)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !first.Running() {
		t.Fatal("daemon should report running")
	}
	first.Stop()
	if first.Running() {
		t.Fatal("daemon should report stopped")
	}

	second, err := daemon.New(cfg, st, logger, blockingFactory)
	if err != nil {
		t.Fatalf("New second: %v", err)
	}
	if err := second.Start(context.Background()); err != nil {
		t.Fatalf("expected lock to be free after Stop, got %v", err)
	}
	second.Stop()
}

func TestDaemonStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	d, err := daemon.New(cfg, st, logging.NewNop(), blockingFactory)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	status := d.Status()
	if status.Running {
		t.Fatal("fresh daemon should not be running")
	}
	if status.DatabasePath != cfg.DatabasePath() || status.LockFilePath != cfg.LockPath() {
		t.Fatalf("unexpected status paths %+v", status)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !d.Status().Running {
		t.Fatal("started daemon should report running")
	}
	cancel()
	// Stop after external cancellation must still release cleanly.
	done := make(chan struct{})
	go func() { d.Stop(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after cancellation")
	}
}

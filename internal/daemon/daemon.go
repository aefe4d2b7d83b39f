package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"rollcall/internal/config"
	"rollcall/internal/logging"
	"rollcall/internal/store"
)

// retryDelay paces session restarts after a camera or pipeline failure.
const retryDelay = 5 * time.Second

// SessionRunner runs one capture session until the context is cancelled or
// the video source ends.
type SessionRunner interface {
	Run(ctx context.Context) error
}

// SessionFactory builds a fresh session per attempt, so a camera that went
// away and came back gets a clean handle.
type SessionFactory func(ctx context.Context) (SessionRunner, error)

// Daemon supervises the capture pipeline and enforces single-instance
// execution through a file lock.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *store.Store
	factory SessionFactory

	lockPath string
	lock     *flock.Flock
	monitor  *cameraMonitor
	wake     chan struct{}

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	DatabasePath string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger, factory SessionFactory) (*Daemon, error) {
	if cfg == nil || st == nil || logger == nil || factory == nil {
		return nil, errors.New("daemon requires config, store, logger, and session factory")
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		factory:  factory,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		wake:     make(chan struct{}, 1),
	}
	d.monitor = newCameraMonitor(cfg, logger, d.nudge)
	return d, nil
}

// Start acquires the daemon lock and launches the capture supervisor.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another rollcall daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.monitor.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start camera monitor: %w", err)
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.supervise(runCtx)
	}()

	d.running.Store(true)
	d.logger.Info("rollcall daemon started",
		logging.String("lock", d.lockPath),
		logging.String("database", d.cfg.DatabasePath()))
	return nil
}

// Stop halts the capture supervisor and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.monitor.Stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("rollcall daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether the daemon is active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		DatabasePath: d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
	}
}

// nudge wakes the supervisor out of its retry wait, used when the camera
// monitor sees the device come back.
func (d *Daemon) nudge() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// supervise runs capture sessions back to back, backing off after failures
// until cancellation.
func (d *Daemon) supervise(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		session, err := d.factory(ctx)
		if err != nil {
			d.logger.Warn("capture session unavailable",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the camera device and model paths"))
		} else {
			err = session.Run(ctx)
			switch {
			case err == nil:
				d.logger.Info("capture session ended")
			case errors.Is(err, context.Canceled):
				return
			default:
				d.logger.Warn("capture session failed", logging.Error(err))
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-d.wake:
		case <-time.After(retryDelay):
		}
	}
}

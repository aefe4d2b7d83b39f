package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"rollcall/internal/capture"
	"rollcall/internal/config"
	"rollcall/internal/daemon"
	"rollcall/internal/ipc"
	"rollcall/internal/logging"
	"rollcall/internal/notifications"
	"rollcall/internal/pipeline"
	"rollcall/internal/preflight"
	"rollcall/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open store", logging.Error(err))
		return
	}
	defer st.Close()

	for _, check := range preflight.Failed(preflight.RunAll(ctx, cfg)) {
		logger.Warn("preflight check failed",
			logging.String("check", check.Name),
			logging.String("detail", check.Detail))
	}

	notifier := notifications.NewService(cfg)
	factory := capture.NewSessionFactory(cfg, st, notifier, logger, func(event pipeline.Event) {
		logger.Debug("pipeline event",
			logging.String("event", string(event.Type)),
			logging.String(logging.FieldPersonID, event.PersonID),
			logging.String(logging.FieldTrackID, event.TrackID))
	})

	d, err := daemon.New(cfg, st, logger, factory)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(ctx, cfg.SocketPath(), d, st, notifier, logger)
	if err != nil {
		logger.Error("start IPC server", logging.Error(err))
		return
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("rollcalld shutting down", logging.String("database", cfg.DatabasePath()))
}

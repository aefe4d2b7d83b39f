// Package capture assembles live recognition sessions from configuration:
// MJPEG camera, dlib embedder, embedding gallery, tracker, and pipeline. It
// is the composition root shared by the daemon and the foreground run
// command.
package capture

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"rollcall/internal/config"
	"rollcall/internal/daemon"
	"rollcall/internal/logging"
	"rollcall/internal/notifications"
	"rollcall/internal/pipeline"
	"rollcall/internal/recognizer"
	"rollcall/internal/services"
	"rollcall/internal/store"
	"rollcall/internal/tracker"
	"rollcall/internal/vision"
)

// EventHandler observes pipeline events, typically for display.
type EventHandler func(pipeline.Event)

// NewSessionFactory returns a factory the daemon can call per attempt. Each
// session opens a fresh camera handle and loads the dlib models, so a
// replugged camera or updated model directory takes effect on restart.
func NewSessionFactory(cfg *config.Config, st *store.Store, notifier notifications.Service, logger *slog.Logger, onEvent EventHandler) daemon.SessionFactory {
	return func(ctx context.Context) (daemon.SessionRunner, error) {
		return newSession(ctx, cfg, st, notifier, logger, onEvent)
	}
}

type session struct {
	inner    *pipeline.Session
	camera   *vision.MJPEGCamera
	embedder *recognizer.DlibEmbedder
	onEvent  EventHandler
}

func newSession(ctx context.Context, cfg *config.Config, st *store.Store, notifier notifications.Service, logger *slog.Logger, onEvent EventHandler) (*session, error) {
	modelDir := strings.TrimSpace(cfg.Recognition.ModelDir)
	if modelDir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "capture", "setup",
			"recognition.model_dir is not configured", nil)
	}

	embedder, err := recognizer.NewDlibEmbedder(modelDir, cfg.Camera.MinFaceSize)
	if err != nil {
		return nil, err
	}

	camera, err := vision.OpenMJPEG(ctx, cfg.Camera.StreamURL)
	if err != nil {
		embedder.Close()
		return nil, services.Wrap(services.ErrConfiguration, "capture", "setup", cfg.Camera.StreamURL, err)
	}

	gallery := recognizer.NewGallery(st, embedder, cfg.Recognition.GalleryNeighbors)
	tracks := tracker.New(tracker.FromConfig(cfg), logging.NewComponentLogger(logger, "tracker"), time.Now)
	inner := pipeline.New(camera, embedder, gallery, st, tracks, notifier,
		logging.NewComponentLogger(logger, "pipeline"), time.Now, pipeline.OptionsFromConfig(cfg))

	return &session{inner: inner, camera: camera, embedder: embedder, onEvent: onEvent}, nil
}

// Run drives the session to completion and releases the camera and models.
func (s *session) Run(ctx context.Context) error {
	defer s.camera.Close()
	defer s.embedder.Close()

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for event := range s.inner.Events() {
			if s.onEvent != nil {
				s.onEvent(event)
			}
		}
	}()

	err := s.inner.Run(ctx)
	<-drained
	return err
}

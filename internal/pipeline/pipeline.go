package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"rollcall/internal/config"
	"rollcall/internal/logging"
	"rollcall/internal/recognizer"
	"rollcall/internal/services"
	"rollcall/internal/store"
	"rollcall/internal/tracker"
	"rollcall/internal/vision"
)

const eventBufferSize = 64

// Notifier is the slice of the notification service the pipeline uses.
type Notifier interface {
	NotifyRecognition(ctx context.Context, person *store.Person, at time.Time) error
}

// Options tunes a capture session.
type Options struct {
	// Workers bounds concurrent recognizer calls across all tracks.
	Workers int
	// Timeout is the per-call recognizer deadline.
	Timeout time.Duration
	// Interval is the minimum gap between recognizer calls for one track.
	Interval time.Duration
	// Cooldown gates ledger writes per person.
	Cooldown time.Duration
}

// OptionsFromConfig derives session options from the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Workers:  cfg.Recognition.Workers,
		Timeout:  time.Duration(cfg.Recognition.TimeoutSeconds) * time.Second,
		Interval: time.Duration(cfg.Recognition.IntervalMillis) * time.Millisecond,
		Cooldown: time.Duration(cfg.Attendance.CooldownSeconds) * time.Second,
	}
}

// Session runs the capture loop: frames in, debounced ledger writes and
// presentation events out. One goroutine owns the tracker and all track
// bookkeeping; recognizer calls fan out to a bounded worker pool and their
// results flow back through a channel, so no track state is ever touched
// concurrently.
type Session struct {
	camera   vision.Camera
	detector vision.FaceDetector
	rec      recognizer.Recognizer
	store    *store.Store
	tracks   *tracker.Tracker
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
	opts     Options

	events chan Event
}

// New assembles a session. Notifier and logger may be nil; clock defaults to
// time.Now.
func New(camera vision.Camera, detector vision.FaceDetector, rec recognizer.Recognizer, st *store.Store, tracks *tracker.Tracker, notifier Notifier, logger *slog.Logger, now func() time.Time, opts Options) *Session {
	if logger == nil {
		logger = logging.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Session{
		camera:   camera,
		detector: detector,
		rec:      rec,
		store:    st,
		tracks:   tracks,
		notifier: notifier,
		logger:   logger,
		now:      now,
		opts:     opts,
		events:   make(chan Event, eventBufferSize),
	}
}

// Events returns the presentation event stream. The channel closes when Run
// returns.
func (s *Session) Events() <-chan Event {
	return s.events
}

// outcome is one recognizer verdict flowing back to the session goroutine.
type outcome struct {
	trackID string
	seq     uint64
	obs     tracker.Observation
	err     error
}

// trackIO is the session's per-track recognizer bookkeeping.
type trackIO struct {
	inFlight   bool
	lastIssued uint64
	issuedAt   time.Time
}

// Run drives the session until the context is cancelled or the camera
// reports end of stream. On cancellation all outstanding recognizer calls
// are cancelled and discarded without ledger writes; on a clean end of
// stream pending results are drained and applied first.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.events)
	defer s.tracks.Reset()

	callCtx, cancelCalls := context.WithCancel(ctx)
	defer cancelCalls()

	results := make(chan outcome, s.opts.Workers)
	slots := make(chan struct{}, s.opts.Workers)
	var calls sync.WaitGroup
	pending := make(map[string]*trackIO)
	prevState := make(map[string]tracker.State)

	drain := func(apply bool) {
		go func() {
			calls.Wait()
			close(results)
		}()
		for out := range results {
			if apply {
				s.applyOutcome(ctx, pending, prevState, out)
			}
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			cancelCalls()
			drain(false)
			return err
		}

		frame, err := s.camera.NextFrame(ctx)
		if errors.Is(err, vision.ErrEndOfStream) {
			drain(true)
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				cancelCalls()
				drain(false)
				return ctx.Err()
			}
			return services.Wrap(services.ErrRecognizer, "pipeline", "capture", "camera read", err)
		}

		matched := s.tracks.Match(s.detector.Detect(frame))
		for _, id := range matched.Lost {
			delete(pending, id)
			delete(prevState, id)
			s.emit(Event{Type: EventTrackLost, At: s.now(), TrackID: id})
		}

		// Apply whatever verdicts have landed since the last frame.
	applied:
		for {
			select {
			case out := <-results:
				s.applyOutcome(ctx, pending, prevState, out)
			default:
				break applied
			}
		}

		for _, track := range matched.Matched {
			state := pending[track.ID()]
			if state == nil {
				state = &trackIO{}
				pending[track.ID()] = state
			}
			if state.inFlight {
				continue
			}
			if s.opts.Interval > 0 && !state.issuedAt.IsZero() && s.now().Sub(state.issuedAt) < s.opts.Interval {
				continue
			}

			select {
			case slots <- struct{}{}:
			default:
				// Pool saturated; this track tries again next frame.
				continue
			}

			state.inFlight = true
			state.lastIssued++
			state.issuedAt = s.now()
			seq := state.lastIssued
			crop := vision.Crop{Frame: frame, Box: track.Box()}
			trackID := track.ID()

			calls.Add(1)
			go func() {
				defer calls.Done()
				defer func() { <-slots }()

				identifyCtx := callCtx
				var cancel context.CancelFunc
				if s.opts.Timeout > 0 {
					identifyCtx, cancel = context.WithTimeout(callCtx, s.opts.Timeout)
					defer cancel()
				}
				match, err := s.rec.Identify(identifyCtx, crop)
				out := outcome{trackID: trackID, seq: seq, err: err}
				if err == nil {
					out.obs = tracker.Observation{PersonID: match.PersonID, Distance: match.Distance}
				}
				select {
				case results <- out:
				case <-callCtx.Done():
				}
			}()
		}
	}
}

// applyOutcome feeds one recognizer verdict to the tracker and acts on the
// resulting update. Runs only on the session goroutine.
func (s *Session) applyOutcome(ctx context.Context, pending map[string]*trackIO, prevState map[string]tracker.State, out outcome) {
	state, ok := pending[out.trackID]
	if !ok {
		// Track aged out while the call was in flight.
		return
	}
	state.inFlight = false
	if out.seq != state.lastIssued {
		// Stale result from before a reissue; last issued wins.
		return
	}

	var update tracker.Update
	if out.err != nil {
		s.logger.Debug("recognizer call failed",
			logging.String(logging.FieldTrackID, out.trackID),
			logging.Error(out.err))
		update = s.tracks.ApplyFailure(out.trackID)
	} else {
		update = s.tracks.ApplyObservation(out.trackID, out.obs)
	}

	if update.Confirmed {
		s.recordConfirmation(ctx, update)
	}
	if update.State == tracker.StateUnknown && prevState[out.trackID] != tracker.StateUnknown {
		s.emit(Event{Type: EventUnknownFace, At: s.now(), TrackID: out.trackID})
	}
	prevState[out.trackID] = update.State
}

// recordConfirmation pushes a confirmed identity through the ledger's
// cooldown gate and publishes the result.
func (s *Session) recordConfirmation(ctx context.Context, update tracker.Update) {
	if ctx.Err() != nil {
		// Session torn down; no partial writes.
		return
	}

	at := s.now()
	person, err := s.store.GetPerson(ctx, update.PersonID)
	if err != nil {
		s.logger.Warn("confirmed person not in roster",
			logging.String(logging.FieldPersonID, update.PersonID),
			logging.Error(err))
		return
	}

	result, err := s.store.RecordPresence(ctx, update.PersonID, at, s.opts.Cooldown)
	if err != nil {
		if errors.Is(err, services.ErrConflict) {
			s.logger.Error("ledger write conflict",
				logging.String(logging.FieldPersonID, update.PersonID),
				logging.Error(err))
		} else {
			s.logger.Error("ledger write failed",
				logging.String(logging.FieldPersonID, update.PersonID),
				logging.Error(err))
		}
		return
	}

	if !result.Accepted {
		s.emit(Event{
			Type:      EventCooldownActive,
			At:        at,
			TrackID:   update.TrackID,
			PersonID:  person.ID,
			Name:      person.Name,
			Remaining: result.Remaining,
		})
		return
	}

	s.logger.Info("attendance logged",
		logging.String(logging.FieldPersonID, person.ID),
		logging.String("name", person.Name),
		logging.Float64("distance", update.Distance))
	s.emit(Event{
		Type:     EventRecognitionConfirmed,
		At:       at,
		TrackID:  update.TrackID,
		PersonID: person.ID,
		Name:     person.Name,
		Distance: update.Distance,
	})

	if s.notifier != nil {
		if err := s.notifier.NotifyRecognition(ctx, person, at); err != nil {
			s.logger.Warn("recognition notification failed", logging.Error(err))
		}
	}
}

// emit publishes without blocking; a slow consumer drops events rather than
// stalling frame processing.
func (s *Session) emit(event Event) {
	select {
	case s.events <- event:
	default:
	}
}

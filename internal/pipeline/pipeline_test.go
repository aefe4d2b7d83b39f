package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"rollcall/internal/pipeline"
	"rollcall/internal/recognizer"
	"rollcall/internal/store"
	"rollcall/internal/testsupport"
	"rollcall/internal/tracker"
	"rollcall/internal/vision"
)

// scriptedCamera serves a fixed number of frames, then ends the stream. With
// blockAfter set it parks on the context instead, for cancellation tests.
type scriptedCamera struct {
	frames     int
	blockAfter bool
	served     int
}

func (c *scriptedCamera) NextFrame(ctx context.Context) (vision.Frame, error) {
	if c.served >= c.frames {
		if c.blockAfter {
			<-ctx.Done()
			return vision.Frame{}, ctx.Err()
		}
		return vision.Frame{}, vision.ErrEndOfStream
	}
	c.served++
	return vision.Frame{Sequence: uint64(c.served), CapturedAt: time.Now(), Width: 640, Height: 480}, nil
}

func (c *scriptedCamera) Close() error { return nil }

// frameDetector returns a scripted box list per frame sequence, defaulting
// to one stationary face.
type frameDetector struct {
	perFrame func(seq uint64) []vision.BoundingBox
}

func (d *frameDetector) Detect(frame vision.Frame) []vision.BoundingBox {
	if d.perFrame != nil {
		return d.perFrame(frame.Sequence)
	}
	return []vision.BoundingBox{{X: 100, Y: 100, Width: 80, Height: 80}}
}

// stubRecognizer returns a fixed verdict, counting calls.
type stubRecognizer struct {
	mu    sync.Mutex
	match recognizer.Match
	err   error
	block bool
	calls int
}

func (r *stubRecognizer) Identify(ctx context.Context, _ vision.Crop) (recognizer.Match, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.block {
		<-ctx.Done()
		return recognizer.Match{}, ctx.Err()
	}
	return r.match, r.err
}

func trackerConfig() tracker.Config {
	return tracker.Config{
		WindowLength:      8,
		MinStableFrames:   4,
		AgreementFraction: 0.75,
		DistanceThreshold: 0.40,
		MaxMissedFrames:   2,
		MaxFailures:       3,
	}
}

func sessionOptions() pipeline.Options {
	return pipeline.Options{
		Workers:  2,
		Cooldown: 300 * time.Second,
	}
}

func collectEvents(s *pipeline.Session) map[pipeline.EventType][]pipeline.Event {
	byType := make(map[pipeline.EventType][]pipeline.Event)
	for event := range s.Events() {
		byType[event.Type] = append(byType[event.Type], event)
	}
	return byType
}

func TestSessionLogsConfirmedAttendanceOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	testsupport.NewStudent(t, st, "ST-001", "Asha Rao")

	rec := &stubRecognizer{match: recognizer.Match{PersonID: "ST-001", Distance: 0.2}}
	session := pipeline.New(
		&scriptedCamera{frames: 24}, &frameDetector{}, rec,
		st, tracker.New(trackerConfig(), nil, nil), nil, nil, nil, sessionOptions())

	done := make(chan error, 1)
	go func() { done <- session.Run(ctx) }()
	events := collectEvents(session)
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	records, err := st.AttendanceForPerson(ctx, "ST-001", time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("AttendanceForPerson: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected exactly 1 ledger record, got %d", len(records))
	}
	confirmed := events[pipeline.EventRecognitionConfirmed]
	if len(confirmed) != 1 {
		t.Fatalf("expected 1 confirmation event, got %d", len(confirmed))
	}
	if confirmed[0].PersonID != "ST-001" || confirmed[0].Name != "Asha Rao" {
		t.Fatalf("unexpected confirmation event %+v", confirmed[0])
	}
}

func TestSessionEmitsCooldownActiveOnRejection(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	testsupport.NewStudent(t, st, "ST-001", "Asha Rao")

	// A record one minute old keeps the cooldown gate closed.
	if _, err := st.RecordPresence(ctx, "ST-001", time.Now().Add(-time.Minute), 0); err != nil {
		t.Fatalf("seed RecordPresence: %v", err)
	}

	rec := &stubRecognizer{match: recognizer.Match{PersonID: "ST-001", Distance: 0.2}}
	session := pipeline.New(
		&scriptedCamera{frames: 24}, &frameDetector{}, rec,
		st, tracker.New(trackerConfig(), nil, nil), nil, nil, nil, sessionOptions())

	done := make(chan error, 1)
	go func() { done <- session.Run(ctx) }()
	events := collectEvents(session)
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	records, err := st.AttendanceForPerson(ctx, "ST-001", time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("AttendanceForPerson: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("cooldown rejection must not write; got %d records", len(records))
	}
	cooldowns := events[pipeline.EventCooldownActive]
	if len(cooldowns) != 1 {
		t.Fatalf("expected 1 cooldown event, got %d", len(cooldowns))
	}
	if cooldowns[0].Remaining <= 0 || cooldowns[0].Remaining > 300*time.Second {
		t.Fatalf("implausible remaining cooldown %v", cooldowns[0].Remaining)
	}
	if len(events[pipeline.EventRecognitionConfirmed]) != 0 {
		t.Fatal("rejected confirmation must not emit a confirmed event")
	}
}

func TestSessionEmitsUnknownFaceOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	testsupport.NewStudent(t, st, "ST-001", "Asha Rao")

	// Every verdict above the distance threshold: nobody we know.
	rec := &stubRecognizer{match: recognizer.Match{PersonID: "ST-001", Distance: 0.9}}
	session := pipeline.New(
		&scriptedCamera{frames: 30}, &frameDetector{}, rec,
		st, tracker.New(trackerConfig(), nil, nil), nil, nil, nil, sessionOptions())

	done := make(chan error, 1)
	go func() { done <- session.Run(ctx) }()
	events := collectEvents(session)
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	records, err := st.AttendanceForDay(ctx, time.Now())
	if err != nil {
		t.Fatalf("AttendanceForDay: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("unknown faces must not write; got %d records", len(records))
	}
	if got := len(events[pipeline.EventUnknownFace]); got != 1 {
		t.Fatalf("expected 1 unknown-face event, got %d", got)
	}
}

func TestSessionAbsorbsRecognizerFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	testsupport.NewStudent(t, st, "ST-001", "Asha Rao")

	rec := &stubRecognizer{err: errors.New("model unavailable")}
	session := pipeline.New(
		&scriptedCamera{frames: 20}, &frameDetector{}, rec,
		st, tracker.New(trackerConfig(), nil, nil), nil, nil, nil, sessionOptions())

	done := make(chan error, 1)
	go func() { done <- session.Run(ctx) }()
	events := collectEvents(session)
	if err := <-done; err != nil {
		t.Fatalf("failures must stay inside the pipeline, got %v", err)
	}

	records, err := st.AttendanceForDay(ctx, time.Now())
	if err != nil {
		t.Fatalf("AttendanceForDay: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
	if len(events[pipeline.EventRecognitionConfirmed]) != 0 {
		t.Fatal("failures must not confirm anything")
	}
}

func TestSessionEmitsTrackLost(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	testsupport.NewStudent(t, st, "ST-001", "Asha Rao")

	// Face visible for 16 frames, then gone.
	detector := &frameDetector{perFrame: func(seq uint64) []vision.BoundingBox {
		if seq <= 16 {
			return []vision.BoundingBox{{X: 100, Y: 100, Width: 80, Height: 80}}
		}
		return nil
	}}
	rec := &stubRecognizer{match: recognizer.Match{PersonID: "ST-001", Distance: 0.2}}
	session := pipeline.New(
		&scriptedCamera{frames: 24}, detector, rec,
		st, tracker.New(trackerConfig(), nil, nil), nil, nil, nil, sessionOptions())

	done := make(chan error, 1)
	go func() { done <- session.Run(ctx) }()
	events := collectEvents(session)
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := len(events[pipeline.EventTrackLost]); got != 1 {
		t.Fatalf("expected 1 track-lost event, got %d", got)
	}
	if got := len(events[pipeline.EventRecognitionConfirmed]); got != 1 {
		t.Fatalf("expected 1 confirmation before the loss, got %d", got)
	}
}

func TestSessionCancellationWritesNothing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.NewStudent(t, st, "ST-001", "Asha Rao")

	ctx, cancel := context.WithCancel(context.Background())
	// Recognizer calls hang until cancellation; the camera parks after its
	// frames are exhausted.
	rec := &stubRecognizer{block: true}
	session := pipeline.New(
		&scriptedCamera{frames: 6, blockAfter: true}, &frameDetector{}, rec,
		st, tracker.New(trackerConfig(), nil, nil), nil, nil, nil, sessionOptions())

	done := make(chan error, 1)
	go func() { done <- session.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("session did not shut down after cancellation")
	}

	records, err := st.AttendanceForDay(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("AttendanceForDay: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("cancelled session must not write, got %d records", len(records))
	}
}

func TestNotifierReceivesConfirmation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	testsupport.NewStudent(t, st, "ST-001", "Asha Rao")

	notified := make(chan string, 4)
	notifier := notifierFunc(func(_ context.Context, person *store.Person, _ time.Time) error {
		notified <- person.ID
		return nil
	})

	rec := &stubRecognizer{match: recognizer.Match{PersonID: "ST-001", Distance: 0.2}}
	session := pipeline.New(
		&scriptedCamera{frames: 24}, &frameDetector{}, rec,
		st, tracker.New(trackerConfig(), nil, nil), notifier, nil, nil, sessionOptions())

	done := make(chan error, 1)
	go func() { done <- session.Run(ctx) }()
	collectEvents(session)
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	select {
	case id := <-notified:
		if id != "ST-001" {
			t.Fatalf("notified wrong person %q", id)
		}
	default:
		t.Fatal("notifier never called")
	}
	if len(notified) != 0 {
		t.Fatalf("expected exactly one notification, %d more queued", len(notified))
	}
}

type notifierFunc func(ctx context.Context, person *store.Person, at time.Time) error

func (f notifierFunc) NotifyRecognition(ctx context.Context, person *store.Person, at time.Time) error {
	return f(ctx, person, at)
}

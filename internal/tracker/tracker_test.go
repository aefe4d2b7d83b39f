package tracker_test

import (
	"testing"
	"time"

	"rollcall/internal/tracker"
	"rollcall/internal/vision"
)

func testConfig() tracker.Config {
	return tracker.Config{
		WindowLength:      8,
		MinStableFrames:   4,
		AgreementFraction: 0.75,
		DistanceThreshold: 0.40,
		MaxMissedFrames:   5,
		MaxFailures:       3,
	}
}

func fixedClock() time.Time {
	return time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)
}

func newTracker(t *testing.T, cfg tracker.Config) *tracker.Tracker {
	t.Helper()
	return tracker.New(cfg, nil, fixedClock)
}

func singleTrack(t *testing.T, tk *tracker.Tracker) string {
	t.Helper()
	result := tk.Match([]vision.BoundingBox{{X: 100, Y: 100, Width: 80, Height: 80}})
	if len(result.Matched) != 1 {
		t.Fatalf("expected 1 matched track, got %d", len(result.Matched))
	}
	return result.Matched[0].ID()
}

func TestConfirmsExactlyOnce(t *testing.T) {
	tk := newTracker(t, testConfig())
	id := singleTrack(t, tk)

	obs := tracker.Observation{PersonID: "ST-001", Distance: 0.25}
	confirmations := 0
	for i := 0; i < 10; i++ {
		update := tk.ApplyObservation(id, obs)
		if update.Confirmed {
			confirmations++
			if update.PersonID != "ST-001" {
				t.Fatalf("confirmed wrong person %q", update.PersonID)
			}
			if i != 3 {
				t.Fatalf("expected confirmation on 4th agreeing frame, got frame %d", i+1)
			}
		}
	}
	if confirmations != 1 {
		t.Fatalf("expected exactly 1 confirmation, got %d", confirmations)
	}
	if tk.Track(id).State() != tracker.StateRecognized {
		t.Fatalf("expected recognized state, got %v", tk.Track(id).State())
	}
}

func TestNoConfirmationBelowMinimumFrames(t *testing.T) {
	tk := newTracker(t, testConfig())
	id := singleTrack(t, tk)

	obs := tracker.Observation{PersonID: "ST-001", Distance: 0.2}
	for i := 0; i < 3; i++ {
		if update := tk.ApplyObservation(id, obs); update.Confirmed {
			t.Fatalf("confirmed after only %d frames", i+1)
		}
	}
	if state := tk.Track(id).State(); state == tracker.StateRecognized {
		t.Fatal("track recognized without minimum stable frames")
	}
}

func TestIdentitySwitchResetsEvidence(t *testing.T) {
	tk := newTracker(t, testConfig())
	id := singleTrack(t, tk)

	for i := 0; i < 3; i++ {
		tk.ApplyObservation(id, tracker.Observation{PersonID: "ST-001", Distance: 0.2})
	}

	// A different person takes over the region; the old evidence must not
	// carry toward confirming either identity.
	for i := 0; i < 3; i++ {
		if update := tk.ApplyObservation(id, tracker.Observation{PersonID: "ST-002", Distance: 0.2}); update.Confirmed {
			t.Fatalf("confirmed ST-002 after only %d frames post-switch", i+1)
		}
	}
	update := tk.ApplyObservation(id, tracker.Observation{PersonID: "ST-002", Distance: 0.2})
	if !update.Confirmed || update.PersonID != "ST-002" {
		t.Fatalf("expected ST-002 confirmation on 4th agreeing frame, got %+v", update)
	}
}

func TestFarSightingsDiluteAgreementWithoutReset(t *testing.T) {
	tk := newTracker(t, testConfig())
	id := singleTrack(t, tk)

	tk.ApplyObservation(id, tracker.Observation{PersonID: "ST-001", Distance: 0.2})
	tk.ApplyObservation(id, tracker.Observation{PersonID: "ST-001", Distance: 0.2})
	tk.ApplyObservation(id, tracker.Observation{PersonID: "ST-001", Distance: 0.2})
	// Above-threshold sighting: no identity evidence, no reset.
	if update := tk.ApplyObservation(id, tracker.Observation{PersonID: "ST-001", Distance: 0.9}); update.Confirmed {
		t.Fatal("above-threshold distance must not count toward confirmation")
	}
	// 4 of 5 entries agree (0.8 >= 0.75), so this confirms.
	update := tk.ApplyObservation(id, tracker.Observation{PersonID: "ST-001", Distance: 0.2})
	if !update.Confirmed {
		t.Fatalf("expected confirmation with 4/5 agreement, got %+v", update)
	}
}

func TestFullAgreementBlocksOnAnySighting(t *testing.T) {
	cfg := testConfig()
	cfg.AgreementFraction = 1.0
	tk := newTracker(t, cfg)
	id := singleTrack(t, tk)

	tk.ApplyObservation(id, tracker.Observation{PersonID: "ST-001", Distance: 0.9})
	for i := 0; i < 4; i++ {
		if update := tk.ApplyObservation(id, tracker.Observation{PersonID: "ST-001", Distance: 0.2}); update.Confirmed {
			t.Fatalf("confirmed with a dissenting entry still in the window (frame %d)", i+1)
		}
	}
}

func TestWindowFillsToUnknownThenRecovers(t *testing.T) {
	tk := newTracker(t, testConfig())
	id := singleTrack(t, tk)

	for i := 0; i < 8; i++ {
		tk.ApplyObservation(id, tracker.Observation{PersonID: "ST-001", Distance: 0.9})
	}
	if state := tk.Track(id).State(); state != tracker.StateUnknown {
		t.Fatalf("expected unknown after a full window of far sightings, got %v", state)
	}

	// Accepted verdicts slide the far sightings out; at 6 of 8 entries the
	// agreement fraction is reached.
	var confirmed bool
	for i := 0; i < 6; i++ {
		update := tk.ApplyObservation(id, tracker.Observation{PersonID: "ST-001", Distance: 0.2})
		if update.Confirmed {
			confirmed = true
			if i != 5 {
				t.Fatalf("expected confirmation on 6th accepted frame, got frame %d", i+1)
			}
		}
	}
	if !confirmed {
		t.Fatal("track never recovered from unknown")
	}
}

func TestFailuresPreserveEvidenceUntilLimit(t *testing.T) {
	tk := newTracker(t, testConfig())
	id := singleTrack(t, tk)

	obs := tracker.Observation{PersonID: "ST-001", Distance: 0.2}
	for i := 0; i < 3; i++ {
		tk.ApplyObservation(id, obs)
	}
	tk.ApplyFailure(id)
	tk.ApplyFailure(id)

	// Two failures dropped without touching the window: one more agreeing
	// frame completes the confirmation.
	if update := tk.ApplyObservation(id, obs); !update.Confirmed {
		t.Fatalf("expected confirmation after failures were dropped, got %+v", update)
	}
}

func TestThreeConsecutiveFailuresReset(t *testing.T) {
	tk := newTracker(t, testConfig())
	id := singleTrack(t, tk)

	obs := tracker.Observation{PersonID: "ST-001", Distance: 0.2}
	for i := 0; i < 3; i++ {
		tk.ApplyObservation(id, obs)
	}
	for i := 0; i < 3; i++ {
		tk.ApplyFailure(id)
	}
	if state := tk.Track(id).State(); state != tracker.StateDetecting {
		t.Fatalf("expected detecting after failure reset, got %v", state)
	}

	// Evidence restarted from zero.
	for i := 0; i < 3; i++ {
		if update := tk.ApplyObservation(id, obs); update.Confirmed {
			t.Fatalf("confirmed after only %d post-reset frames", i+1)
		}
	}
	if update := tk.ApplyObservation(id, obs); !update.Confirmed {
		t.Fatalf("expected confirmation on 4th post-reset frame, got %+v", update)
	}
}

func TestSpatialMatchingFollowsMovingBox(t *testing.T) {
	tk := newTracker(t, testConfig())

	first := tk.Match([]vision.BoundingBox{{X: 100, Y: 100, Width: 80, Height: 80}})
	id := first.Matched[0].ID()

	// Small drift keeps the same track.
	moved := tk.Match([]vision.BoundingBox{{X: 110, Y: 105, Width: 80, Height: 80}})
	if moved.Matched[0].ID() != id {
		t.Fatal("drifting box should match the existing track")
	}
	if tk.Len() != 1 {
		t.Fatalf("expected 1 track, got %d", tk.Len())
	}

	// A distant box is a different face.
	both := tk.Match([]vision.BoundingBox{
		{X: 112, Y: 104, Width: 80, Height: 80},
		{X: 500, Y: 400, Width: 80, Height: 80},
	})
	if len(both.Matched) != 2 || tk.Len() != 2 {
		t.Fatalf("expected a second track, matched=%d len=%d", len(both.Matched), tk.Len())
	}
}

func TestTrackLostAfterMissedFrames(t *testing.T) {
	cfg := testConfig()
	cfg.MaxMissedFrames = 2
	tk := newTracker(t, cfg)
	id := singleTrack(t, tk)

	tk.Match(nil)
	tk.Match(nil)
	result := tk.Match(nil)
	if len(result.Lost) != 1 || result.Lost[0] != id {
		t.Fatalf("expected track %s lost, got %v", id, result.Lost)
	}
	if tk.Len() != 0 {
		t.Fatalf("expected no live tracks, got %d", tk.Len())
	}
}

func TestReappearanceIsANewAppearance(t *testing.T) {
	cfg := testConfig()
	cfg.MaxMissedFrames = 1
	tk := newTracker(t, cfg)
	id := singleTrack(t, tk)

	obs := tracker.Observation{PersonID: "ST-001", Distance: 0.2}
	for i := 0; i < 4; i++ {
		tk.ApplyObservation(id, obs)
	}

	tk.Match(nil)
	tk.Match(nil)
	if tk.Len() != 0 {
		t.Fatalf("expected track to age out, len=%d", tk.Len())
	}

	// The same person walking back in front of the camera confirms again on
	// the new track.
	id2 := singleTrack(t, tk)
	if id2 == id {
		t.Fatal("expected a fresh track id")
	}
	var confirmed bool
	for i := 0; i < 4; i++ {
		if update := tk.ApplyObservation(id2, obs); update.Confirmed {
			confirmed = true
		}
	}
	if !confirmed {
		t.Fatal("reappearance should confirm independently")
	}
}

func TestObservationForUnknownTrackIsNoop(t *testing.T) {
	tk := newTracker(t, testConfig())
	update := tk.ApplyObservation("missing", tracker.Observation{PersonID: "ST-001", Distance: 0.1})
	if update.Confirmed || update.State != tracker.StateDetecting {
		t.Fatalf("expected zero update for unknown track, got %+v", update)
	}
}

package services_test

import (
	"errors"
	"testing"

	"rollcall/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("model returned no face")
	err := services.Wrap(services.ErrRecognizer, "recognizer", "identify", "frame 12", base)
	if !errors.Is(err, services.ErrRecognizer) {
		t.Fatalf("expected recognizer marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected original error to remain unwrappable: %v", err)
	}
}

func TestWrapWithoutInnerError(t *testing.T) {
	err := services.Wrap(services.ErrNotFound, "store", "person", "ST-001", nil)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found marker, got %v", err)
	}
}

func TestTransientClassification(t *testing.T) {
	cases := []struct {
		err      error
		expected bool
	}{
		{services.Wrap(services.ErrRecognizer, "recognizer", "identify", "", nil), true},
		{services.Wrap(services.ErrTimeout, "recognizer", "identify", "deadline", nil), true},
		{services.Wrap(services.ErrConflict, "ledger", "record", "", nil), false},
		{services.Wrap(services.ErrNotFound, "store", "person", "", nil), false},
		{nil, false},
	}
	for _, tc := range cases {
		if got := services.Transient(tc.err); got != tc.expected {
			t.Errorf("Transient(%v) = %v, want %v", tc.err, got, tc.expected)
		}
	}
}

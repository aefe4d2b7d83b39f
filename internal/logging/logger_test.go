package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestConsoleHandlerFormatsComponentAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	handler := newConsoleHandler(&buf, lvl)
	logger := slog.New(handler).With(String(FieldComponent, "ledger"))

	logger.Info("presence recorded",
		String(FieldPersonID, "FA-042"),
		Int("remaining", 0),
	)

	line := buf.String()
	if !strings.Contains(line, "INFO ledger: presence recorded") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "person_id=FA-042") {
		t.Fatalf("missing person_id attr: %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, new(slog.LevelVar)))

	logger.Info("msg", String("name", "Ada Lovelace"))
	if !strings.Contains(buf.String(), `name="Ada Lovelace"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	handler := newConsoleHandler(&buf, lvl)

	if handler.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("info should be disabled at warn level")
	}
	if !handler.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("error should be enabled at warn level")
	}
}

func TestFormatValueKinds(t *testing.T) {
	cases := []struct {
		value  slog.Value
		expect string
	}{
		{slog.BoolValue(true), "true"},
		{slog.IntValue(42), "42"},
		{slog.Float64Value(0.4), "0.4"},
		{slog.DurationValue(5 * time.Second), "5s"},
		{slog.StringValue("plain"), "plain"},
		{slog.StringValue(""), `""`},
	}
	for _, tc := range cases {
		if got := formatValue(tc.value); got != tc.expect {
			t.Errorf("formatValue(%v) = %q, want %q", tc.value, got, tc.expect)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

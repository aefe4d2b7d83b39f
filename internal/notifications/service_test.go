package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rollcall/internal/absentee"
	"rollcall/internal/config"
	"rollcall/internal/notifications"
	"rollcall/internal/store"
)

func TestNewServiceReturnsNoopWhenUnconfigured(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	cfg.Notifications.MQTTBroker = ""

	svc := notifications.NewService(&cfg)
	person := &store.Person{ID: "ST-001", Name: "Asha Rao", Category: store.CategoryStudent}
	if err := svc.NotifyRecognition(context.Background(), person, time.Now()); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyRecognitionPayload(t *testing.T) {
	var captured struct {
		title string
		tags  string
		body  string
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		captured.title = r.Header.Get("Title")
		captured.tags = r.Header.Get("Tags")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		captured.body = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.RequestTimeout = 5
	cfg.Notifications.Recognition = true

	svc := notifications.NewService(&cfg)
	person := &store.Person{ID: "ST-001", Name: "Asha Rao", Category: store.CategoryStudent}
	at := time.Date(2025, time.March, 3, 9, 15, 0, 0, time.UTC)
	if err := svc.NotifyRecognition(context.Background(), person, at); err != nil {
		t.Fatalf("NotifyRecognition: %v", err)
	}

	if captured.title != "Rollcall - Attendance Logged" {
		t.Fatalf("unexpected title %q", captured.title)
	}
	if captured.body != "Asha Rao (ST-001) logged at 09:15:00" {
		t.Fatalf("unexpected body %q", captured.body)
	}
	if captured.tags != "rollcall,attendance,student" {
		t.Fatalf("unexpected tags %q", captured.tags)
	}
}

func TestNtfyAbsenteesPayload(t *testing.T) {
	var body string
	var priority string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		priority = r.Header.Get("Priority")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Absentees = true

	report := absentee.Report{
		Day:      time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC),
		Students: []*store.Person{{ID: "ST-002", Name: "Binta Okafor", Category: store.CategoryStudent}},
		Faculty:  []*store.Person{{ID: "FA-001", Name: "Ines Castillo", Category: store.CategoryFaculty}},
	}
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyAbsentees(context.Background(), report); err != nil {
		t.Fatalf("NotifyAbsentees: %v", err)
	}

	want := "2 absent on 2025-03-03\nStudents: Binta Okafor\nFaculty: Ines Castillo"
	if body != want {
		t.Fatalf("body = %q, want %q", body, want)
	}
	if priority != "high" {
		t.Fatalf("priority = %q, want high", priority)
	}
}

func TestTogglesSuppressEventClasses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected delivery for suppressed event: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Recognition = false
	cfg.Notifications.Absentees = false
	cfg.Notifications.Errors = false

	svc := notifications.NewService(&cfg)
	ctx := context.Background()
	person := &store.Person{ID: "ST-001", Name: "Asha Rao", Category: store.CategoryStudent}

	if err := svc.NotifyRecognition(ctx, person, time.Now()); err != nil {
		t.Fatalf("suppressed recognition returned %v", err)
	}
	if err := svc.NotifyAbsentees(ctx, absentee.Report{Students: []*store.Person{person}}); err != nil {
		t.Fatalf("suppressed absentees returned %v", err)
	}
	if err := svc.NotifyError(ctx, errors.New("boom"), "pipeline"); err != nil {
		t.Fatalf("suppressed error event returned %v", err)
	}
}

func TestNtfyErrorStatusSurfaced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic over quota", http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected delivery error for non-2xx response")
	}
}

func TestEmptyAbsenteeReportNotSent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("unexpected delivery for empty report")
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Absentees = true

	svc := notifications.NewService(&cfg)
	if err := svc.NotifyAbsentees(context.Background(), absentee.Report{}); err != nil {
		t.Fatalf("empty report returned %v", err)
	}
}

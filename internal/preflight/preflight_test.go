package preflight_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rollcall/internal/preflight"
	"rollcall/internal/testsupport"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	result := preflight.CheckDirectoryAccess("Data directory", dir)
	if !result.Passed {
		t.Fatalf("expected pass for %s: %s", dir, result.Detail)
	}

	result = preflight.CheckDirectoryAccess("Data directory", filepath.Join(dir, "missing"))
	if result.Passed {
		t.Fatal("expected failure for missing directory")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckModelFiles(t *testing.T) {
	result := preflight.CheckModelFiles("")
	if result.Passed {
		t.Fatal("expected failure for unset model dir")
	}

	dir := t.TempDir()
	result = preflight.CheckModelFiles(dir)
	if result.Passed {
		t.Fatal("expected failure for empty model dir")
	}
	if !strings.Contains(result.Detail, "shape_predictor_5_face_landmarks.dat") {
		t.Fatalf("expected missing file in detail, got %q", result.Detail)
	}

	for _, file := range []string{
		"shape_predictor_5_face_landmarks.dat",
		"dlib_face_recognition_resnet_model_v1.dat",
		"mmod_human_face_detector.dat",
	} {
		if err := os.WriteFile(filepath.Join(dir, file), []byte("model"), 0o644); err != nil {
			t.Fatalf("write %s: %v", file, err)
		}
	}
	result = preflight.CheckModelFiles(dir)
	if !result.Passed {
		t.Fatalf("expected pass with all model files: %s", result.Detail)
	}
}

func TestCheckCameraStream(t *testing.T) {
	mjpeg := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
		w.WriteHeader(http.StatusOK)
	}))
	defer mjpeg.Close()

	result := preflight.CheckCameraStream(context.Background(), mjpeg.URL)
	if !result.Passed {
		t.Fatalf("expected pass for MJPEG server: %s", result.Detail)
	}

	plain := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
	}))
	defer plain.Close()

	result = preflight.CheckCameraStream(context.Background(), plain.URL)
	if result.Passed {
		t.Fatal("expected failure for non-multipart response")
	}
}

func TestRunAllReportsConfiguredChecks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Camera.StreamURL = ""
	cfg.Notifications.MQTTBroker = ""
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := preflight.RunAll(context.Background(), cfg)
	if len(results) != 3 {
		t.Fatalf("expected 3 checks, got %d", len(results))
	}

	failed := preflight.Failed(results)
	for _, r := range failed {
		if r.Name == "Data directory" || r.Name == "Log directory" {
			t.Fatalf("directory check should pass under temp config: %s", r.Detail)
		}
	}
}

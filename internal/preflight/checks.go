package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// modelFiles are the dlib model files the recognizer loads at startup.
var modelFiles = []string{
	"shape_predictor_5_face_landmarks.dat",
	"dlib_face_recognition_resnet_model_v1.dat",
	"mmod_human_face_detector.dat",
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckModelFiles verifies the recognition model directory holds every dlib
// model file the recognizer loads.
func CheckModelFiles(modelDir string) Result {
	const name = "Recognition models"

	dir := strings.TrimSpace(modelDir)
	if dir == "" {
		return Result{Name: name, Detail: "model_dir not configured"}
	}
	if _, err := os.Stat(dir); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", dir, err)}
	}

	var missing []string
	for _, file := range modelFiles {
		if _, err := os.Stat(filepath.Join(dir, file)); err != nil {
			missing = append(missing, file)
		}
	}
	if len(missing) > 0 {
		return Result{Name: name, Detail: fmt.Sprintf("missing %s", strings.Join(missing, ", "))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d model files present", len(modelFiles))}
}

// CheckCameraStream verifies the MJPEG stream answers with a multipart
// response. Only the headers are read; the body is closed immediately so the
// camera is not kept busy.
func CheckCameraStream(ctx context.Context, streamURL string) Result {
	const name = "Camera stream"

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, streamURL, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("invalid url %q: %v", streamURL, err)}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{Name: name, Detail: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}
	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "multipart/") {
		return Result{Name: name, Detail: fmt.Sprintf("not an MJPEG stream (content type %q)", contentType)}
	}
	return Result{Name: name, Passed: true, Detail: "stream reachable"}
}

// CheckMQTTBroker verifies the broker accepts TCP connections. It does not
// speak MQTT; a listening socket is enough to confirm the host is up.
func CheckMQTTBroker(broker string) Result {
	const name = "MQTT broker"

	parsed, err := url.Parse(strings.TrimSpace(broker))
	if err != nil || parsed.Host == "" {
		return Result{Name: name, Detail: fmt.Sprintf("invalid broker url %q", broker)}
	}
	conn, err := net.DialTimeout("tcp", parsed.Host, 3*time.Second)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	conn.Close()
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable", parsed.Host)}
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "connection timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "connection timed out"
	}
	return err.Error()
}

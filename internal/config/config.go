package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	LogDir    string `toml:"log_dir"`
	ExportDir string `toml:"export_dir"`
}

// Camera contains video capture settings. Frames are read from an MJPEG
// stream (an IP camera, or mjpg-streamer in front of a local device); the
// device node is only used to watch for hotplug events.
type Camera struct {
	StreamURL    string `toml:"stream_url"`
	Device       string `toml:"device"`
	FrameWidth   int    `toml:"frame_width"`
	FrameHeight  int    `toml:"frame_height"`
	MinFaceSize  int    `toml:"min_face_size"`
	HotplugWatch bool   `toml:"hotplug_watch"`
}

// Recognition contains settings for the face recognizer and its worker pool.
type Recognition struct {
	ModelDir           string  `toml:"model_dir"`
	DistanceThreshold  float64 `toml:"distance_threshold"`
	IntervalMillis     int     `toml:"interval_millis"`
	Workers            int     `toml:"workers"`
	TimeoutSeconds     int     `toml:"timeout_seconds"`
	GalleryNeighbors   int     `toml:"gallery_neighbors"`
	EmbeddingDimension int     `toml:"embedding_dimension"`
}

// Tracker contains debouncing parameters for per-face recognition state.
type Tracker struct {
	WindowLength      int     `toml:"window_length"`
	MinStableFrames   int     `toml:"min_stable_frames"`
	AgreementFraction float64 `toml:"agreement_fraction"`
	MaxMissedFrames   int     `toml:"max_missed_frames"`
	MaxFailures       int     `toml:"max_failures"`
}

// Attendance contains ledger write gating.
type Attendance struct {
	CooldownSeconds int `toml:"cooldown_seconds"`
}

// Payroll contains compensation policy constants. Grace days and the
// fixed-rate period are institutional policy, not law; keep them configurable.
type Payroll struct {
	GraceDays           int    `toml:"grace_days"`
	FixedRatePeriodDays int    `toml:"fixed_rate_period_days"`
	Calendar            string `toml:"calendar"`
}

// Notifications contains push notification settings. Both transports are
// optional; leaving them blank disables delivery.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	MQTTBroker     string `toml:"mqtt_broker"`
	MQTTTopic      string `toml:"mqtt_topic"`
	MQTTClientID   string `toml:"mqtt_client_id"`
	Recognition    bool   `toml:"recognition"`
	Absentees      bool   `toml:"absentees"`
	Errors         bool   `toml:"errors"`
}

// Logging contains log output configuration.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Rollcall.
//
// Configuration sections by subsystem:
//   - Paths: data, log, and export directories
//   - Camera: capture device and detection sizing
//   - Recognition: recognizer model, distance threshold, worker pool
//   - Tracker: stability window and confirmation thresholds
//   - Attendance: ledger cooldown gating
//   - Payroll: grace days and fixed-rate pro-ration period
//   - Notifications: ntfy and MQTT delivery settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Camera        Camera        `toml:"camera"`
	Recognition   Recognition   `toml:"recognition"`
	Tracker       Tracker       `toml:"tracker"`
	Attendance    Attendance    `toml:"attendance"`
	Payroll       Payroll       `toml:"payroll"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/rollcall/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("rollcall.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// ExportDir is best-effort so the daemon can run when the export target is a
// temporarily unavailable mount.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.ExportDir) != "" {
		_ = os.MkdirAll(c.Paths.ExportDir, 0o755)
	}
	return nil
}

// DatabasePath returns the SQLite database location under the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "rollcall.db")
}

// LockPath returns the daemon lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "rollcalld.lock")
}

// SocketPath returns the daemon control socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.DataDir, "rollcalld.sock")
}

// WriteSample writes the embedded sample configuration to the given path.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ExportDir) != "" {
		if c.Paths.ExportDir, err = expandPath(c.Paths.ExportDir); err != nil {
			return fmt.Errorf("paths.export_dir: %w", err)
		}
	}
	if strings.TrimSpace(c.Recognition.ModelDir) != "" {
		if c.Recognition.ModelDir, err = expandPath(c.Recognition.ModelDir); err != nil {
			return fmt.Errorf("recognition.model_dir: %w", err)
		}
	}

	c.Camera.Device = strings.TrimSpace(c.Camera.Device)
	if c.Camera.Device == "" {
		c.Camera.Device = defaultCameraDevice
	}
	if c.Recognition.Workers <= 0 {
		c.Recognition.Workers = defaultRecognitionWorkers
	}
	if c.Recognition.GalleryNeighbors <= 0 {
		c.Recognition.GalleryNeighbors = defaultGalleryNeighbors
	}
	if c.Recognition.EmbeddingDimension <= 0 {
		c.Recognition.EmbeddingDimension = defaultEmbeddingDimension
	}
	c.Payroll.Calendar = strings.ToLower(strings.TrimSpace(c.Payroll.Calendar))
	if c.Payroll.Calendar == "" {
		c.Payroll.Calendar = defaultPayrollCalendar
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}

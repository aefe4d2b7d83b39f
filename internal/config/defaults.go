package config

const (
	defaultDataDir  = "~/.local/share/rollcall"
	defaultLogDir   = "~/.local/share/rollcall/logs"
	defaultLogLevel = "info"

	defaultCameraStream = "http://127.0.0.1:8080/?action=stream"
	defaultCameraDevice = "/dev/video0"
	defaultFrameWidth   = 640
	defaultFrameHeight  = 480
	defaultMinFaceSize  = 50

	defaultDistanceThreshold   = 0.40
	defaultRecognitionInterval = 750
	defaultRecognitionWorkers  = 1
	defaultRecognitionTimeout  = 5
	defaultGalleryNeighbors    = 3
	defaultEmbeddingDimension  = 128

	defaultWindowLength      = 8
	defaultMinStableFrames   = 4
	defaultAgreementFraction = 0.75
	defaultMaxMissedFrames   = 60
	defaultMaxFailures       = 3

	defaultCooldownSeconds = 300

	defaultGraceDays           = 2
	defaultFixedRatePeriodDays = 30
	defaultPayrollCalendar     = "all"

	defaultLogFormat            = "console"
	defaultNotifyRequestTimeout = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Camera: Camera{
			StreamURL:    defaultCameraStream,
			Device:       defaultCameraDevice,
			FrameWidth:   defaultFrameWidth,
			FrameHeight:  defaultFrameHeight,
			MinFaceSize:  defaultMinFaceSize,
			HotplugWatch: true,
		},
		Recognition: Recognition{
			DistanceThreshold:  defaultDistanceThreshold,
			IntervalMillis:     defaultRecognitionInterval,
			Workers:            defaultRecognitionWorkers,
			TimeoutSeconds:     defaultRecognitionTimeout,
			GalleryNeighbors:   defaultGalleryNeighbors,
			EmbeddingDimension: defaultEmbeddingDimension,
		},
		Tracker: Tracker{
			WindowLength:      defaultWindowLength,
			MinStableFrames:   defaultMinStableFrames,
			AgreementFraction: defaultAgreementFraction,
			MaxMissedFrames:   defaultMaxMissedFrames,
			MaxFailures:       defaultMaxFailures,
		},
		Attendance: Attendance{
			CooldownSeconds: defaultCooldownSeconds,
		},
		Payroll: Payroll{
			GraceDays:           defaultGraceDays,
			FixedRatePeriodDays: defaultFixedRatePeriodDays,
			Calendar:            defaultPayrollCalendar,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Recognition:    true,
			Absentees:      true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

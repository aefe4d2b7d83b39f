package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRecognition(); err != nil {
		return err
	}
	if err := c.validateTracker(); err != nil {
		return err
	}
	if err := c.validateAttendance(); err != nil {
		return err
	}
	if err := c.validatePayroll(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateRecognition() error {
	if c.Recognition.DistanceThreshold <= 0 || c.Recognition.DistanceThreshold >= 1 {
		return errors.New("recognition.distance_threshold must be between 0 and 1")
	}
	if c.Recognition.IntervalMillis < 0 {
		return errors.New("recognition.interval_millis must not be negative")
	}
	if c.Recognition.TimeoutSeconds <= 0 {
		return errors.New("recognition.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateTracker() error {
	if c.Tracker.WindowLength < 1 {
		return errors.New("tracker.window_length must be at least 1")
	}
	if c.Tracker.MinStableFrames < 1 {
		return errors.New("tracker.min_stable_frames must be at least 1")
	}
	if c.Tracker.MinStableFrames > c.Tracker.WindowLength {
		return fmt.Errorf("tracker.min_stable_frames (%d) must not exceed tracker.window_length (%d)",
			c.Tracker.MinStableFrames, c.Tracker.WindowLength)
	}
	if c.Tracker.AgreementFraction <= 0 || c.Tracker.AgreementFraction > 1 {
		return errors.New("tracker.agreement_fraction must be in (0, 1]")
	}
	if c.Tracker.MaxMissedFrames < 1 {
		return errors.New("tracker.max_missed_frames must be at least 1")
	}
	if c.Tracker.MaxFailures < 1 {
		return errors.New("tracker.max_failures must be at least 1")
	}
	return nil
}

func (c *Config) validateAttendance() error {
	if c.Attendance.CooldownSeconds < 0 {
		return errors.New("attendance.cooldown_seconds must not be negative")
	}
	return nil
}

func (c *Config) validatePayroll() error {
	if c.Payroll.GraceDays < 0 {
		return errors.New("payroll.grace_days must not be negative")
	}
	if c.Payroll.FixedRatePeriodDays < 1 {
		return errors.New("payroll.fixed_rate_period_days must be at least 1")
	}
	switch c.Payroll.Calendar {
	case "all", "weekdays":
	default:
		return fmt.Errorf("payroll.calendar: unsupported value %q (use \"all\" or \"weekdays\")", c.Payroll.Calendar)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout < 0 {
		return errors.New("notifications.request_timeout must not be negative")
	}
	if c.Notifications.MQTTBroker != "" && c.Notifications.MQTTTopic == "" {
		return errors.New("notifications.mqtt_topic must be set when notifications.mqtt_broker is configured")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

package ipc

import "time"

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse describes the running daemon and the roster it serves.
type StatusResponse struct {
	Running        bool   `json:"running"`
	PID            int    `json:"pid"`
	DatabasePath   string `json:"database_path"`
	LockFilePath   string `json:"lock_file_path"`
	RosterStudents int    `json:"roster_students"`
	RosterFaculty  int    `json:"roster_faculty"`
	TodayRecords   int    `json:"today_records"`
}

// AttendanceTodayRequest fetches the records logged so far today.
type AttendanceTodayRequest struct{}

// AttendanceEntry is one ledger record with the person resolved.
type AttendanceEntry struct {
	PersonID   string    `json:"person_id"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	RecordedAt time.Time `json:"recorded_at"`
}

// AttendanceTodayResponse contains today's ledger entries in recording order.
type AttendanceTodayResponse struct {
	Day     string            `json:"day"`
	Entries []AttendanceEntry `json:"entries"`
}

// TestNotificationRequest triggers a test message on the configured notifiers.
type TestNotificationRequest struct{}

// TestNotificationResponse reports delivery.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

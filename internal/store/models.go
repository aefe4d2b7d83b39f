package store

import "time"

// Category classifies a registered person.
type Category string

const (
	CategoryStudent Category = "student"
	CategoryFaculty Category = "faculty"
)

// ValidCategory reports whether the value is a known category.
func ValidCategory(c Category) bool {
	return c == CategoryStudent || c == CategoryFaculty
}

// CompensationKind selects the active compensation variant.
type CompensationKind string

const (
	CompensationRegular        CompensationKind = "regular"
	CompensationVisitingFixed  CompensationKind = "visiting_fixed"
	CompensationVisitingPerDay CompensationKind = "visiting_perday"
)

// CompensationProfile is a closed tagged variant. Exactly one kind is active;
// the fields that apply depend on Kind:
//
//	regular:          MonthlySalary, PerDayDeduction
//	visiting_fixed:   VisitingRate (the full-period amount)
//	visiting_perday:  VisitingRate (the per-day rate)
//
// Consumers dispatch with an exhaustive switch on Kind.
type CompensationProfile struct {
	Kind            CompensationKind
	MonthlySalary   float64
	PerDayDeduction float64
	VisitingRate    float64
}

// Person is a registered individual. The ID is the immutable registration key.
// Compensation is set for faculty only.
type Person struct {
	ID           string
	Name         string
	Category     Category
	Department   string
	Phone        string
	Compensation *CompensationProfile
	CreatedAt    time.Time
}

// FaceEmbedding is one stored face vector for a person, feeding the
// recognition gallery.
type FaceEmbedding struct {
	ID        int64
	PersonID  string
	Vector    []float32
	Model     string
	CreatedAt time.Time
}

// AttendanceRecord is one accepted presence event. Records are append-only and
// constructed exclusively by the ledger write path.
type AttendanceRecord struct {
	ID         int64
	PersonID   string
	Category   Category
	RecordedAt time.Time
}

// PresenceResult is the outcome of a RecordPresence call. A rejection is a
// normal control-flow outcome, not an error: Remaining tells the caller how
// long the cooldown still has to run.
type PresenceResult struct {
	Accepted  bool
	Remaining time.Duration
	Record    *AttendanceRecord
}

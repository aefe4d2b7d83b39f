package payroll

import (
	"time"

	"rollcall/internal/config"
	"rollcall/internal/services"
)

// Calendar decides which calendar days count toward attendance expectations.
type Calendar interface {
	IsWorkingDay(date time.Time) bool
}

// CalendarFunc adapts a predicate to the Calendar interface.
type CalendarFunc func(date time.Time) bool

// IsWorkingDay implements Calendar.
func (f CalendarFunc) IsWorkingDay(date time.Time) bool { return f(date) }

// AllDays counts every calendar day as a working day.
var AllDays Calendar = CalendarFunc(func(time.Time) bool { return true })

// Weekdays counts Monday through Friday as working days.
var Weekdays Calendar = CalendarFunc(func(date time.Time) bool {
	wd := date.Weekday()
	return wd != time.Saturday && wd != time.Sunday
})

// CalendarFromConfig resolves the configured calendar name.
func CalendarFromConfig(cfg *config.Config) (Calendar, error) {
	switch cfg.Payroll.Calendar {
	case "", "all":
		return AllDays, nil
	case "weekdays":
		return Weekdays, nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "payroll", "calendar",
			"unknown calendar "+cfg.Payroll.Calendar, nil)
	}
}

package payroll

import (
	"fmt"
	"math"
	"time"

	"rollcall/internal/config"
	"rollcall/internal/services"
	"rollcall/internal/store"
)

// Options carries the tunable business constants. The grace-day count and
// the fixed-rate pro-ration period are institutional policy, not law, so
// they come from configuration.
type Options struct {
	// GraceDays is how many absences in a range are forgiven before the
	// per-day deduction applies to a regular salary.
	GraceDays int
	// FixedRatePeriodDays is the working-day count at which a visiting
	// fixed-rate profile pays in full; below it the amount is pro-rated.
	FixedRatePeriodDays int
}

// OptionsFromConfig derives payroll options from the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		GraceDays:           cfg.Payroll.GraceDays,
		FixedRatePeriodDays: cfg.Payroll.FixedRatePeriodDays,
	}
}

// Statement is the computed payroll figure for one faculty member over a
// date range.
type Statement struct {
	PersonID    string
	Name        string
	From        time.Time
	To          time.Time
	WorkingDays int
	PresentDays int
	AbsentDays  int
	Salary      float64
	Basis       store.CompensationKind
	Remarks     string
}

// Calculate computes the salary for one faculty member. The range is
// inclusive of both endpoint days; presence on non-working days does not
// count. Records outside the range are ignored.
func Calculate(person *store.Person, from, to time.Time, cal Calendar, records []*store.AttendanceRecord, opts Options) (Statement, error) {
	if person == nil {
		return Statement{}, services.Wrap(services.ErrNotFound, "payroll", "calculate", "nil person", nil)
	}
	if person.Category != store.CategoryFaculty || person.Compensation == nil {
		return Statement{}, services.Wrap(services.ErrValidation, "payroll", "calculate",
			fmt.Sprintf("%s has no compensation profile", person.ID), nil)
	}
	if cal == nil {
		cal = AllDays
	}

	start := dayStart(from)
	end := dayStart(to)
	if end.Before(start) {
		return Statement{}, services.Wrap(services.ErrValidation, "payroll", "calculate", "range end precedes start", nil)
	}

	present := make(map[time.Time]bool)
	for _, rec := range records {
		day := dayStart(rec.RecordedAt)
		if day.Before(start) || day.After(end) {
			continue
		}
		if cal.IsWorkingDay(day) {
			present[day] = true
		}
	}

	workingDays := 0
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if cal.IsWorkingDay(day) {
			workingDays++
		}
	}

	presentDays := len(present)
	absentDays := workingDays - presentDays
	if absentDays < 0 {
		absentDays = 0
	}

	stmt := Statement{
		PersonID:    person.ID,
		Name:        person.Name,
		From:        start,
		To:          end,
		WorkingDays: workingDays,
		PresentDays: presentDays,
		AbsentDays:  absentDays,
		Basis:       person.Compensation.Kind,
	}

	comp := person.Compensation
	switch comp.Kind {
	case store.CompensationRegular:
		deductible := absentDays - opts.GraceDays
		if deductible < 0 {
			deductible = 0
		}
		salary := comp.MonthlySalary - float64(deductible)*comp.PerDayDeduction
		if salary < 0 {
			salary = 0
		}
		stmt.Salary = salary
		if deductible > 0 {
			stmt.Remarks = fmt.Sprintf("%d deductible absences", deductible)
		}
	case store.CompensationVisitingFixed:
		period := opts.FixedRatePeriodDays
		if period <= 0 {
			period = 30
		}
		if workingDays >= period {
			stmt.Salary = comp.VisitingRate
		} else {
			stmt.Salary = comp.VisitingRate * float64(workingDays) / float64(period)
			stmt.Remarks = fmt.Sprintf("pro-rated over %d of %d days", workingDays, period)
		}
	case store.CompensationVisitingPerDay:
		stmt.Salary = comp.VisitingRate * float64(presentDays)
	default:
		return Statement{}, services.Wrap(services.ErrValidation, "payroll", "calculate",
			fmt.Sprintf("unknown compensation kind %q", comp.Kind), nil)
	}

	stmt.Salary = roundCurrency(stmt.Salary)
	return stmt, nil
}

func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func roundCurrency(v float64) float64 {
	return math.Round(v*100) / 100
}

// Package absentee computes who failed to appear on a given day. The result
// partitions registered persons by category and feeds the notification flow.
package absentee

import (
	"context"
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"rollcall/internal/store"
)

// Report lists the registered persons without an attendance record on one
// day, split by category.
type Report struct {
	Day      time.Time
	Students []*store.Person
	Faculty  []*store.Person
}

// Total returns the combined absentee count.
func (r Report) Total() int {
	return len(r.Students) + len(r.Faculty)
}

// Diff partitions the registered persons with no record among the day's
// attendance. Pure over its inputs; ordering is by display name.
func Diff(day time.Time, persons []*store.Person, recordsForDay []*store.AttendanceRecord) Report {
	present := make(map[string]bool, len(recordsForDay))
	for _, rec := range recordsForDay {
		present[rec.PersonID] = true
	}

	report := Report{Day: day}
	for _, person := range persons {
		if present[person.ID] {
			continue
		}
		switch person.Category {
		case store.CategoryFaculty:
			report.Faculty = append(report.Faculty, person)
		default:
			report.Students = append(report.Students, person)
		}
	}

	coll := collate.New(language.English, collate.IgnoreCase)
	byName := func(list []*store.Person) {
		sort.SliceStable(list, func(i, j int) bool {
			if c := coll.CompareString(list[i].Name, list[j].Name); c != 0 {
				return c < 0
			}
			return list[i].ID < list[j].ID
		})
	}
	byName(report.Students)
	byName(report.Faculty)
	return report
}

// ForDay loads the day's roster and records from the store and diffs them.
func ForDay(ctx context.Context, st *store.Store, day time.Time) (Report, error) {
	persons, err := st.ListPersons(ctx)
	if err != nil {
		return Report{}, err
	}
	records, err := st.AttendanceForDay(ctx, day)
	if err != nil {
		return Report{}, err
	}
	return Diff(day, persons, records), nil
}

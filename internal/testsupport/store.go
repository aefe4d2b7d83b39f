package testsupport

import (
	"context"
	"testing"

	"rollcall/internal/config"
	"rollcall/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewStudent registers a student for tests.
func NewStudent(t testing.TB, st *store.Store, id, name string) *store.Person {
	t.Helper()

	person, err := st.AddPerson(context.Background(), store.Person{
		ID:       id,
		Name:     name,
		Category: store.CategoryStudent,
	})
	if err != nil {
		t.Fatalf("store.AddPerson(%s): %v", id, err)
	}
	return person
}

// NewFaculty registers a faculty member with the given compensation profile.
func NewFaculty(t testing.TB, st *store.Store, id, name string, comp store.CompensationProfile) *store.Person {
	t.Helper()

	person, err := st.AddPerson(context.Background(), store.Person{
		ID:           id,
		Name:         name,
		Category:     store.CategoryFaculty,
		Compensation: &comp,
	})
	if err != nil {
		t.Fatalf("store.AddPerson(%s): %v", id, err)
	}
	return person
}

// RegularFaculty is shorthand for a monthly-salaried profile.
func RegularFaculty(monthly, deduction float64) store.CompensationProfile {
	return store.CompensationProfile{
		Kind:            store.CompensationRegular,
		MonthlySalary:   monthly,
		PerDayDeduction: deduction,
	}
}

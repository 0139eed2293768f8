package core

import (
	"errors"
	"testing"
)

func januaryRecords() []Expense {
	cats := []Category{Food, Transport, Rent}
	var out []Expense
	for day := 1; day <= 31; day++ {
		out = append(out, Expense{
			ID:       NewDate(2024, 1, day).String(),
			OwnerID:  "u1",
			Date:     NewDate(2024, 1, day),
			Category: cats[day%len(cats)],
		})
	}
	return out
}

func TestFilterDateRangeInclusive(t *testing.T) {
	f := Filter{Start: NewDate(2024, 1, 10), End: NewDate(2024, 1, 20)}
	got := f.Apply(januaryRecords())
	if len(got) != 11 {
		t.Fatalf("expected 11 records, got %d", len(got))
	}
	for _, e := range got {
		if e.Date.Day() < 10 || e.Date.Day() > 20 {
			t.Fatalf("record outside range: %s", e.Date)
		}
	}
	if got[0].Date.Day() != 10 || got[len(got)-1].Date.Day() != 20 {
		t.Fatalf("bounds not inclusive: first=%s last=%s", got[0].Date, got[len(got)-1].Date)
	}
}

func TestFilterCategories(t *testing.T) {
	records := januaryRecords()

	if got := (Filter{}).Apply(records); len(got) != len(records) {
		t.Fatalf("empty filter should match all, got %d", len(got))
	}

	wide := Filter{Start: NewDate(2000, 1, 1), End: NewDate(2100, 1, 1), Categories: []Category{Food}}
	got := wide.Apply(records)
	if len(got) == 0 {
		t.Fatalf("expected food records")
	}
	for _, e := range got {
		if e.Category != Food {
			t.Fatalf("unexpected category %s", e.Category)
		}
	}
}

func TestFilterOpenBounds(t *testing.T) {
	records := januaryRecords()
	if got := (Filter{Start: NewDate(2024, 1, 30)}).Apply(records); len(got) != 2 {
		t.Fatalf("open end: expected 2, got %d", len(got))
	}
	if got := (Filter{End: NewDate(2024, 1, 2)}).Apply(records); len(got) != 2 {
		t.Fatalf("open start: expected 2, got %d", len(got))
	}
}

func TestFilterReversedRangeMatchesNothing(t *testing.T) {
	f := Filter{Start: NewDate(2024, 1, 20), End: NewDate(2024, 1, 10)}
	if got := f.Apply(januaryRecords()); len(got) != 0 {
		t.Fatalf("reversed range matched %d records, want none", len(got))
	}
}

func TestFilterValidate(t *testing.T) {
	if err := (Filter{Start: NewDate(2024, 2, 1), End: NewDate(2024, 1, 1)}).Validate(); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected range error, got %v", err)
	}
	if err := (Filter{Categories: []Category{"Groceries"}}).Validate(); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected category error, got %v", err)
	}
	if err := (Filter{Categories: []Category{Food, Rent}}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

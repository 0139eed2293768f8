package core

import (
	"errors"
	"testing"
	"time"
)

func TestSummarizeJanuary(t *testing.T) {
	records := []Expense{
		{ID: "1", OwnerID: "u", Date: NewDate(2024, 1, 3), Category: Food, AmountPrimary: dec("100"), AmountSecondary: dec("267")},
		{ID: "2", OwnerID: "u", Date: NewDate(2024, 1, 15), Category: Food, AmountPrimary: dec("50"), AmountSecondary: dec("133.5")},
		{ID: "3", OwnerID: "u", Date: NewDate(2024, 1, 31), Category: Transport, AmountPrimary: dec("20"), AmountSecondary: dec("53.4")},
		// Outside the window on both sides.
		{ID: "4", OwnerID: "u", Date: NewDate(2023, 12, 31), Category: Food, AmountPrimary: dec("999"), AmountSecondary: dec("999")},
		{ID: "5", OwnerID: "u", Date: NewDate(2024, 2, 1), Category: Rent, AmountPrimary: dec("999"), AmountSecondary: dec("999")},
	}

	s := Summarize(records, Window{Year: 2024, Month: time.January})

	food, ok := s.Total(Food)
	if !ok || !food.Primary.Equal(dec("150")) || !food.Secondary.Equal(dec("400.5")) {
		t.Fatalf("unexpected food total: %+v", food)
	}
	transport, ok := s.Total(Transport)
	if !ok || !transport.Primary.Equal(dec("20")) || !transport.Secondary.Equal(dec("53.4")) {
		t.Fatalf("unexpected transport total: %+v", transport)
	}
	if _, ok := s.Total(Rent); ok {
		t.Fatalf("rent is outside the window")
	}
	if !s.TotalPrimary.Equal(dec("170")) || !s.TotalSecondary.Equal(dec("453.9")) {
		t.Fatalf("unexpected grand totals: %s / %s", s.TotalPrimary, s.TotalSecondary)
	}
	if s.Count != 3 {
		t.Fatalf("expected 3 records, got %d", s.Count)
	}
	if s.ByCategory[0].Category != Food || s.ByCategory[1].Category != Transport {
		t.Fatalf("expected first-occurrence order, got %+v", s.ByCategory)
	}

	shares, err := s.Shares()
	if err != nil {
		t.Fatalf("shares: %v", err)
	}
	want := map[Category]string{Food: "88.2", Transport: "11.8"}
	for _, sh := range shares {
		if got := sh.Percent.StringFixed(1); got != want[sh.Category] {
			t.Fatalf("%s share = %s, want %s", sh.Category, got, want[sh.Category])
		}
	}
}

func TestSummarizeSumsEachCurrencyIndependently(t *testing.T) {
	// The second record drifted: its secondary amount was edited alone.
	records := []Expense{
		{ID: "1", OwnerID: "u", Date: NewDate(2024, 3, 1), Category: Rent, AmountPrimary: dec("10"), AmountSecondary: dec("26.7")},
		{ID: "2", OwnerID: "u", Date: NewDate(2024, 3, 2), Category: Rent, AmountPrimary: dec("10"), AmountSecondary: dec("99")},
	}
	s := Summarize(records, Window{Year: 2024, Month: time.March})
	if !s.TotalSecondary.Equal(dec("125.7")) {
		t.Fatalf("secondary total should be the stored sum, got %s", s.TotalSecondary)
	}
}

func TestSummarizeEmptyReportsNoData(t *testing.T) {
	s := Summarize(nil, Window{Year: 2024, Month: time.January})
	if s.HasData() {
		t.Fatalf("empty summary should have no data")
	}
	if _, err := s.Shares(); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}

	zero := []Expense{{ID: "1", OwnerID: "u", Date: NewDate(2024, 1, 1), Category: Other, AmountPrimary: dec("0"), AmountSecondary: dec("0")}}
	if _, err := Summarize(zero, Window{Year: 2024, Month: time.January}).Shares(); !errors.Is(err, ErrNoData) {
		t.Fatalf("zero total should report no data, got %v", err)
	}
}

func TestWindowBounds(t *testing.T) {
	cases := []struct {
		w    Window
		last string
	}{
		{Window{2024, time.February}, "2024-02-29"},
		{Window{2023, time.February}, "2023-02-28"},
		{Window{2024, time.December}, "2024-12-31"},
	}
	for _, tc := range cases {
		if got := tc.w.LastDay().String(); got != tc.last {
			t.Fatalf("%v last day = %s, want %s", tc.w, got, tc.last)
		}
		if tc.w.FirstDay().Day() != 1 {
			t.Fatalf("first day should be 1")
		}
	}
	if w := CurrentWindow(time.Date(2025, 7, 19, 10, 0, 0, 0, time.UTC)); w.Year != 2025 || w.Month != time.July {
		t.Fatalf("unexpected current window %+v", w)
	}
	if err := (Window{Year: 2024, Month: 13}).Validate(); err == nil {
		t.Fatalf("expected invalid month")
	}
}

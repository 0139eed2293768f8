package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Window is the (month, year) pair a summary is computed over.
type Window struct {
	Year  int
	Month time.Month
}

// CurrentWindow returns the calendar month containing now.
func CurrentWindow(now time.Time) Window {
	return Window{Year: now.Year(), Month: now.Month()}
}

func (w Window) Validate() error {
	if w.Month < time.January || w.Month > time.December || w.Year < 1 {
		return ErrInvalidDate
	}
	return nil
}

func (w Window) FirstDay() Date {
	return NewDate(w.Year, int(w.Month), 1)
}

func (w Window) LastDay() Date {
	return Date{Time: w.FirstDay().AddDate(0, 1, -1)}
}

// Filter returns the date-range filter covering the whole month.
func (w Window) Filter() Filter {
	return Filter{Start: w.FirstDay(), End: w.LastDay()}
}

// CategoryTotal accumulates each currency from its own stored field; the
// secondary total is never derived by converting the primary one.
type CategoryTotal struct {
	Category  Category
	Primary   decimal.Decimal
	Secondary decimal.Decimal
}

// CategoryShare is a category's share of the month on the primary basis.
type CategoryShare struct {
	CategoryTotal
	Percent decimal.Decimal
}

// MonthSummary is a compact summary for a specific year+month.
type MonthSummary struct {
	Window         Window
	ByCategory     []CategoryTotal // first-occurrence order
	TotalPrimary   decimal.Decimal
	TotalSecondary decimal.Decimal
	Count          int
}

// Summarize groups the records dated inside w by category.
func Summarize(records []Expense, w Window) MonthSummary {
	s := MonthSummary{Window: w, TotalPrimary: decimal.Zero, TotalSecondary: decimal.Zero}
	index := make(map[Category]int)
	for _, e := range w.Filter().Apply(records) {
		i, ok := index[e.Category]
		if !ok {
			i = len(s.ByCategory)
			index[e.Category] = i
			s.ByCategory = append(s.ByCategory, CategoryTotal{Category: e.Category, Primary: decimal.Zero, Secondary: decimal.Zero})
		}
		s.ByCategory[i].Primary = s.ByCategory[i].Primary.Add(e.AmountPrimary)
		s.ByCategory[i].Secondary = s.ByCategory[i].Secondary.Add(e.AmountSecondary)
		s.Count++
	}
	for _, ct := range s.ByCategory {
		s.TotalPrimary = s.TotalPrimary.Add(ct.Primary)
		s.TotalSecondary = s.TotalSecondary.Add(ct.Secondary)
	}
	return s
}

// HasData is false when there is nothing to compute percentages over.
func (s MonthSummary) HasData() bool {
	return s.TotalPrimary.IsPositive()
}

// Total returns the category's totals, if the category occurred.
func (s MonthSummary) Total(c Category) (CategoryTotal, bool) {
	for _, ct := range s.ByCategory {
		if ct.Category == c {
			return ct, true
		}
	}
	return CategoryTotal{}, false
}

// Shares returns each category's percentage of TotalPrimary, rounded to two
// places. It reports ErrNoData instead of dividing by a zero total.
func (s MonthSummary) Shares() ([]CategoryShare, error) {
	if !s.HasData() {
		return nil, ErrNoData
	}
	hundred := decimal.NewFromInt(100)
	out := make([]CategoryShare, len(s.ByCategory))
	for i, ct := range s.ByCategory {
		out[i] = CategoryShare{
			CategoryTotal: ct,
			Percent:       ct.Primary.Mul(hundred).DivRound(s.TotalPrimary, AmountPlaces),
		}
	}
	return out, nil
}

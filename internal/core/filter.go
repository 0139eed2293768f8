package core

// Filter is view-layer state; applying it never mutates records.
// A zero Start or End leaves that side of the range open, and an empty
// Categories set matches every category.
type Filter struct {
	Start      Date
	End        Date
	Categories []Category
}

func (f Filter) Validate() error {
	if !f.Start.IsZero() && !f.End.IsZero() && f.Start.String() > f.End.String() {
		return ErrInvalidRange
	}
	for _, c := range f.Categories {
		if !c.Valid() {
			return ErrInvalidCategory
		}
	}
	return nil
}

// Match reports whether e is visible under f. Dates are compared on their
// ISO string form, which orders the same way as the calendar.
func (f Filter) Match(e Expense) bool {
	if len(f.Categories) > 0 && !containsCategory(f.Categories, e.Category) {
		return false
	}
	d := e.Date.String()
	if !f.Start.IsZero() && d < f.Start.String() {
		return false
	}
	if !f.End.IsZero() && d > f.End.String() {
		return false
	}
	return true
}

// Apply returns the visible subset, preserving input order.
func (f Filter) Apply(records []Expense) []Expense {
	out := make([]Expense, 0, len(records))
	for _, e := range records {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

func containsCategory(set []Category, c Category) bool {
	for _, v := range set {
		if v == c {
			return true
		}
	}
	return false
}

package core

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const MaxDescriptionLen = 200

// DateLayout is the ISO calendar-date form used for storage, filtering and export.
const DateLayout = "2006-01-02"

type Category string

const (
	Food            Category = "Food"
	Transport       Category = "Transport"
	Equipment       Category = "Equipment"
	Travel          Category = "Travel"
	Entertainment   Category = "Entertainment"
	Clothing        Category = "Clothing"
	Rent            Category = "Rent"
	Medical         Category = "Medical"
	Beauty          Category = "Beauty"
	SelfDevelopment Category = "Self-Development"
	Investment      Category = "Investment"
	ElectricBill    Category = "Electric Bill"
	WaterBill       Category = "Water Bill"
	InternetPhone   Category = "Internet & Phone"
	Other           Category = "Other"
)

var categories = []Category{
	Food, Transport, Equipment, Travel, Entertainment, Clothing, Rent, Medical,
	Beauty, SelfDevelopment, Investment, ElectricBill, WaterBill, InternetPhone, Other,
}

// Categories returns the closed category enumeration in display order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

func (c Category) Valid() bool {
	for _, v := range categories {
		if c == v {
			return true
		}
	}
	return false
}

// ParseCategory matches the exact literal name of a category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.TrimSpace(s))
	if !c.Valid() {
		return "", ErrInvalidCategory
	}
	return c, nil
}

type (
	// Date is a calendar date; the time-of-day part is always midnight UTC.
	Date struct {
		time.Time
	}

	Expense struct {
		ID              string
		OwnerID         string
		Date            Date
		Category        Category
		Description     string
		AmountPrimary   decimal.Decimal
		AmountSecondary decimal.Decimal
		CreatedAt       time.Time
		UpdatedAt       time.Time
	}

	// NewExpense carries the caller-supplied fields of a record to create.
	NewExpense struct {
		OwnerID         string
		Date            Date
		Category        Category
		Description     string
		AmountPrimary   decimal.Decimal
		AmountSecondary decimal.Decimal
	}

	// ExpensePatch lists the fields an update may change. Nil means unchanged.
	ExpensePatch struct {
		Date            *Date
		Category        *Category
		Description     *string
		AmountPrimary   *decimal.Decimal
		AmountSecondary *decimal.Decimal
	}

	Profile struct {
		UserID      string
		Connections []string
		CreatedAt   time.Time
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses the ISO form YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// DateOf truncates t to its calendar date in t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// MarshalJSON overrides the promoted time.Time encoding.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return ErrInvalidDate
	}
	return d.UnmarshalText([]byte(s))
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func validateFields(date Date, category Category, description string, primary, secondary decimal.Decimal) error {
	if err := date.Validate(); err != nil {
		return err
	}
	if !category.Valid() {
		return ErrInvalidCategory
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLen {
		return ErrDescriptionLong
	}
	if primary.IsNegative() || secondary.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func (e NewExpense) Validate() error {
	if strings.TrimSpace(e.OwnerID) == "" {
		return ErrEmptyOwner
	}
	return validateFields(e.Date, e.Category, e.Description, e.AmountPrimary, e.AmountSecondary)
}

// Validate checks a record read back from a store.
func (e Expense) Validate() error {
	if e.ID == "" || e.OwnerID == "" {
		return ErrMalformedRecord
	}
	return validateFields(e.Date, e.Category, e.Description, e.AmountPrimary, e.AmountSecondary)
}

func (p ExpensePatch) Validate() error {
	if p.Date != nil {
		if err := p.Date.Validate(); err != nil {
			return err
		}
	}
	if p.Category != nil && !p.Category.Valid() {
		return ErrInvalidCategory
	}
	if p.Description != nil && utf8.RuneCountInString(*p.Description) > MaxDescriptionLen {
		return ErrDescriptionLong
	}
	if p.AmountPrimary != nil && p.AmountPrimary.IsNegative() {
		return ErrInvalidAmount
	}
	if p.AmountSecondary != nil && p.AmountSecondary.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func (p ExpensePatch) IsEmpty() bool {
	return p.Date == nil && p.Category == nil && p.Description == nil &&
		p.AmountPrimary == nil && p.AmountSecondary == nil
}

// Apply returns e with the patch fields overwritten.
func (p ExpensePatch) Apply(e Expense) Expense {
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.AmountPrimary != nil {
		e.AmountPrimary = *p.AmountPrimary
	}
	if p.AmountSecondary != nil {
		e.AmountSecondary = *p.AmountSecondary
	}
	return e
}

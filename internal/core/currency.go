package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Currency string

const (
	Primary   Currency = "PHP"
	Secondary Currency = "JPY"
)

func ParseCurrency(s string) (Currency, error) {
	switch Currency(strings.ToUpper(strings.TrimSpace(s))) {
	case Primary:
		return Primary, nil
	case Secondary:
		return Secondary, nil
	}
	return "", fmt.Errorf("%w: unknown currency %q", ErrValidation, s)
}

// Fixed exchange rates. They are intentionally not exact inverses, so a
// round trip through both conversions loses value (100 -> 267.00 -> 98.79).
var (
	DefaultPrimaryToSecondary = decimal.RequireFromString("2.67")
	DefaultSecondaryToPrimary = decimal.RequireFromString("0.37")
)

// Converter holds the two independently configured multiplicative rates.
type Converter struct {
	PrimaryToSecondary decimal.Decimal
	SecondaryToPrimary decimal.Decimal
}

func DefaultConverter() Converter {
	return Converter{
		PrimaryToSecondary: DefaultPrimaryToSecondary,
		SecondaryToPrimary: DefaultSecondaryToPrimary,
	}
}

func (c Converter) Validate() error {
	if !c.PrimaryToSecondary.IsPositive() || !c.SecondaryToPrimary.IsPositive() {
		return fmt.Errorf("%w: exchange rates must be positive", ErrValidation)
	}
	return nil
}

// Convert returns amount expressed in currency to, rounded to two places.
func (c Converter) Convert(amount decimal.Decimal, from, to Currency) decimal.Decimal {
	switch {
	case from == to:
		return amount.Round(AmountPlaces)
	case from == Primary:
		return amount.Mul(c.PrimaryToSecondary).Round(AmountPlaces)
	default:
		return amount.Mul(c.SecondaryToPrimary).Round(AmountPlaces)
	}
}

func (c Converter) ToSecondary(primary decimal.Decimal) decimal.Decimal {
	return c.Convert(primary, Primary, Secondary)
}

func (c Converter) ToPrimary(secondary decimal.Decimal) decimal.Decimal {
	return c.Convert(secondary, Secondary, Primary)
}

// AmountPair is the state of the two amount fields of an entry form.
type AmountPair struct {
	Primary   decimal.Decimal
	Secondary decimal.Decimal
}

// EditPrimary sets the primary amount from raw input and recomputes the
// secondary one. The recompute never feeds back into the primary field.
func (c Converter) EditPrimary(pair AmountPair, raw string) (AmountPair, error) {
	v, err := ParseAmount(raw)
	if err != nil {
		return pair, err
	}
	return AmountPair{Primary: v, Secondary: c.ToSecondary(v)}, nil
}

// EditSecondary is EditPrimary for the secondary field.
func (c Converter) EditSecondary(pair AmountPair, raw string) (AmountPair, error) {
	v, err := ParseAmount(raw)
	if err != nil {
		return pair, err
	}
	return AmountPair{Primary: c.ToPrimary(v), Secondary: v}, nil
}

// Edit dispatches to EditPrimary or EditSecondary.
func (c Converter) Edit(pair AmountPair, field Currency, raw string) (AmountPair, error) {
	if field == Secondary {
		return c.EditSecondary(pair, raw)
	}
	return c.EditPrimary(pair, raw)
}

// EditPolicy decides what happens when an update changes only one of the
// two amounts of a stored record.
type EditPolicy string

const (
	// PolicyDrift stores the edited amount alone; the pair may drift apart.
	PolicyDrift EditPolicy = "drift"
	// PolicyRecompute recomputes the untouched amount from the edited one.
	PolicyRecompute EditPolicy = "recompute"
)

func ParseEditPolicy(s string) (EditPolicy, error) {
	switch p := EditPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyDrift, PolicyRecompute:
		return p, nil
	case "":
		return PolicyDrift, nil
	}
	return "", fmt.Errorf("%w: unknown amount edit policy %q", ErrValidation, s)
}

// ApplyPolicy fills in the missing amount of a single-amount patch when the
// policy asks for it. Patches touching both or neither amount are unchanged.
func (c Converter) ApplyPolicy(p ExpensePatch, policy EditPolicy) ExpensePatch {
	if policy != PolicyRecompute {
		return p
	}
	switch {
	case p.AmountPrimary != nil && p.AmountSecondary == nil:
		v := c.ToSecondary(*p.AmountPrimary)
		p.AmountSecondary = &v
	case p.AmountSecondary != nil && p.AmountPrimary == nil:
		v := c.ToPrimary(*p.AmountSecondary)
		p.AmountPrimary = &v
	}
	return p
}

package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ledger/internal/core"
)

const (
	viewSelf    = "self"
	viewPartner = "partner"
)

// ParseViewParam returns the requested ledger, self by default.
func ParseViewParam(query url.Values) (string, error) {
	switch v := strings.ToLower(strings.TrimSpace(query.Get("view"))); v {
	case "", viewSelf:
		return viewSelf, nil
	case viewPartner:
		return viewPartner, nil
	default:
		return "", fmt.Errorf("%w: unknown view %q", core.ErrValidation, v)
	}
}

// ParseFilter reads start, end and any number of category parameters.
// Missing bounds stay open.
func ParseFilter(query url.Values) (core.Filter, error) {
	var f core.Filter
	var err error
	if v := strings.TrimSpace(query.Get("start")); v != "" {
		if f.Start, err = core.ParseDate(v); err != nil {
			return core.Filter{}, err
		}
	}
	if v := strings.TrimSpace(query.Get("end")); v != "" {
		if f.End, err = core.ParseDate(v); err != nil {
			return core.Filter{}, err
		}
	}
	for _, raw := range query["category"] {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		c, err := core.ParseCategory(raw)
		if err != nil {
			return core.Filter{}, fmt.Errorf("%w: %q", err, raw)
		}
		f.Categories = append(f.Categories, c)
	}
	if err := f.Validate(); err != nil {
		return core.Filter{}, err
	}
	return f, nil
}

// ParseWindow reads year and month, defaulting to the month containing now.
// Unlike form defaults, malformed values are rejected.
func ParseWindow(query url.Values, now time.Time) (core.Window, error) {
	w := core.CurrentWindow(now)
	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return core.Window{}, fmt.Errorf("%w: year %q", core.ErrInvalidDate, v)
		}
		w.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return core.Window{}, fmt.Errorf("%w: month %q", core.ErrInvalidDate, v)
		}
		w.Month = time.Month(m)
	}
	if err := w.Validate(); err != nil {
		return core.Window{}, err
	}
	return w, nil
}

// amountField accepts an amount as a JSON string ("12,34") or number (12.34)
// and keeps the raw text for core.ParseAmount.
type amountField string

func (a *amountField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return core.ErrInvalidAmount
		}
		*a = amountField(s)
		return nil
	}
	*a = amountField(b)
	return nil
}

type createExpenseRequest struct {
	Date            string       `json:"date"`
	Category        string       `json:"category"`
	Description     string       `json:"description"`
	AmountPrimary   *amountField `json:"amountPrimary"`
	AmountSecondary *amountField `json:"amountSecondary"`
}

// toNewExpense fills in a missing date with today and a missing amount by
// converting the other one.
func (req createExpenseRequest) toNewExpense(conv core.Converter, today core.Date) (core.NewExpense, error) {
	e := core.NewExpense{
		Date:        today,
		Description: sanitizeInput(req.Description),
	}
	var err error
	if strings.TrimSpace(req.Date) != "" {
		if e.Date, err = core.ParseDate(req.Date); err != nil {
			return core.NewExpense{}, err
		}
	}
	if e.Category, err = core.ParseCategory(req.Category); err != nil {
		return core.NewExpense{}, err
	}

	var pair core.AmountPair
	switch {
	case req.AmountPrimary != nil && req.AmountSecondary != nil:
		if pair.Primary, err = core.ParseAmount(string(*req.AmountPrimary)); err != nil {
			return core.NewExpense{}, err
		}
		if pair.Secondary, err = core.ParseAmount(string(*req.AmountSecondary)); err != nil {
			return core.NewExpense{}, err
		}
	case req.AmountPrimary != nil:
		pair, err = conv.EditPrimary(pair, string(*req.AmountPrimary))
	case req.AmountSecondary != nil:
		pair, err = conv.EditSecondary(pair, string(*req.AmountSecondary))
	default:
		err = fmt.Errorf("%w: an amount in %s or %s is required", core.ErrInvalidAmount, core.Primary, core.Secondary)
	}
	if err != nil {
		return core.NewExpense{}, err
	}
	e.AmountPrimary, e.AmountSecondary = pair.Primary, pair.Secondary
	return e, nil
}

type updateExpenseRequest struct {
	Date            *string      `json:"date"`
	Category        *string      `json:"category"`
	Description     *string      `json:"description"`
	AmountPrimary   *amountField `json:"amountPrimary"`
	AmountSecondary *amountField `json:"amountSecondary"`
}

func (req updateExpenseRequest) toPatch() (core.ExpensePatch, error) {
	var p core.ExpensePatch
	if req.Date != nil {
		d, err := core.ParseDate(*req.Date)
		if err != nil {
			return p, err
		}
		p.Date = &d
	}
	if req.Category != nil {
		c, err := core.ParseCategory(*req.Category)
		if err != nil {
			return p, err
		}
		p.Category = &c
	}
	if req.Description != nil {
		d := sanitizeInput(*req.Description)
		p.Description = &d
	}
	if req.AmountPrimary != nil {
		v, err := core.ParseAmount(string(*req.AmountPrimary))
		if err != nil {
			return p, err
		}
		p.AmountPrimary = &v
	}
	if req.AmountSecondary != nil {
		v, err := core.ParseAmount(string(*req.AmountSecondary))
		if err != nil {
			return p, err
		}
		p.AmountSecondary = &v
	}
	if p.IsEmpty() {
		return p, fmt.Errorf("%w: nothing to update", core.ErrValidation)
	}
	return p, nil
}

type convertRequest struct {
	From   string      `json:"from"`
	Amount amountField `json:"amount"`
}

type connectionRequest struct {
	TargetID string `json:"targetId"`
}

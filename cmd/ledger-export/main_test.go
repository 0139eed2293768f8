package main

import (
	"errors"
	"testing"

	"ledger/internal/core"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name     string
		opts     options
		wantErr  error
		wantCats int
	}{
		{name: "open filter", opts: options{}},
		{name: "range and categories", opts: options{start: "2024-01-01", end: "2024-01-31", categories: "Food, Rent,"}, wantCats: 2},
		{name: "bad start", opts: options{start: "2024-13-01"}, wantErr: core.ErrInvalidDate},
		{name: "reversed range", opts: options{start: "2024-02-01", end: "2024-01-01"}, wantErr: core.ErrInvalidRange},
		{name: "unknown category", opts: options{categories: "Food,Snacks"}, wantErr: core.ErrInvalidCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := parseFilter(tt.opts)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("parseFilter() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && len(f.Categories) != tt.wantCats {
				t.Errorf("categories = %v, want %d", f.Categories, tt.wantCats)
			}
		})
	}
}

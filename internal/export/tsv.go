// Package export renders visible records as tab-separated rows and ships
// them to a file, an HTTP response or a Google Sheet.
package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"ledger/internal/core"
)

// ContentType is the media type of WriteTSV output.
const ContentType = "text/tab-separated-values; charset=utf-8"

// Row renders one record in the fixed column order date, category,
// description, amountPrimary, amountSecondary.
func Row(e core.Expense) []string {
	return []string{
		e.Date.String(),
		string(e.Category),
		cleanField(e.Description),
		core.FormatAmount(e.AmountPrimary),
		core.FormatAmount(e.AmountSecondary),
	}
}

func Rows(records []core.Expense) [][]string {
	rows := make([][]string, len(records))
	for i, e := range records {
		rows[i] = Row(e)
	}
	return rows
}

// WriteTSV writes one line per record with no header row. Fields are never
// quoted; Row already keeps them free of tabs and line breaks.
func WriteTSV(w io.Writer, records []core.Expense) error {
	bw := bufio.NewWriter(w)
	for _, e := range records {
		if _, err := bw.WriteString(strings.Join(Row(e), "\t") + "\n"); err != nil {
			return fmt.Errorf("write tsv: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write tsv: %w", err)
	}
	return nil
}

// Filename embeds the filter bounds, e.g. expenses_2024-01-01_2024-01-31.tsv.
// An open bound is written as "all".
func Filename(f core.Filter) string {
	return fmt.Sprintf("expenses_%s_%s.tsv", bound(f.Start), bound(f.End))
}

func bound(d core.Date) string {
	if d.IsZero() {
		return "all"
	}
	return d.String()
}

// cleanField keeps a free-text value on one line and inside one column.
func cleanField(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\t', '\r', '\n':
			return ' '
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

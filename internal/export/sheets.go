package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"ledger/internal/core"
	"ledger/internal/log"
)

// NewSheetsService builds a Sheets client from service account credentials,
// preferring inline JSON over a credentials file.
func NewSheetsService(ctx context.Context, credentialsJSON, credentialsFile string, opts ...goption.ClientOption) (*gsheet.Service, error) {
	var creds []byte
	switch {
	case strings.TrimSpace(credentialsJSON) != "":
		creds = []byte(credentialsJSON)
	case strings.TrimSpace(credentialsFile) != "":
		b, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		creds = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	opts = append([]goption.ClientOption{
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, opts...)
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// SheetsSink appends export rows to the first five columns of a sheet.
type SheetsSink struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger
}

func NewSheetsSink(svc *gsheet.Service, spreadsheetID, sheetName string, logger *log.Logger) *SheetsSink {
	if logger == nil {
		logger = log.Discard()
	}
	return &SheetsSink{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger.WithComponent(log.ComponentExport),
	}
}

// Append writes records as raw values below the existing data. An empty
// slice is a no-op.
func (s *SheetsSink) Append(ctx context.Context, records []core.Expense) error {
	if len(records) == 0 {
		return nil
	}

	rng := a1Range(s.sheetName, "A:E")
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, rng, &gsheet.ValueRange{Values: cells(records)}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append rows to %s: %w", rng, err)
	}

	s.logger.InfoContext(ctx, "Exported rows to Google Sheets",
		log.FieldOperation, log.OpExport,
		log.FieldCount, len(records),
		"range", rng)
	return nil
}

// Replace overwrites ownerID's mirror tab with records, creating the tab on
// first use. An empty slice leaves the tab empty.
func (s *SheetsSink) Replace(ctx context.Context, ownerID string, records []core.Expense) error {
	title := MirrorTitle(s.sheetName, ownerID)
	if err := s.ensureSheet(ctx, title); err != nil {
		return err
	}

	rng := a1Range(title, "A:E")
	if _, err := s.svc.Spreadsheets.Values.Clear(s.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	if len(records) > 0 {
		_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, a1Range(title, "A1"), &gsheet.ValueRange{Values: cells(records)}).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("write %s: %w", rng, err)
		}
	}

	s.logger.InfoContext(ctx, "Mirrored ledger to Google Sheets",
		log.FieldOwnerID, ownerID,
		log.FieldCount, len(records),
		"sheet", title)
	return nil
}

func (s *SheetsSink) ensureSheet(ctx context.Context, title string) error {
	ss, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		}},
	}
	if _, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %q: %w", title, err)
	}
	s.logger.InfoContext(ctx, "Created mirror sheet", "sheet", title)
	return nil
}

const maxSheetTitle = 100

// MirrorTitle names the tab holding ownerID's ledger, e.g. "Expenses alice".
// Characters Sheets rejects in tab names are replaced with '_'.
func MirrorTitle(prefix, ownerID string) string {
	title := strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', '*', '?', ':', '/', '\\':
			return '_'
		}
		return r
	}, strings.TrimSpace(prefix+" "+ownerID))
	if r := []rune(title); len(r) > maxSheetTitle {
		title = string(r[:maxSheetTitle])
	}
	return title
}

// a1Range quotes title so names with spaces or quotes stay valid A1 notation.
func a1Range(title, cellRange string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'!" + cellRange
}

func cells(records []core.Expense) [][]interface{} {
	values := make([][]interface{}, len(records))
	for i, row := range Rows(records) {
		c := make([]interface{}, len(row))
		for j, v := range row {
			c[j] = v
		}
		values[i] = c
	}
	return values
}

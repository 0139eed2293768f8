// Command ledger-export writes one user's filtered ledger to a TSV file or
// appends it to a Google Sheet.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"ledger/internal/cli"
	"ledger/internal/config"
	"ledger/internal/core"
	"ledger/internal/export"
	"ledger/internal/ledger"
	"ledger/internal/log"
)

type options struct {
	userID     string
	partner    bool
	start      string
	end        string
	categories string
	out        string
	sheets     bool
}

func main() {
	cli.LoadEnvFile()

	var opts options
	flag.StringVar(&opts.userID, "user", "", "user id whose session runs the export (required)")
	flag.BoolVar(&opts.partner, "partner", false, "export the partner's ledger instead of the user's own")
	flag.StringVar(&opts.start, "start", "", "first date to include, YYYY-MM-DD")
	flag.StringVar(&opts.end, "end", "", "last date to include, YYYY-MM-DD")
	flag.StringVar(&opts.categories, "category", "", "comma-separated categories to include")
	flag.StringVar(&opts.out, "out", "", "output file; defaults to expenses_<start>_<end>.tsv, '-' writes to stdout")
	flag.BoolVar(&opts.sheets, "sheets", false, "append rows to the configured Google Sheet instead of writing a file")
	flag.Parse()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg).WithComponent(log.ComponentExport)

	if err := run(cfg, opts, logger); err != nil {
		logger.Error("Export failed", log.FieldOperation, log.OpExport, log.FieldError, err.Error())
		os.Exit(1)
	}
}

func run(cfg *config.Config, opts options, logger *log.Logger) error {
	if strings.TrimSpace(opts.userID) == "" {
		return errors.New("-user is required")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if opts.sheets {
		if err := cfg.ValidateSheets(); err != nil {
			return err
		}
	}
	filter, err := parseFilter(opts)
	if err != nil {
		return err
	}
	conv, err := cfg.Converter()
	if err != nil {
		return err
	}

	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	be, err := cli.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer be.Close()
	directory, _ := cli.NewDirectory(cfg, be, logger)

	view := ledger.NewView(ledger.Session{UserID: opts.userID}, be.Records,
		ledger.WithConverter(conv),
		ledger.WithEditPolicy(cfg.EditPolicy()),
		ledger.WithLogger(logger))
	defer view.Close()

	if opts.partner {
		err = view.OpenPartner(ctx, directory)
	} else {
		err = view.OpenSelf(ctx)
	}
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}

	records, err := view.Visible(filter)
	if err != nil {
		return err
	}

	if opts.sheets {
		svc, err := export.NewSheetsService(ctx, cfg.GoogleServiceAccountJSON, cfg.GoogleServiceAccountFile)
		if err != nil {
			return err
		}
		sink := export.NewSheetsSink(svc, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, logger)
		return sink.Append(ctx, records)
	}

	path := opts.out
	if path == "" {
		path = export.Filename(filter)
	}
	if err := writeFile(path, records); err != nil {
		return err
	}
	logger.Info("Expenses exported",
		log.FieldOperation, log.OpExport,
		log.FieldViewing, view.Viewing(),
		log.FieldCount, len(records),
		"path", path)
	return nil
}

func parseFilter(opts options) (core.Filter, error) {
	var f core.Filter
	var err error
	if opts.start != "" {
		if f.Start, err = core.ParseDate(opts.start); err != nil {
			return f, fmt.Errorf("-start: %w", err)
		}
	}
	if opts.end != "" {
		if f.End, err = core.ParseDate(opts.end); err != nil {
			return f, fmt.Errorf("-end: %w", err)
		}
	}
	for _, raw := range strings.Split(opts.categories, ",") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		c, err := core.ParseCategory(raw)
		if err != nil {
			return f, fmt.Errorf("-category %q: %w", raw, err)
		}
		f.Categories = append(f.Categories, c)
	}
	return f, f.Validate()
}

func writeFile(path string, records []core.Expense) error {
	var w io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		defer f.Close()
		w = f
	}
	return export.WriteTSV(w, records)
}

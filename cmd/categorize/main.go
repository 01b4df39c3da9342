// Command categorize runs one decode and categorize pass over a sheet export
// and writes the result. It uses the same pipeline as the service, with the
// clock pinned to the chosen day.
//
// Usage:
//
//	go run ./cmd/categorize -csv data/sheet.csv -today 2025-01-01
//	go run ./cmd/categorize -url "$SHEET_URL" -format xlsx -out sites.xlsx
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/site-fueling-service/internal/adapter/sheet"
	"github.com/couchcryptid/site-fueling-service/internal/adapter/xlsx"
	"github.com/couchcryptid/site-fueling-service/internal/domain"
	"github.com/couchcryptid/site-fueling-service/internal/observability"
	"github.com/couchcryptid/site-fueling-service/internal/pipeline"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "categorize:", err)
		os.Exit(1)
	}
}

type options struct {
	csvPath   string
	url       string
	today     string
	format    string
	out       string
	aliases   string
	timezone  string
	farFuture string
	timeout   time.Duration
	verbose   bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("categorize", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.csvPath, "csv", "", "path to a local CSV export")
	fs.StringVar(&o.url, "url", "", "published CSV URL to fetch")
	fs.StringVar(&o.today, "today", "", "reference day as YYYY-MM-DD (default: current day)")
	fs.StringVar(&o.format, "format", "json", "output format: json, csv or xlsx")
	fs.StringVar(&o.out, "out", "", "output file (default: stdout)")
	fs.StringVar(&o.aliases, "aliases", "", "YAML alias override file")
	fs.StringVar(&o.timezone, "timezone", "", "IANA time zone for dates (default: local)")
	fs.StringVar(&o.farFuture, "far-future", "", "placement of sites beyond three days: unscheduled or coming_in_3_days")
	fs.DurationVar(&o.timeout, "timeout", 8*time.Second, "fetch timeout for -url")
	fs.BoolVar(&o.verbose, "v", false, "log skipped rows and parse problems")
	if err := fs.Parse(args); err != nil {
		return o, err
	}

	if (o.csvPath == "") == (o.url == "") {
		fs.Usage()
		return o, errors.New("exactly one of -csv or -url is required")
	}
	switch o.format {
	case "json", "csv", "xlsx":
	default:
		return o, fmt.Errorf("unknown format %q", o.format)
	}
	if o.format == "xlsx" && o.out == "" {
		return o, errors.New("-format xlsx requires -out")
	}
	return o, nil
}

func run(args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	loc := time.Local
	if o.timezone != "" {
		if loc, err = time.LoadLocation(o.timezone); err != nil {
			return fmt.Errorf("invalid -timezone: %w", err)
		}
	}
	farFuture, err := domain.ParseFarFuturePolicy(o.farFuture)
	if err != nil {
		return fmt.Errorf("invalid -far-future: %w", err)
	}
	aliases, err := domain.LoadAliases(o.aliases)
	if err != nil {
		return err
	}

	now := time.Now().In(loc)
	if o.today != "" {
		if now, err = time.ParseInLocation(domain.DateLayout, o.today, loc); err != nil {
			return fmt.Errorf("invalid -today: %w", err)
		}
	}

	var src pipeline.Source = sheet.FileSource{Path: o.csvPath}
	if o.url != "" {
		src = sheet.NewFetcher(o.url, o.timeout, logger)
	}

	p := pipeline.New(src,
		domain.NewDecoder(aliases, logger),
		domain.NewCategorizer(loc, farFuture, logger),
		pipeline.Options{Clock: clockwork.NewFakeClockAt(now)},
		logger,
		observability.NewMetricsForTesting(),
	)

	// Ctrl-C abandons a slow -url fetch.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	snap, err := p.Refresh(ctx)
	if err != nil {
		return err
	}
	if !snap.Live() {
		return errors.New(snap.Advisory)
	}

	if o.out == "" {
		err = write(stdout, o.format, snap)
	} else {
		err = writeFile(o.out, o.format, snap)
	}
	if err != nil {
		return err
	}
	printStats(stderr, snap)
	return nil
}

// writeFile reports a failed Close, since buffered data may be lost there.
func writeFile(path, format string, snap *pipeline.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := write(f, format, snap); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

type result struct {
	Today      string                   `json:"today"`
	Categories domain.CategorizedResult `json:"categories"`
	Summary    domain.Summary           `json:"summary"`
}

func write(w io.Writer, format string, snap *pipeline.Snapshot) error {
	switch format {
	case "csv":
		return domain.ExportCSV(w, snap.All())
	case "xlsx":
		return xlsx.Write(w, snap.All())
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result{
			Today:      snap.Today.Format(domain.DateLayout),
			Categories: snap.Result,
			Summary:    snap.Summary,
		})
	}
}

func printStats(w io.Writer, snap *pipeline.Snapshot) {
	s := snap.Summary
	fmt.Fprintf(w, "\n=== %s: %d sites ===\n", snap.Today.Format(domain.DateLayout), s.Total)
	for _, c := range domain.Categories {
		fmt.Fprintf(w, "  %-15s %d\n", c, len(snap.Result[c]))
	}
	fmt.Fprintf(w, "  %-15s %.1f%%\n", "on time", s.OnTimePercent)
}

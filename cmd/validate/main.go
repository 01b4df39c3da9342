// Command validate checks a sheet export for problems that the service would
// silently absorb: unresolved columns, short rows, unparseable dates, bad
// coordinates, and rows that do not survive a CSV export round trip.
//
// Usage:
//
//	go run ./cmd/validate -csv data/sheet.csv
//	go run ./cmd/validate -url "$SHEET_URL" -aliases aliases.yaml
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/site-fueling-service/internal/adapter/sheet"
	"github.com/couchcryptid/site-fueling-service/internal/domain"
	"github.com/couchcryptid/site-fueling-service/internal/pipeline"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	csvPath := flag.String("csv", "", "path to a local CSV export")
	url := flag.String("url", "", "published CSV URL to fetch")
	aliasesPath := flag.String("aliases", "", "YAML alias override file")
	flag.Parse()

	if (*csvPath == "") == (*url == "") {
		flag.Usage()
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var src pipeline.Source = sheet.FileSource{Path: *csvPath}
	if *url != "" {
		src = sheet.NewFetcher(*url, 30*time.Second, logger)
	}

	text, err := src.Fetch(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
	aliases, err := domain.LoadAliases(*aliasesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}

	os.Exit(run(os.Stdout, text, aliases))
}

// sheetLine is one non-empty data line, split but not yet mapped to a site.
type sheetLine struct {
	num    int
	values []string
}

func run(out io.Writer, text string, aliases domain.AliasTable) int {
	text = strings.TrimPrefix(text, "\ufeff")
	fmt.Fprintln(out, "=== Fueling Sheet Validation ===")
	fmt.Fprintln(out)

	header, lines := splitSheet(text, aliases)
	if header == nil {
		fmt.Fprintln(out, "FATAL: sheet has no header and data lines")
		return 1
	}

	phases := []*phase{
		validateHeader(header),
		validateRowWidth(header, lines),
		validateDates(text, aliases),
		validateCoordinates(text, aliases),
		validateExportRoundTrip(text, aliases),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-32s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Columns: %d, data lines: %d\n", len(header.Names), len(lines))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// newDecoder is shared by the phases that go through the real decode path.
var newDecoder = func(aliases domain.AliasTable) *domain.Decoder {
	return domain.NewDecoder(aliases, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func splitSheet(text string, aliases domain.AliasTable) (*domain.Header, []sheetLine) {
	var header *domain.Header
	var lines []sheetLine
	for i, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if header == nil {
			header = domain.NewHeader(domain.SplitLine(line), aliases)
			continue
		}
		lines = append(lines, sheetLine{num: i + 1, values: domain.SplitLine(line)})
	}
	if len(lines) == 0 {
		return nil, nil
	}
	return header, lines
}

// ── Phases ──

func validateHeader(h *domain.Header) *phase {
	p := &phase{name: "Header resolution"}
	for _, f := range []domain.Field{domain.FieldSiteName, domain.FieldScheduledDate} {
		if !h.Resolved(f) {
			p.errorf("no column for %s (header: %s)", f, strings.Join(h.Names, ", "))
		}
	}
	return p
}

func validateRowWidth(h *domain.Header, lines []sheetLine) *phase {
	p := &phase{name: "Row width"}
	for _, l := range lines {
		if len(l.values) < h.MinFields() {
			p.errorf("line %d: %d fields, need %d (row will be skipped)", l.num, len(l.values), h.MinFields())
		}
	}
	return p
}

func validateDates(text string, aliases domain.AliasTable) *phase {
	p := &phase{name: "Schedule dates"}
	rows, err := newDecoder(aliases).Decode(text)
	if err != nil {
		p.errorf("decode: %v", err)
		return p
	}
	for _, row := range rows {
		raw := strings.TrimSpace(row.Field(domain.FieldScheduledDate))
		if raw == "" {
			continue
		}
		if domain.ParseScheduleDate(raw, time.UTC) == nil {
			p.errorf("line %d: unparseable date %q (site will be unscheduled)", row.Line, raw)
		}
	}
	return p
}

func validateCoordinates(text string, aliases domain.AliasTable) *phase {
	p := &phase{name: "Coordinates"}
	rows, err := newDecoder(aliases).Decode(text)
	if err != nil {
		p.errorf("decode: %v", err)
		return p
	}
	cat := domain.NewCategorizer(time.UTC, domain.FarFutureUnscheduled, slog.New(slog.NewTextHandler(io.Discard, nil)))
	for _, row := range rows {
		site, ok := cat.Extract(row)
		if !ok {
			continue
		}
		switch {
		case (site.Latitude == nil) != (site.Longitude == nil):
			p.errorf("line %d: %q has only one coordinate", row.Line, site.SiteName)
		case site.Latitude != nil && (*site.Latitude < -90 || *site.Latitude > 90):
			p.errorf("line %d: %q latitude %v out of range", row.Line, site.SiteName, *site.Latitude)
		case site.Longitude != nil && (*site.Longitude < -180 || *site.Longitude > 180):
			p.errorf("line %d: %q longitude %v out of range", row.Line, site.SiteName, *site.Longitude)
		}
	}
	return p
}

func validateExportRoundTrip(text string, aliases domain.AliasTable) *phase {
	p := &phase{name: "Export round trip"}
	dec := newDecoder(aliases)
	rows, err := dec.Decode(text)
	if err != nil {
		p.errorf("decode: %v", err)
		return p
	}
	today := time.Now().UTC()
	cat := domain.NewCategorizer(time.UTC, domain.FarFutureUnscheduled, slog.New(slog.NewTextHandler(io.Discard, nil)))
	sites := cat.Categorize(rows, today).All()

	var buf bytes.Buffer
	if err := domain.ExportCSV(&buf, sites); err != nil {
		p.errorf("export: %v", err)
		return p
	}
	if len(sites) == 0 {
		return p
	}

	back, err := newDecoder(nil).Decode(buf.String())
	if err != nil {
		p.errorf("re-decode export: %v", err)
		return p
	}
	if len(back) != len(sites) {
		p.errorf("exported %d sites, re-decoded %d", len(sites), len(back))
		return p
	}
	for i, s := range sites {
		got := back[i]
		if got.Get("Site Name") != s.SiteName || got.Get("Date") != s.DateString() || got.Get("Status") != string(s.Status) {
			p.errorf("line %d: %q did not survive export (got %q, %q, %q)",
				s.ID, s.SiteName, got.Get("Site Name"), got.Get("Date"), got.Get("Status"))
		}
	}
	return p
}

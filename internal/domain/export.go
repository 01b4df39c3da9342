package domain

import (
	"fmt"
	"io"
	"strings"

	"github.com/jszwec/csvutil"
)

// ExportRow is one line of the dashboard CSV download.
type ExportRow struct {
	SiteName string `csv:"Site Name"`
	Date     string `csv:"Date"`
	Status   string `csv:"Status"`
}

// ExportRows converts sites to download rows, keeping order.
func ExportRows(sites []Site) []ExportRow {
	rows := make([]ExportRow, 0, len(sites))
	for _, s := range sites {
		rows = append(rows, ExportRow{
			SiteName: s.SiteName,
			Date:     s.DateString(),
			Status:   string(s.Status),
		})
	}
	return rows
}

// ExportCSV writes sites as a CSV download with every field double quoted:
//
//	"Site Name","Date","Status"
//	"GSM Downtown","2025-01-01","today"
func ExportCSV(w io.Writer, sites []Site) error {
	enc := csvutil.NewEncoder(&quotedWriter{w: w})
	if err := enc.EncodeHeader(ExportRow{}); err != nil {
		return fmt.Errorf("encode export header: %w", err)
	}
	for _, row := range ExportRows(sites) {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("encode export row %q: %w", row.SiteName, err)
		}
	}
	return nil
}

// quotedWriter is a csvutil.Writer that quotes every field, unlike
// encoding/csv which quotes only when needed.
type quotedWriter struct {
	w io.Writer
}

func (q *quotedWriter) Write(record []string) error {
	var b strings.Builder
	for i, field := range record {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(field, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
	_, err := io.WriteString(q.w, b.String())
	return err
}

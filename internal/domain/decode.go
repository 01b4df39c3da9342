package domain

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrNoData is returned when the input has no header plus at least one data line.
var ErrNoData = errors.New("csv has fewer than two non-empty lines")

// ErrNoSiteNameColumn is returned when no header matches a site name alias.
var ErrNoSiteNameColumn = errors.New("no site name column in header")

// RawRow is one decoded data line, addressable by header name, spreadsheet
// letter, or resolved logical field.
type RawRow struct {
	Line   int // 1-based line number in the source text
	Values []string
	header *Header
}

// Get returns the value under a header name or spreadsheet letter, or "".
func (r RawRow) Get(column string) string {
	if r.header == nil {
		return ""
	}
	for _, idx := range r.header.resolve(column) {
		if idx < len(r.Values) {
			return r.Values[idx]
		}
	}
	return ""
}

// Field returns the first non-empty value among the field's resolved columns.
func (r RawRow) Field(f Field) string {
	if r.header == nil {
		return ""
	}
	for _, idx := range r.header.columns[f] {
		if idx >= len(r.Values) {
			continue
		}
		if v := r.Values[idx]; v != "" {
			return v
		}
	}
	return ""
}

// Map returns the row as column name → value, as zipped against the header.
// Unnamed columns are keyed by their spreadsheet letter.
func (r RawRow) Map() map[string]string {
	m := make(map[string]string, len(r.Values))
	for i, v := range r.Values {
		name := ""
		if r.header != nil && i < len(r.header.Names) {
			name = r.header.Names[i]
		}
		if name == "" {
			name = ColumnLetter(i)
		}
		if _, dup := m[name]; !dup {
			m[name] = v
		}
	}
	return m
}

// Decoder turns published sheet text into rows.
type Decoder struct {
	aliases AliasTable
	logger  *slog.Logger
}

// NewDecoder creates a Decoder. A nil alias table uses DefaultAliases.
func NewDecoder(aliases AliasTable, logger *slog.Logger) *Decoder {
	if aliases == nil {
		aliases = DefaultAliases()
	}
	return &Decoder{aliases: aliases, logger: logger}
}

// Decode splits text into rows. The first non-empty line is the header.
// It returns ErrNoData and no rows when there is no data line at all, and
// ErrNoSiteNameColumn when the header has no site name column. Rows
// that are blank or too narrow are skipped and never fail the decode.
func (d *Decoder) Decode(text string) ([]RawRow, error) {
	// Excel "CSV UTF-8" exports start with a byte order mark.
	text = strings.TrimPrefix(text, "\ufeff")
	lines := strings.Split(text, "\n")

	headerAt := -1
	nonEmpty := 0
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if headerAt == -1 {
			headerAt = i
		}
		nonEmpty++
	}
	if nonEmpty < 2 {
		return nil, ErrNoData
	}

	header := NewHeader(SplitLine(lines[headerAt]), d.aliases)
	if !header.Resolved(FieldSiteName) {
		return nil, fmt.Errorf("%w: %s", ErrNoSiteNameColumn, strings.Join(header.Names, ", "))
	}

	rows := make([]RawRow, 0, nonEmpty-1)
	for i := headerAt + 1; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			continue
		}
		values := SplitLine(line)
		if len(values) < header.MinFields() {
			d.logger.Warn("skipping short row",
				"line", i+1,
				"fields", len(values),
				"required", header.MinFields(),
			)
			continue
		}
		rows = append(rows, RawRow{Line: i + 1, Values: values, header: header})
	}
	return rows, nil
}

// SplitLine splits one CSV line. A double quote only toggles quoting and is
// not kept, so an escaped "" pair vanishes; commas outside quotes separate
// fields. Each field then loses one leading and one trailing quote, if any
// survived, and surrounding whitespace.
func SplitLine(line string) []string {
	line = strings.TrimRight(line, "\r")

	var fields []string
	var cur strings.Builder
	inQuotes := false
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			fields = append(fields, cleanField(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	fields = append(fields, cleanField(cur.String()))
	return fields
}

func cleanField(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)
	return strings.TrimSpace(s)
}

package domain

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Field is a logical column the categorizer consumes.
type Field string

const (
	FieldSiteName      Field = "site_name"
	FieldLatitude      Field = "latitude"
	FieldLongitude     Field = "longitude"
	FieldScheduledDate Field = "scheduled_date"
	FieldStatus        Field = "status"
	FieldFuelType      Field = "fuel_type"
	FieldQuantity      Field = "quantity"
	FieldDaysOverdue   Field = "days_overdue"
)

// Fields lists every logical field in resolution order.
var Fields = []Field{
	FieldSiteName,
	FieldLatitude,
	FieldLongitude,
	FieldScheduledDate,
	FieldStatus,
	FieldFuelType,
	FieldQuantity,
	FieldDaysOverdue,
}

// AliasTable maps each logical field to the ordered header names that may
// carry it. An alias made only of uppercase letters (e.g. "F") addresses the
// column by spreadsheet letter, and only when no other alias matched by name.
type AliasTable map[Field][]string

// DefaultAliases covers the header variants seen across sheet revisions.
func DefaultAliases() AliasTable {
	return AliasTable{
		FieldSiteName:      {"Site Name", "siteName", "Site"},
		FieldLatitude:      {"Latitude", "Lat"},
		FieldLongitude:     {"Longitude", "Lng", "Lon", "Long"},
		FieldScheduledDate: {"Next Fueling Plan", "nextFuelingPlan", "Fueling Plan", "Scheduled Date", "scheduledDate", "Date", "F"},
		FieldStatus:        {"Status"},
		FieldFuelType:      {"Fuel Type", "fuelType"},
		FieldQuantity:      {"Quantity", "Qty"},
		FieldDaysOverdue:   {"Days Overdue", "daysOverdue"},
	}
}

// LoadAliases reads a YAML alias override file. Fields present in the file
// replace the defaults; missing fields keep them.
//
//	site_name: ["Site Name", "Station"]
//	scheduled_date: ["Next Fueling Plan", "G"]
func LoadAliases(path string) (AliasTable, error) {
	table := DefaultAliases()
	if path == "" {
		return table, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alias file: %w", err)
	}

	var overrides map[string][]string
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse alias file %s: %w", path, err)
	}

	for key, aliases := range overrides {
		field, ok := lookupField(key)
		if !ok {
			return nil, fmt.Errorf("alias file %s: unknown field %q", path, key)
		}
		if len(aliases) == 0 {
			return nil, fmt.Errorf("alias file %s: field %q has no aliases", path, key)
		}
		table[field] = aliases
	}
	return table, nil
}

func lookupField(key string) (Field, bool) {
	for _, f := range Fields {
		if normalizeHeader(string(f)) == normalizeHeader(key) {
			return f, true
		}
	}
	return "", false
}

// Header is a decoded header row with the alias table resolved against it.
type Header struct {
	Names   []string
	byName  map[string][]int
	columns map[Field][]int
	min     int
}

// NewHeader indexes names and resolves every field of aliases to its
// candidate column indexes.
func NewHeader(names []string, aliases AliasTable) *Header {
	h := &Header{
		Names:   names,
		byName:  make(map[string][]int, len(names)),
		columns: make(map[Field][]int, len(aliases)),
	}
	for i, n := range names {
		key := normalizeHeader(n)
		if key == "" {
			continue
		}
		h.byName[key] = append(h.byName[key], i)
	}

	for _, field := range Fields {
		cols := h.namedColumns(aliases[field])
		if len(cols) == 0 {
			cols = h.letterColumns(aliases[field])
		}
		if len(cols) == 0 {
			continue
		}
		h.columns[field] = cols
		if cols[0]+1 > h.min {
			h.min = cols[0] + 1
		}
	}
	return h
}

// namedColumns returns the columns whose header matches one of aliases, in
// alias order.
func (h *Header) namedColumns(aliases []string) []int {
	var cols []int
	seen := map[int]bool{}
	for _, alias := range aliases {
		for _, idx := range h.byName[normalizeHeader(alias)] {
			if !seen[idx] {
				seen[idx] = true
				cols = append(cols, idx)
			}
		}
	}
	return cols
}

// letterColumns returns the columns addressed by the spreadsheet-letter
// aliases. It is consulted only when no alias matched by name.
func (h *Header) letterColumns(aliases []string) []int {
	var cols []int
	seen := map[int]bool{}
	for _, alias := range aliases {
		if idx, ok := ColumnIndex(alias); ok && idx < len(h.Names) && !seen[idx] {
			seen[idx] = true
			cols = append(cols, idx)
		}
	}
	return cols
}

// resolve finds the columns for an alias: every header whose name matches,
// else the spreadsheet letter when the alias looks like one.
func (h *Header) resolve(alias string) []int {
	if idxs, ok := h.byName[normalizeHeader(alias)]; ok {
		return idxs
	}
	if idx, ok := ColumnIndex(alias); ok && idx < len(h.Names) {
		return []int{idx}
	}
	return nil
}

// Resolved reports whether any alias of f matched a column.
func (h *Header) Resolved(f Field) bool {
	return len(h.columns[f]) > 0
}

// MinFields is the narrowest row that still carries every resolved field's
// primary column.
func (h *Header) MinFields() int {
	return h.min
}

// ColumnIndex converts a spreadsheet column letter ("A", "AB") to a
// zero-based index. Only uppercase ASCII letters are accepted.
func ColumnIndex(letters string) (int, bool) {
	if letters == "" || len(letters) > 3 {
		return 0, false
	}
	n := 0
	for _, r := range letters {
		if r < 'A' || r > 'Z' {
			return 0, false
		}
		n = n*26 + int(r-'A'+1)
	}
	return n - 1, true
}

// ColumnLetter is the inverse of ColumnIndex.
func ColumnLetter(idx int) string {
	var b []byte
	for n := idx + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}

func normalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-', '\t':
			return -1
		}
		return r
	}, s)
}

package domain

import (
	"encoding/json"
	"time"
)

// Category is the schedule bucket a site is assigned to.
type Category string

const (
	CategoryToday         Category = "today"
	CategoryTomorrow      Category = "tomorrow"
	CategoryComingIn3Days Category = "comingIn3Days"
	CategoryDue           Category = "due"
	CategoryUnscheduled   Category = "unscheduled"
)

// Categories lists every bucket in display order.
var Categories = []Category{
	CategoryToday,
	CategoryTomorrow,
	CategoryComingIn3Days,
	CategoryDue,
	CategoryUnscheduled,
}

// ParseCategory accepts a bucket key, case-insensitively.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if normalizeHeader(s) == normalizeHeader(string(c)) {
			return c, true
		}
	}
	return "", false
}

// Status is the display status derived from a site's category.
type Status string

const (
	StatusToday       Status = "today"
	StatusUpcoming    Status = "upcoming"
	StatusDue         Status = "due"
	StatusUnscheduled Status = "unscheduled"
)

// Geo source values.
const (
	GeoSourceSheet    = "sheet"
	GeoSourceGeocoded = "geocoded"
	GeoSourceFailed   = "failed"
)

// DateLayout is the canonical calendar-date format used in JSON and exports.
const DateLayout = "2006-01-02"

// Site is one fueling location after normalization.
type Site struct {
	ID        int      `json:"id"`
	SiteName  string   `json:"siteName"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	GeoSource string   `json:"geoSource,omitempty"`
	Address   string   `json:"address,omitempty"`

	// ScheduledDate is midnight local time, nil when the sheet has no usable date.
	ScheduledDate *time.Time `json:"-"`

	FuelType    string `json:"fuelType,omitempty"`
	Quantity    string `json:"quantity,omitempty"`
	SheetStatus string `json:"sheetStatus"`

	Category    Category `json:"category"`
	Status      Status   `json:"status"`
	DaysAhead   *int     `json:"daysAhead,omitempty"`
	DaysOverdue *int     `json:"daysOverdue,omitempty"`

	// sheetOverdue is the raw "Days Overdue" column, kept for bucket assignment.
	sheetOverdue int
}

// HasCoordinates reports whether both coordinates are known.
func (s Site) HasCoordinates() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// DateString formats the scheduled date, or returns "" when unknown.
func (s Site) DateString() string {
	if s.ScheduledDate == nil {
		return ""
	}
	return s.ScheduledDate.Format(DateLayout)
}

// MarshalJSON renders the scheduled date as a plain calendar date.
func (s Site) MarshalJSON() ([]byte, error) {
	type plain Site
	var date *string
	if s.ScheduledDate != nil {
		d := s.DateString()
		date = &d
	}
	return json.Marshal(struct {
		plain
		ScheduledDate *string `json:"scheduledDate"`
	}{plain: plain(s), ScheduledDate: date})
}

// CategorizedResult groups sites by category. Every bucket is always present.
type CategorizedResult map[Category][]Site

// NewCategorizedResult returns a result with all buckets initialized empty.
func NewCategorizedResult() CategorizedResult {
	r := make(CategorizedResult, len(Categories))
	for _, c := range Categories {
		r[c] = []Site{}
	}
	return r
}

// All flattens the result back into source order (ascending ID).
func (r CategorizedResult) All() []Site {
	n := 0
	for _, c := range Categories {
		n += len(r[c])
	}
	all := make([]Site, 0, n)
	idx := make([]int, len(Categories))
	for len(all) < n {
		best := -1
		for ci, c := range Categories {
			if idx[ci] >= len(r[c]) {
				continue
			}
			if best == -1 || r[c][idx[ci]].ID < r[Categories[best]][idx[best]].ID {
				best = ci
			}
		}
		all = append(all, r[Categories[best]][idx[best]])
		idx[best]++
	}
	return all
}

// Len returns the number of sites across all buckets.
func (r CategorizedResult) Len() int {
	n := 0
	for _, c := range Categories {
		n += len(r[c])
	}
	return n
}

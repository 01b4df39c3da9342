package domain

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"
)

// FarFuturePolicy decides where sites scheduled beyond the three-day window go.
type FarFuturePolicy string

const (
	// FarFutureUnscheduled hides far-future sites in the unscheduled bucket.
	FarFutureUnscheduled FarFuturePolicy = "unscheduled"
	// FarFutureComingIn3Days folds them into comingIn3Days.
	FarFutureComingIn3Days FarFuturePolicy = "coming_in_3_days"
)

// ParseFarFuturePolicy validates a policy name; empty means FarFutureUnscheduled.
func ParseFarFuturePolicy(s string) (FarFuturePolicy, error) {
	switch FarFuturePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", FarFutureUnscheduled:
		return FarFutureUnscheduled, nil
	case FarFutureComingIn3Days:
		return FarFutureComingIn3Days, nil
	default:
		return "", fmt.Errorf("unknown far-future policy %q", s)
	}
}

const (
	defaultSheetStatus = "scheduled"
	overdueStatus      = "overdue"
	upcomingWindowDays = 3
)

// Categorizer converts decoded rows into sites and assigns each to a bucket.
type Categorizer struct {
	loc       *time.Location
	farFuture FarFuturePolicy
	logger    *slog.Logger
}

// NewCategorizer creates a Categorizer. Dates are interpreted in loc
// (time.Local when nil).
func NewCategorizer(loc *time.Location, farFuture FarFuturePolicy, logger *slog.Logger) *Categorizer {
	if loc == nil {
		loc = time.Local
	}
	if farFuture == "" {
		farFuture = FarFutureUnscheduled
	}
	return &Categorizer{loc: loc, farFuture: farFuture, logger: logger}
}

// Location returns the time zone dates are interpreted in.
func (c *Categorizer) Location() *time.Location { return c.loc }

// Categorize builds sites from rows and groups them relative to today.
// Rows without a site name are dropped; every other row lands in exactly one bucket.
func (c *Categorizer) Categorize(rows []RawRow, today time.Time) CategorizedResult {
	sites := make([]Site, 0, len(rows))
	for _, row := range rows {
		site, ok := c.Extract(row)
		if !ok {
			c.logger.Debug("dropping row without site name", "line", row.Line)
			continue
		}
		sites = append(sites, site)
	}
	return c.Group(sites, today)
}

// Group assigns already-extracted sites to buckets relative to today,
// preserving input order within each bucket.
func (c *Categorizer) Group(sites []Site, today time.Time) CategorizedResult {
	today = Midnight(today, c.loc)
	result := NewCategorizedResult()
	for _, site := range sites {
		site = c.Assign(site, today)
		result[site.Category] = append(result[site.Category], site)
	}
	return result
}

// Extract maps one row to a Site without assigning a bucket. It reports false
// when the row has no site name.
func (c *Categorizer) Extract(row RawRow) (Site, bool) {
	name := strings.TrimSpace(row.Field(FieldSiteName))
	if name == "" {
		return Site{}, false
	}

	site := Site{
		ID:          row.Line,
		SiteName:    name,
		Latitude:    parseCoordinate(row.Field(FieldLatitude)),
		Longitude:   parseCoordinate(row.Field(FieldLongitude)),
		FuelType:    strings.TrimSpace(row.Field(FieldFuelType)),
		Quantity:    strings.TrimSpace(row.Field(FieldQuantity)),
		SheetStatus: strings.ToLower(strings.TrimSpace(row.Field(FieldStatus))),
	}
	if site.SheetStatus == "" {
		site.SheetStatus = defaultSheetStatus
	}
	if site.HasCoordinates() {
		site.GeoSource = GeoSourceSheet
	}

	rawDate := strings.TrimSpace(row.Field(FieldScheduledDate))
	site.ScheduledDate = ParseScheduleDate(rawDate, c.loc)
	if site.ScheduledDate == nil && rawDate != "" {
		c.logger.Debug("unparseable schedule date", "line", row.Line, "site", name, "value", rawDate)
	}

	if v := strings.TrimSpace(row.Field(FieldDaysOverdue)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.logger.Debug("invalid days overdue", "line", row.Line, "site", name, "value", v)
		} else {
			site.sheetOverdue = n
		}
	}
	return site, true
}

// Assign computes the site's category, derived status and day counts.
func (c *Categorizer) Assign(site Site, today time.Time) Site {
	site.DaysAhead = nil
	site.DaysOverdue = nil

	if site.SheetStatus == overdueStatus || site.sheetOverdue > 0 {
		return markDue(site, today)
	}
	if site.ScheduledDate == nil {
		site.Category = CategoryUnscheduled
		site.Status = StatusUnscheduled
		return site
	}

	diff := DaysBetween(today, *site.ScheduledDate)
	switch {
	case diff < 0:
		return markDue(site, today)
	case diff == 0:
		site.Category = CategoryToday
		site.Status = StatusToday
	case diff == 1:
		site.Category = CategoryTomorrow
		site.Status = StatusUpcoming
	case diff <= upcomingWindowDays, c.farFuture == FarFutureComingIn3Days:
		site.Category = CategoryComingIn3Days
		site.Status = StatusUpcoming
	default:
		site.Category = CategoryUnscheduled
		site.Status = StatusUnscheduled
		return site
	}
	if diff > 0 {
		site.DaysAhead = &diff
	}
	return site
}

func markDue(site Site, today time.Time) Site {
	site.Category = CategoryDue
	site.Status = StatusDue

	overdue := 0
	if site.ScheduledDate != nil {
		overdue = DaysBetween(*site.ScheduledDate, today)
	}
	if overdue <= 0 {
		overdue = max(site.sheetOverdue, 0)
	}
	site.DaysOverdue = &overdue
	return site
}

func parseCoordinate(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// dateLayouts are tried in order before the MM-DD-YYYY fallback.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"1/2/2006",
	"1/2/2006 15:04:05",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Mon, 02 Jan 2006",
	"Mon Jan 2 2006",
}

// ParseScheduleDate parses a sheet date and truncates it to midnight in loc.
// It returns nil when no format matches.
func ParseScheduleDate(s string, loc *time.Location) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if loc == nil {
		loc = time.Local
	}

	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			d := Midnight(t, loc)
			return &d
		}
	}

	// MM-DD-YYYY. A day past the end of the month rolls into the next one.
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return nil
	}
	month, errM := strconv.Atoi(strings.TrimSpace(parts[0]))
	day, errD := strconv.Atoi(strings.TrimSpace(parts[1]))
	year, errY := strconv.Atoi(strings.TrimSpace(parts[2]))
	if errM != nil || errD != nil || errY != nil {
		return nil
	}
	if month < 1 || month > 12 || day < 1 || day > 31 || year < 1000 || year > 9999 {
		return nil
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	return &d
}

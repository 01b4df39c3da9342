package domain

import (
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorize_SingleSiteToday(t *testing.T) {
	result := decodeAndCategorize("Site Name,Lat,Lng,Date\nAlpha,24.7,46.6,2025-01-01\n", date(2025, 1, 1))

	require.Len(t, result[CategoryToday], 1)
	site := result[CategoryToday][0]
	assert.Equal(t, "Alpha", site.SiteName)
	assert.Equal(t, StatusToday, site.Status)
	require.NotNil(t, site.Latitude)
	assert.Equal(t, 24.7, *site.Latitude)
	require.NotNil(t, site.Longitude)
	assert.Equal(t, 46.6, *site.Longitude)
	assert.Equal(t, GeoSourceSheet, site.GeoSource)
	assert.Equal(t, "scheduled", site.SheetStatus)
	assert.Nil(t, site.DaysOverdue)
	assert.Nil(t, site.DaysAhead)
	assert.Equal(t, 1, result.Len())
}

func TestCategorize_UnparseableDate(t *testing.T) {
	result := decodeAndCategorize("Site Name,Status,Date\nBeta,,N/A\n", date(2025, 1, 1))

	require.Len(t, result[CategoryUnscheduled], 1)
	site := result[CategoryUnscheduled][0]
	assert.Nil(t, site.ScheduledDate)
	assert.Equal(t, StatusUnscheduled, site.Status)
	assert.Equal(t, "scheduled", site.SheetStatus)
}

func TestCategorize_EmptyInput(t *testing.T) {
	result := decodeAndCategorize("", date(2025, 1, 1))

	assert.Len(t, result, len(Categories))
	for _, c := range Categories {
		assert.NotNil(t, result[c], c)
		assert.Empty(t, result[c], c)
	}
}

func TestCategorize_AllRowsMissingNames(t *testing.T) {
	result := decodeAndCategorize("Site Name,Date\n,2025-01-01\n  ,2025-01-02\n", date(2025, 1, 1))
	assert.Equal(t, 0, result.Len())
	for _, c := range Categories {
		assert.NotNil(t, result[c], c)
	}
}

func TestCategorize_QuotedNameWithComma(t *testing.T) {
	result := decodeAndCategorize("Site Name,Lat,Lng,Date\n\"Site, A\",24.0,46.0,2025-01-01\n", date(2025, 1, 1))

	require.Len(t, result[CategoryToday], 1)
	assert.Equal(t, "Site, A", result[CategoryToday][0].SiteName)
}

func TestCategorize_BucketPrecedence(t *testing.T) {
	today := date(2025, 3, 10)
	intPtr := func(n int) *int { return &n }

	tests := []struct {
		name        string
		row         string
		category    Category
		status      Status
		daysAhead   *int
		daysOverdue *int
	}{
		{"yesterday", "S,2025-03-09,,", CategoryDue, StatusDue, nil, intPtr(1)},
		{"a week ago", "S,2025-03-03,,", CategoryDue, StatusDue, nil, intPtr(7)},
		{"today", "S,2025-03-10,,", CategoryToday, StatusToday, nil, nil},
		{"tomorrow", "S,2025-03-11,,", CategoryTomorrow, StatusUpcoming, intPtr(1), nil},
		{"in two days", "S,2025-03-12,,", CategoryComingIn3Days, StatusUpcoming, intPtr(2), nil},
		{"in three days", "S,2025-03-13,,", CategoryComingIn3Days, StatusUpcoming, intPtr(3), nil},
		{"in four days", "S,2025-03-14,,", CategoryUnscheduled, StatusUnscheduled, nil, nil},
		{"no date", "S,,,", CategoryUnscheduled, StatusUnscheduled, nil, nil},
		{"overdue status beats future date", "S,2025-03-12,Overdue,", CategoryDue, StatusDue, nil, intPtr(0)},
		{"overdue status with sheet count", "S,2025-03-12,overdue,4", CategoryDue, StatusDue, nil, intPtr(4)},
		{"days overdue beats today", "S,2025-03-10,,3", CategoryDue, StatusDue, nil, intPtr(3)},
		{"days overdue without date", "S,,,2", CategoryDue, StatusDue, nil, intPtr(2)},
		{"past date wins over smaller sheet count", "S,2025-03-05,overdue,1", CategoryDue, StatusDue, nil, intPtr(5)},
		{"zero days overdue ignored", "S,2025-03-10,,0", CategoryToday, StatusToday, nil, nil},
		{"invalid days overdue ignored", "S,2025-03-11,,soon", CategoryTomorrow, StatusUpcoming, intPtr(1), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := "Site Name,Date,Status,Days Overdue\n" + tt.row + "\n"
			result := decodeAndCategorize(text, today)

			require.Len(t, result[tt.category], 1, "expected one site in %s", tt.category)
			assert.Equal(t, 1, result.Len())
			site := result[tt.category][0]
			assert.Equal(t, tt.category, site.Category)
			assert.Equal(t, tt.status, site.Status)
			assert.Equal(t, tt.daysAhead, site.DaysAhead)
			assert.Equal(t, tt.daysOverdue, site.DaysOverdue)
		})
	}
}

func TestCategorize_FarFuturePolicy(t *testing.T) {
	rows, err := newTestDecoder().Decode("Site Name,Date\nFar,2025-04-01\n")
	require.NoError(t, err)
	today := date(2025, 3, 10)

	hidden := NewCategorizer(time.UTC, FarFutureUnscheduled, discardLogger()).Categorize(rows, today)
	assert.Len(t, hidden[CategoryUnscheduled], 1)
	assert.Empty(t, hidden[CategoryComingIn3Days])

	folded := NewCategorizer(time.UTC, FarFutureComingIn3Days, discardLogger()).Categorize(rows, today)
	require.Len(t, folded[CategoryComingIn3Days], 1)
	assert.Equal(t, 22, *folded[CategoryComingIn3Days][0].DaysAhead)
	assert.Empty(t, folded[CategoryUnscheduled])
}

func TestCategorize_TodayTimeOfDayIgnored(t *testing.T) {
	late := time.Date(2025, 1, 1, 23, 59, 59, 0, time.UTC)
	result := decodeAndCategorize("Site Name,Date\nAlpha,2025-01-01\nBravo,2025-01-02\n", late)

	require.Len(t, result[CategoryToday], 1)
	assert.Equal(t, "Alpha", result[CategoryToday][0].SiteName)
	require.Len(t, result[CategoryTomorrow], 1)
	assert.Equal(t, "Bravo", result[CategoryTomorrow][0].SiteName)
}

func TestCategorize_AcrossDSTTransition(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	rows, err := newTestDecoder().Decode("Site Name,Date\nAlpha,2025-03-09\nBravo,2025-03-10\nCharlie,2025-03-12\n")
	require.NoError(t, err)

	today := time.Date(2025, 3, 9, 0, 0, 0, 0, loc)
	result := NewCategorizer(loc, FarFutureUnscheduled, discardLogger()).Categorize(rows, today)

	assert.Len(t, result[CategoryToday], 1)
	require.Len(t, result[CategoryTomorrow], 1)
	assert.Equal(t, "Bravo", result[CategoryTomorrow][0].SiteName)
	require.Len(t, result[CategoryComingIn3Days], 1)
	assert.Equal(t, 3, *result[CategoryComingIn3Days][0].DaysAhead)
}

func TestCategorize_Coordinates(t *testing.T) {
	text := strings.Join([]string{
		"Site Name,Latitude,Longitude,Date",
		"Zero,0,0,2025-01-01",
		"Missing,,,2025-01-01",
		"Garbage,abc,12x,2025-01-01",
		"NotANumber,NaN,Inf,2025-01-01",
		"HalfKnown,10.5,,2025-01-01",
	}, "\n")
	sites := decodeAndCategorize(text, date(2025, 1, 1))[CategoryToday]
	require.Len(t, sites, 5)

	require.NotNil(t, sites[0].Latitude, "0 is a real coordinate")
	assert.Equal(t, 0.0, *sites[0].Latitude)
	assert.True(t, sites[0].HasCoordinates())

	for _, s := range sites[1:4] {
		assert.Nil(t, s.Latitude, s.SiteName)
		assert.Nil(t, s.Longitude, s.SiteName)
		assert.Empty(t, s.GeoSource, s.SiteName)
	}

	require.NotNil(t, sites[4].Latitude)
	assert.Nil(t, sites[4].Longitude)
	assert.False(t, sites[4].HasCoordinates())
}

func TestCategorize_ExtraFields(t *testing.T) {
	text := "Site Name,Fuel Type,Quantity,Status,Date\nAlpha,Diesel,500L,PENDING,2025-01-01\n"
	site := decodeAndCategorize(text, date(2025, 1, 1))[CategoryToday][0]

	assert.Equal(t, "Diesel", site.FuelType)
	assert.Equal(t, "500L", site.Quantity)
	assert.Equal(t, "pending", site.SheetStatus)
}

func TestCategorize_IDsAndOrder(t *testing.T) {
	text := strings.Join([]string{
		"Site Name,Date",
		"A,2025-01-01",
		",2025-01-01",
		"B,2024-12-30",
		"C,2025-01-01",
		"D,bad",
		"",
		"E,2025-01-02",
	}, "\n")
	result := decodeAndCategorize(text, date(2025, 1, 1))

	names := func(sites []Site) []string {
		out := make([]string, 0, len(sites))
		for _, s := range sites {
			out = append(out, s.SiteName)
		}
		return out
	}
	assert.Equal(t, []string{"A", "C"}, names(result[CategoryToday]))
	assert.Equal(t, []string{"B"}, names(result[CategoryDue]))
	assert.Equal(t, []string{"D"}, names(result[CategoryUnscheduled]))
	assert.Equal(t, []string{"E"}, names(result[CategoryTomorrow]))
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, names(result.All()))

	seen := map[int]bool{}
	for _, s := range result.All() {
		assert.False(t, seen[s.ID], "duplicate id %d", s.ID)
		seen[s.ID] = true
	}
	assert.LessOrEqual(t, result.Len(), 7)
}

func TestCategorize_Idempotent(t *testing.T) {
	text := "Site Name,Date,Status\nA,2025-01-01,\nB,2024-12-01,overdue\nC,,\nD,2025-01-03,\n"
	rows, err := newTestDecoder().Decode(text)
	require.NoError(t, err)

	c := newTestCategorizer()
	today := date(2025, 1, 1)
	assert.Equal(t, c.Categorize(rows, today), c.Categorize(rows, today))
}

func TestGroup_ReassignsAgainstNewToday(t *testing.T) {
	c := newTestCategorizer()
	sites := c.Categorize(mustDecode(t, "Site Name,Date\nA,2025-01-02\n"), date(2025, 1, 1)).All()
	require.Len(t, sites, 1)
	require.Equal(t, CategoryTomorrow, sites[0].Category)

	next := c.Group(sites, date(2025, 1, 2))
	require.Len(t, next[CategoryToday], 1)
	assert.Nil(t, next[CategoryToday][0].DaysAhead)

	later := c.Group(sites, date(2025, 1, 5))
	require.Len(t, later[CategoryDue], 1)
	assert.Equal(t, 3, *later[CategoryDue][0].DaysOverdue)
}

func TestParseScheduleDate(t *testing.T) {
	tests := []struct {
		input    string
		expected *time.Time
	}{
		{"2025-01-05", ptr(date(2025, 1, 5))},
		{" 2025-01-05 ", ptr(date(2025, 1, 5))},
		{"2025-01-05T18:30:00Z", ptr(date(2025, 1, 5))},
		{"2025-01-05 18:30:00", ptr(date(2025, 1, 5))},
		{"2025/01/05", ptr(date(2025, 1, 5))},
		{"1/5/2025", ptr(date(2025, 1, 5))},
		{"Jan 5, 2025", ptr(date(2025, 1, 5))},
		{"January 5, 2025", ptr(date(2025, 1, 5))},
		{"5 Jan 2025", ptr(date(2025, 1, 5))},
		{"01-05-2025", ptr(date(2025, 1, 5))},
		{"1-5-2025", ptr(date(2025, 1, 5))},
		{"02-30-2025", ptr(date(2025, 3, 2))},
		{"13-01-2025", nil},
		{"01-05-25", nil},
		{"2025-02-30", nil},
		{"N/A", nil},
		{"", nil},
		{"tomorrow", nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseScheduleDate(tt.input, time.UTC))
		})
	}
}

func TestParseScheduleDate_TruncatesInLocation(t *testing.T) {
	loc := time.FixedZone("AST", 3*60*60)
	got := ParseScheduleDate("2025-01-05T22:30:00Z", loc)
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2025, 1, 6, 0, 0, 0, 0, loc), *got)
}

func TestParseFarFuturePolicy(t *testing.T) {
	p, err := ParseFarFuturePolicy("")
	require.NoError(t, err)
	assert.Equal(t, FarFutureUnscheduled, p)

	p, err = ParseFarFuturePolicy("Coming_In_3_Days")
	require.NoError(t, err)
	assert.Equal(t, FarFutureComingIn3Days, p)

	_, err = ParseFarFuturePolicy("later")
	require.Error(t, err)
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 0, DaysBetween(date(2025, 1, 1), date(2025, 1, 1)))
	assert.Equal(t, 1, DaysBetween(date(2024, 12, 31), date(2025, 1, 1)))
	assert.Equal(t, -2, DaysBetween(date(2025, 1, 3), date(2025, 1, 1)))
	assert.Equal(t, 366, DaysBetween(date(2024, 1, 1), date(2025, 1, 1)))
}

func mustDecode(t *testing.T, text string) []RawRow {
	t.Helper()
	rows, err := newTestDecoder().Decode(text)
	require.NoError(t, err)
	return rows
}

func ptr[T any](v T) *T { return &v }

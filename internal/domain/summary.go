package domain

// Summary holds the headline counts shown on the dashboard.
type Summary struct {
	Total         int     `json:"total"`
	Today         int     `json:"today"`
	Tomorrow      int     `json:"tomorrow"`
	ComingIn3Days int     `json:"comingIn3Days"`
	Upcoming      int     `json:"upcoming"`
	Due           int     `json:"due"`
	Unscheduled   int     `json:"unscheduled"`
	DuePercent    float64 `json:"duePercent"`
	OnTimePercent float64 `json:"onTimePercent"`
}

// Summarize counts sites per bucket. Percentages are 0 for an empty result.
func Summarize(r CategorizedResult) Summary {
	s := Summary{
		Total:         r.Len(),
		Today:         len(r[CategoryToday]),
		Tomorrow:      len(r[CategoryTomorrow]),
		ComingIn3Days: len(r[CategoryComingIn3Days]),
		Due:           len(r[CategoryDue]),
		Unscheduled:   len(r[CategoryUnscheduled]),
	}
	s.Upcoming = s.Tomorrow + s.ComingIn3Days
	if s.Total > 0 {
		s.DuePercent = float64(s.Due) / float64(s.Total) * 100
		s.OnTimePercent = float64(s.Total-s.Due) / float64(s.Total) * 100
	}
	return s
}

// MapPoint is a site that can be placed on a map.
type MapPoint struct {
	ID          int      `json:"id"`
	SiteName    string   `json:"siteName"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Category    Category `json:"category"`
	Status      Status   `json:"status"`
	SheetStatus string   `json:"sheetStatus"`
	Date        string   `json:"date,omitempty"`
}

// MapPoints returns every site with both coordinates, in source order.
func MapPoints(sites []Site) []MapPoint {
	points := make([]MapPoint, 0, len(sites))
	for _, s := range sites {
		if !s.HasCoordinates() {
			continue
		}
		points = append(points, MapPoint{
			ID:          s.ID,
			SiteName:    s.SiteName,
			Latitude:    *s.Latitude,
			Longitude:   *s.Longitude,
			Category:    s.Category,
			Status:      s.Status,
			SheetStatus: s.SheetStatus,
			Date:        s.DateString(),
		})
	}
	return points
}

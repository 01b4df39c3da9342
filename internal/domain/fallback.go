package domain

import "time"

type fallbackSite struct {
	name     string
	lat, lng float64
	fuelType string
	quantity string
	status   string
	overdue  int
	offset   int // days from today
}

var fallbackSites = []fallbackSite{
	{"GSM Downtown", 24.7136, 46.6753, "Diesel", "500L", "pending", 0, 0},
	{"GSM Airport Hub", 24.9554, 46.2991, "Petrol", "300L", "in-progress", 0, 0},
	{"GSM North Terminal", 24.9164, 46.2235, "Diesel", "450L", "scheduled", 0, 1},
	{"GSM East Port", 24.4539, 46.5101, "Petrol", "350L", "scheduled", 0, 1},
	{"GSM West Branch", 24.8242, 46.4104, "Diesel", "600L", "scheduled", 0, 2},
	{"GSM Central Depot", 24.7746, 46.7079, "Petrol", "400L", "scheduled", 0, 3},
	{"GSM South Station", 24.1551, 46.6992, "Diesel", "550L", "scheduled", 0, 3},
	{"GSM Harbor Facility", 26.1207, 50.1955, "Diesel", "700L", "overdue", 2, -2},
	{"GSM Mountain Site", 26.9124, 49.5005, "Petrol", "250L", "overdue", 1, -1},
}

// FallbackSites returns the built-in dataset shown when the sheet cannot be
// read, with schedule dates relative to today. Sites are not yet categorized.
func FallbackSites(today time.Time) []Site {
	sites := make([]Site, 0, len(fallbackSites))
	for i, f := range fallbackSites {
		lat, lng := f.lat, f.lng
		date := today.AddDate(0, 0, f.offset)
		sites = append(sites, Site{
			ID:            i + 1,
			SiteName:      f.name,
			Latitude:      &lat,
			Longitude:     &lng,
			GeoSource:     GeoSourceSheet,
			ScheduledDate: &date,
			FuelType:      f.fuelType,
			Quantity:      f.quantity,
			SheetStatus:   f.status,
			sheetOverdue:  f.overdue,
		})
	}
	return sites
}

package domain

import (
	"context"
	"log/slog"
)

// EnrichWithGeocoding fills in missing coordinates by forward geocoding the
// site name. Sites that already have both coordinates, and all sites when
// geocoder is nil, are returned unchanged. Failures only mark GeoSource.
func EnrichWithGeocoding(ctx context.Context, site Site, geocoder Geocoder, logger *slog.Logger) Site {
	if geocoder == nil || site.HasCoordinates() {
		return site
	}

	result, err := geocoder.ForwardGeocode(ctx, site.SiteName)
	if err != nil {
		logger.Warn("forward geocoding failed",
			"site_id", site.ID,
			"site", site.SiteName,
			"error", err,
		)
		site.GeoSource = GeoSourceFailed
		return site
	}
	if !result.Found() {
		site.GeoSource = GeoSourceFailed
		return site
	}

	lat, lon := result.Lat, result.Lon
	site.Latitude = &lat
	site.Longitude = &lon
	site.Address = result.FormattedAddress
	site.GeoSource = GeoSourceGeocoded
	return site
}

// EnrichAll geocodes every site of r that lacks coordinates, in place.
func EnrichAll(ctx context.Context, r CategorizedResult, geocoder Geocoder, logger *slog.Logger) {
	if geocoder == nil {
		return
	}
	for _, c := range Categories {
		for i := range r[c] {
			if ctx.Err() != nil {
				return
			}
			r[c][i] = EnrichWithGeocoding(ctx, r[c][i], geocoder, logger)
		}
	}
}

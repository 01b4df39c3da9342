//go:build mapbox

package mapbox

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/site-fueling-service/internal/observability"
)

// Hits the real Mapbox API. Requires MAPBOX_TOKEN.
// Run with: go test -tags=mapbox ./internal/adapter/mapbox/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	token := os.Getenv("MAPBOX_TOKEN")
	if token == "" {
		t.Fatal("MAPBOX_TOKEN must be set to run smoke tests")
	}
	return NewClient(ClientConfig{Token: token, Timeout: 10 * time.Second, Country: "sa"},
		observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSmoke_ForwardGeocode(t *testing.T) {
	result, err := smokeClient(t).ForwardGeocode(context.Background(), "Riyadh")
	require.NoError(t, err)

	assert.InDelta(t, 24.71, result.Lat, 0.3)
	assert.InDelta(t, 46.67, result.Lon, 0.3)
	assert.Contains(t, result.FormattedAddress, "Riyadh")
}

func TestSmoke_CachedGeocoder(t *testing.T) {
	cached := NewCachedGeocoder(smokeClient(t), 10, observability.NewMetricsForTesting())

	r1, err := cached.ForwardGeocode(context.Background(), "Dammam")
	require.NoError(t, err)
	r2, err := cached.ForwardGeocode(context.Background(), "dammam")
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}

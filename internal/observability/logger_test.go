package observability

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/couchcryptid/site-fueling-service/internal/config"
)

func TestNewLogger_InstallsTaggedDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := NewLogger(&config.Config{LogLevel: "debug", LogFormat: "text"})

	assert.Same(t, logger, slog.Default())
	assert.True(t, logger.Enabled(t.Context(), slog.LevelDebug))
}

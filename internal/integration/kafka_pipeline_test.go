//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/site-fueling-service/internal/adapter/kafka"
	"github.com/couchcryptid/site-fueling-service/internal/config"
	"github.com/couchcryptid/site-fueling-service/internal/domain"
	"github.com/couchcryptid/site-fueling-service/internal/observability"
	"github.com/couchcryptid/site-fueling-service/internal/pipeline"
)

const testTopic = "test-fueling-sites"

const sheetCSV = `Site Name,Latitude,Longitude,Next Fueling Plan,Status
GSM Downtown,24.7136,46.6753,2025-01-01,pending
GSM North Terminal,24.9164,46.2235,2025-01-02,
GSM Harbor Facility,26.1207,50.1955,2024-12-30,overdue
`

type sourceFunc func(ctx context.Context) (string, error)

func (f sourceFunc) Fetch(ctx context.Context) (string, error) { return f(ctx) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("fueling-test"),
	)
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate kafka container: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

type publishedSite struct {
	Key     string
	Headers map[string]string
	Site    map[string]any
}

func readSites(ctx context.Context, t *testing.T, broker string, n int) []publishedSite {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	out := make([]publishedSite, 0, n)
	for len(out) < n {
		msg, err := consumer.ReadMessage(readCtx)
		require.NoError(t, err, "read from snapshot topic")

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		var site map[string]any
		require.NoError(t, json.Unmarshal(msg.Value, &site))
		out = append(out, publishedSite{Key: string(msg.Key), Headers: headers, Site: site})
	}
	return out
}

// TestPipelinePublishesSnapshot runs one refresh pass with the real Kafka
// writer and reads every site back from the topic.
func TestPipelinePublishesSnapshot(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	cfg := &config.Config{
		KafkaBrokers: []string{broker},
		KafkaTopic:   testTopic,
	}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	logger := discardLogger()
	p := pipeline.New(
		sourceFunc(func(context.Context) (string, error) { return sheetCSV, nil }),
		domain.NewDecoder(nil, logger),
		domain.NewCategorizer(time.UTC, domain.FarFutureUnscheduled, logger),
		pipeline.Options{
			Clock:     clockwork.NewFakeClockAt(time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)),
			Publisher: writer,
		},
		logger,
		metrics,
	)

	snap, err := p.Refresh(ctx)
	require.NoError(t, err)
	require.Equal(t, pipeline.SourceSheet, snap.Source)

	got := readSites(ctx, t, broker, 3)

	byKey := make(map[string]publishedSite, len(got))
	for _, m := range got {
		byKey[m.Key] = m
	}
	require.Len(t, byKey, 3)

	downtown := byKey["2"]
	assert.Equal(t, "GSM Downtown", downtown.Site["siteName"])
	assert.Equal(t, "today", downtown.Headers["category"])
	assert.Equal(t, "1", downtown.Headers["generation"])
	assert.Equal(t, "sheet", downtown.Headers["source"])
	_, err = time.Parse(time.RFC3339, downtown.Headers["fetched_at"])
	assert.NoError(t, err, "fetched_at should be valid RFC3339")

	assert.Equal(t, "tomorrow", byKey["3"].Headers["category"])

	harbor := byKey["4"]
	assert.Equal(t, "due", harbor.Headers["category"])
	assert.InDelta(t, 2, harbor.Site["daysOverdue"], 0)
}

// TestPipelinePublishesFallback verifies a failed fetch still publishes the
// built-in dataset, tagged with its source.
func TestPipelinePublishesFallback(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	writer := kafka.NewWriter(&config.Config{KafkaBrokers: []string{broker}, KafkaTopic: testTopic}, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	logger := discardLogger()
	p := pipeline.New(
		sourceFunc(func(context.Context) (string, error) { return "", fmt.Errorf("sheet offline") }),
		domain.NewDecoder(nil, logger),
		domain.NewCategorizer(time.UTC, domain.FarFutureUnscheduled, logger),
		pipeline.Options{Publisher: writer},
		logger,
		observability.NewMetricsForTesting(),
	)

	snap, err := p.Refresh(ctx)
	require.NoError(t, err)
	require.Equal(t, pipeline.SourceFallback, snap.Source)

	got := readSites(ctx, t, broker, 9)
	for _, m := range got {
		assert.Equal(t, "fallback", m.Headers["source"])
	}
}

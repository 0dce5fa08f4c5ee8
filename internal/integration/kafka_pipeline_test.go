//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/weather-stats/internal/adapter/kafka"
	"github.com/couchcryptid/weather-stats/internal/config"
	"github.com/couchcryptid/weather-stats/internal/dataset"
	"github.com/couchcryptid/weather-stats/internal/domain"
	"github.com/couchcryptid/weather-stats/internal/observability"
	"github.com/couchcryptid/weather-stats/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testResultsTopic = "test-weather-yearly-stats"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("weather-stats-test"))
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

// publishedResult is a message read back from the results topic.
type publishedResult struct {
	Key     string
	Headers map[string]string
	Value   struct {
		domain.AggregateResult
		ComputedAt time.Time `json:"computed_at"`
	}
}

func readResult(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedResult {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from results topic")

	out := publishedResult{Key: string(msg.Key), Headers: make(map[string]string, len(msg.Headers))}
	for _, h := range msg.Headers {
		out.Headers[h.Key] = string(h.Value)
	}
	require.NoError(t, json.Unmarshal(msg.Value, &out.Value))
	return out
}

// TestPipelineToKafka runs the batch over a small data set and reads the
// published aggregates back from the results topic.
func TestPipelineToKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testResultsTopic)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stations.csv"),
		[]byte("KXYZ,Example,40.0,-75.0,100,2000-01-01,NETA\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2000.csv"),
		[]byte("KXYZ,2000-01-01,TMIN,-5,,,,0000\nKXYZ,2000-01-02,TMIN,-3,,Q,,0000\nKXYZ,2000-01-01,TMAX,4,,,,0000\nKXYZ,2000-01-02,TMAX,6,,,,0000\n"), 0o600))

	cfg := &config.Config{
		StationsPath:      filepath.Join(dir, "stations.csv"),
		ObservationsPath:  filepath.Join(dir, config.YearPlaceholder+".csv"),
		YearStart:         2000,
		YearEnd:           2001,
		Kinds:             []string{domain.KindMinTemperature, domain.KindMaxTemperature},
		JoinStrategy:      config.JoinShuffle,
		KafkaBrokers:      []string{broker},
		KafkaResultsTopic: testResultsTopic,
	}

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	dc := dataset.NewContext(dataset.Options{Workers: 2}, discardLogger())
	t.Cleanup(func() { _ = dc.Close() })

	p := pipeline.New(dc, pipeline.Options{
		StationsPath:    cfg.StationsPath,
		ObservationsFor: cfg.ObservationsFor,
		Years:           cfg.Years(),
		Kinds:           cfg.Kinds,
		JoinStrategy:    cfg.JoinStrategy,
	}, writer, io.Discard, discardLogger(), observability.NewMetricsForTesting())

	require.NoError(t, p.Run(ctx))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testResultsTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  1 << 20,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	got := map[string]publishedResult{}
	for range 2 {
		r := readResult(ctx, t, consumer)
		got[r.Key] = r
	}

	tmin, ok := got["2000:TMIN"]
	require.True(t, ok, "TMIN result published")
	assert.Equal(t, -5.0, tmin.Value.Mean)
	assert.Equal(t, int64(1), tmin.Value.Count)
	assert.Equal(t, "TMIN", tmin.Headers["kind"])
	assert.NotEmpty(t, tmin.Headers["computed_at"])

	tmax, ok := got["2000:TMAX"]
	require.True(t, ok, "TMAX result published")
	assert.Equal(t, 5.0, tmax.Value.Mean)
	assert.Equal(t, int64(2), tmax.Value.Count)
}

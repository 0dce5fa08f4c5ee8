package kafka

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/couchcryptid/weather-stats/internal/config"
	"github.com/couchcryptid/weather-stats/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	res := domain.AggregateResult{Year: 2000, Kind: domain.KindMinTemperature, Mean: -5, Count: 1}

	msg, err := serializeToMessage(res, now)
	require.NoError(t, err)

	assert.Equal(t, []byte("2000:TMIN"), msg.Key)
	assert.JSONEq(t, `{"year":2000,"measurement_kind":"TMIN","mean":-5,"count":1,"computed_at":"2024-04-26T15:10:00Z"}`, string(msg.Value))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "kind", msg.Headers[0].Key)
	assert.Equal(t, []byte("TMIN"), msg.Headers[0].Value)
	assert.Equal(t, "computed_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestSerializeToMessage_NaN(t *testing.T) {
	_, err := serializeToMessage(domain.AggregateResult{Year: 2000, Kind: "TMAX", Mean: math.NaN()}, time.Now())
	require.Error(t, err)
}

func TestLoadReport_NoResults(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"127.0.0.1:1"}, KafkaResultsTopic: "unused"}
	w := NewWriter(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer w.Close()

	// Nothing is written, so the unreachable broker is never dialled.
	err := w.LoadReport(context.Background(), domain.YearReport{Year: 2000, Missing: []string{"TMIN"}})
	require.NoError(t, err)
}

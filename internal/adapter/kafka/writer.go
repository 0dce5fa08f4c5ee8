package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/weather-stats/internal/config"
	"github.com/couchcryptid/weather-stats/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes yearly aggregates to a Kafka topic.
// It implements pipeline.ReportLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured results topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaResultsTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadReport publishes one message per aggregate in the report in a single
// WriteMessages call. Reports without results publish nothing.
func (w *Writer) LoadReport(ctx context.Context, report domain.YearReport) error {
	if len(report.Results) == 0 {
		w.logger.Warn("year report has no results, nothing published", "year", report.Year)
		return nil
	}
	msgs := make([]kafkago.Message, len(report.Results))
	for i, res := range report.Results {
		msg, err := serializeToMessage(res, report.ComputedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write results for %d: %w", report.Year, err)
	}
	w.logger.Debug("year report published", "year", report.Year, "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// resultMessage is the JSON value of a published aggregate.
type resultMessage struct {
	domain.AggregateResult
	ComputedAt time.Time `json:"computed_at"`
}

// messageKey identifies an aggregate, e.g. "2000:TMIN".
func messageKey(res domain.AggregateResult) string {
	return strconv.Itoa(res.Year) + ":" + res.Kind
}

// serializeToMessage marshals an AggregateResult into a Kafka message.
func serializeToMessage(res domain.AggregateResult, computedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(resultMessage{AggregateResult: res, ComputedAt: computedAt})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize aggregate result: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(messageKey(res)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte(res.Kind)},
			{Key: "computed_at", Value: []byte(computedAt.Format(time.RFC3339))},
		},
	}, nil
}

package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/fsoi-stats/internal/config"
	"github.com/couchcryptid/fsoi-stats/internal/domain"
)

// Publisher produces center reports to a Kafka topic, keyed by center so a
// center's reports stay ordered within one partition.
// It implements pipeline.Sink.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured summary topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSummaryTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// Name identifies the sink in logs.
func (p *Publisher) Name() string { return "kafka" }

// Publish serializes one report and writes it to the summary topic.
func (p *Publisher) Publish(ctx context.Context, report domain.Report) error {
	msg, err := serializeToMessage(report)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s report: %w", report.Center, err)
	}
	p.logger.Debug("report published",
		"center", report.Center,
		"run_id", report.RunID,
		"topic", p.writer.Topic,
		"bytes", len(msg.Value),
	)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a Report into a Kafka message.
func serializeToMessage(report domain.Report) (kafkago.Message, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(report.Center),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(report.RunID)},
			{Key: "center", Value: []byte(report.Center)},
			{Key: "generated_at", Value: []byte(report.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}

// DecodeReport parses a message produced by Publisher.
func DecodeReport(msg kafkago.Message) (domain.Report, error) {
	var r domain.Report
	if err := json.Unmarshal(msg.Value, &r); err != nil {
		return domain.Report{}, fmt.Errorf("decode report: %w", err)
	}
	return r, nil
}

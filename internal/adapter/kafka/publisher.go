package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/covid-data-etl/internal/config"
	"github.com/couchcryptid/covid-data-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces snapshot rows to a Kafka topic.
// It implements pipeline.Publisher.
type Publisher struct {
	writer    messageWriter
	batchSize int
	logger    *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured sink topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchFlushInterval,
	}
	return &Publisher{writer: w, batchSize: cfg.BatchSize, logger: logger}
}

// Publish writes every row of the snapshot to the sink topic, batchSize
// messages per WriteMessages call. It returns the number of messages written.
func (p *Publisher) Publish(ctx context.Context, snap domain.Snapshot) (int, error) {
	msgs, err := snapshotMessages(snap)
	if err != nil {
		return 0, err
	}

	size := p.batchSize
	if size <= 0 {
		size = len(msgs)
	}
	written := 0
	for start := 0; start < len(msgs); start += size {
		end := min(start+size, len(msgs))
		if err := p.writer.WriteMessages(ctx, msgs[start:end]...); err != nil {
			return written, fmt.Errorf("write snapshot %s: %w", snap.RunID, err)
		}
		written = end
	}
	p.logger.Debug("snapshot published", "run_id", snap.RunID, "messages", written)
	return written, nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

package events

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Outbox is the pending event store.
type Outbox interface {
	FetchPending(ctx context.Context, limit int) ([]Record, error)
	MarkSent(ctx context.Context, ids []int64) error
}

// Writer publishes messages; *kafka.Writer implements it.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// RelayConfig tunes the outbox poll loop.
type RelayConfig struct {
	PollInterval time.Duration
	BatchSize    int
	// Topic, when set, receives every event instead of the per-type topic.
	Topic string
}

// Relay moves outbox rows to Kafka.
type Relay struct {
	outbox Outbox
	writer Writer
	cfg    RelayConfig
}

// NewRelay returns a Relay. Zero config values fall back to one second and
// 100 events per batch.
func NewRelay(outbox Outbox, writer Writer, cfg RelayConfig) *Relay {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Relay{outbox: outbox, writer: writer, cfg: cfg}
}

// NewWriter returns a Kafka writer for brokers, or nil if none are given.
// Messages carry their own topic.
func NewWriter(brokers []string) *kafka.Writer {
	var addrs []string
	for _, b := range brokers {
		if b = strings.TrimSpace(b); b != "" {
			addrs = append(addrs, b)
		}
	}
	if len(addrs) == 0 {
		return nil
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(addrs...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

// Run polls until ctx is done. Failed batches are logged and retried on the
// next tick.
func (r *Relay) Run(ctx context.Context) error {
	lg := zctx.From(ctx).Named("outbox")
	lg.Info("Relay started", zap.Duration("interval", r.cfg.PollInterval))

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			lg.Info("Relay stopped")
			return nil
		case <-ticker.C:
		}
		for {
			n, err := r.Flush(ctx)
			if err != nil {
				if ctx.Err() == nil {
					lg.Warn("Relay flush failed", zap.Error(err))
				}
				break
			}
			if n < r.cfg.BatchSize {
				break
			}
		}
	}
}

// Flush publishes one batch of pending events and returns how many were sent.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	recs, err := r.outbox.FetchPending(ctx, r.cfg.BatchSize)
	if err != nil {
		return 0, errors.Wrap(err, "fetch pending")
	}
	if len(recs) == 0 {
		return 0, nil
	}

	msgs := make([]kafka.Message, len(recs))
	ids := make([]int64, len(recs))
	for i, rec := range recs {
		topic := rec.Topic
		if r.cfg.Topic != "" {
			topic = r.cfg.Topic
		}
		msgs[i] = kafka.Message{
			Topic: topic,
			Key:   []byte(rec.Key),
			Value: rec.Payload,
			Time:  rec.CreatedAt,
			Headers: []kafka.Header{
				{Key: "event_id", Value: []byte(rec.EventID.String())},
				{Key: "type", Value: []byte(rec.Topic)},
			},
		}
		ids[i] = rec.ID
	}

	if err := r.writer.WriteMessages(ctx, msgs...); err != nil {
		return 0, errors.Wrap(err, "publish")
	}
	if err := r.outbox.MarkSent(ctx, ids); err != nil {
		return 0, errors.Wrap(err, "mark sent")
	}
	return len(recs), nil
}

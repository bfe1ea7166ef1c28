package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/prescription-api/internal/model"
	"github.com/jwalitptl/prescription-api/pkg/logger"
	"github.com/jwalitptl/prescription-api/pkg/messaging"
	"github.com/jwalitptl/prescription-api/pkg/metrics"
)

// envelope mirrors the message shape published by the outbox processor.
type envelope struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Sink performs the out-of-band action for one notification. Errors are
// logged and swallowed; the sink never affects the primary operation.
type Sink interface {
	Notify(ctx context.Context, eventType string, resp *model.PrescriptionResponse) error
}

// Notifier consumes the broker channel and fans notifications out to
// its sinks. Broker delivery is at-least-once, so event ids are deduped
// through a TTL cache.
type Notifier struct {
	broker  messaging.Broker
	channel string
	sinks   []Sink
	seen    *cache.Cache
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func New(broker messaging.Broker, channel string, logger *logger.Logger, metrics *metrics.Metrics, sinks ...Sink) *Notifier {
	if channel == "" {
		channel = "events"
	}
	return &Notifier{
		broker:  broker,
		channel: channel,
		sinks:   sinks,
		seen:    cache.New(10*time.Minute, 30*time.Minute),
		logger:  logger,
		metrics: metrics,
	}
}

func (n *Notifier) Start(ctx context.Context) error {
	msgs, err := n.broker.Subscribe(ctx, n.channel)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", n.channel, err)
	}

	n.logger.Info("notifier started", "channel", n.channel)

	for {
		select {
		case <-ctx.Done():
			n.logger.Info("notifier shutting down")
			return nil
		case raw, ok := <-msgs:
			if !ok {
				return nil
			}
			n.handle(ctx, raw)
		}
	}
}

func (n *Notifier) handle(ctx context.Context, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		n.logger.Error(err, "failed to decode event envelope")
		n.metrics.NotificationsDropped.Inc()
		return
	}

	if env.ID != "" {
		if _, dup := n.seen.Get(env.ID); dup {
			n.metrics.NotificationsDropped.Inc()
			return
		}
		n.seen.SetDefault(env.ID, struct{}{})
	}

	if env.Type != model.EventPrescriptionCreated {
		return
	}

	var resp model.PrescriptionResponse
	if err := json.Unmarshal(env.Payload, &resp); err != nil {
		n.logger.Error(err, "failed to decode prescription payload", "event_id", env.ID)
		n.metrics.NotificationsDropped.Inc()
		return
	}

	for _, sink := range n.sinks {
		if err := sink.Notify(ctx, env.Type, &resp); err != nil {
			n.logger.Error(err, "notification sink failed", "event_id", env.ID)
			continue
		}
	}
}

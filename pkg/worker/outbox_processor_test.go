package worker

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/prescription-api/internal/model"
	"github.com/jwalitptl/prescription-api/pkg/logger"
	"github.com/jwalitptl/prescription-api/pkg/metrics"
)

type fakeOutboxRepo struct {
	pending  []*model.OutboxEvent
	statuses map[uuid.UUID]model.OutboxStatus
	errors   map[uuid.UUID]*string
	swept    []time.Time
}

func newFakeOutboxRepo(pending ...*model.OutboxEvent) *fakeOutboxRepo {
	return &fakeOutboxRepo{
		pending:  pending,
		statuses: make(map[uuid.UUID]model.OutboxStatus),
		errors:   make(map[uuid.UUID]*string),
	}
}

func (r *fakeOutboxRepo) Create(_ context.Context, event *model.OutboxEvent) error {
	r.pending = append(r.pending, event)
	return nil
}

func (r *fakeOutboxRepo) GetPendingEventsWithLock(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	if limit < len(r.pending) {
		return r.pending[:limit], nil
	}
	return r.pending, nil
}

func (r *fakeOutboxRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, _ *time.Time) error {
	r.statuses[id] = status
	r.errors[id] = errorMessage
	return nil
}

func (r *fakeOutboxRepo) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	r.swept = append(r.swept, before)
	return 1, nil
}

type fakeBroker struct {
	published []publication
	failures  int
}

type publication struct {
	channel string
	message interface{}
}

func (b *fakeBroker) Publish(_ context.Context, channel string, message interface{}) error {
	if b.failures > 0 {
		b.failures--
		return fmt.Errorf("broker unavailable")
	}
	b.published = append(b.published, publication{channel: channel, message: message})
	return nil
}

func (b *fakeBroker) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, fmt.Errorf("not implemented")
}

func (b *fakeBroker) Close() error { return nil }

func testEvent(eventType string) *model.OutboxEvent {
	return &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   []byte(`{"id":1}`),
		Status:    string(model.OutboxStatusPending),
	}
}

func newProcessor(repo *fakeOutboxRepo, broker *fakeBroker) *OutboxProcessor {
	return NewOutboxProcessor(repo, broker, OutboxProcessorConfig{
		Channel:       "events",
		BatchSize:     10,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	}, testLogger(), metrics.New("test"))
}

func testLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard, TimeFormat: time.RFC3339})
}

func TestProcessEvents(t *testing.T) {
	t.Run("publishes pending events and marks them processed", func(t *testing.T) {
		event := testEvent(model.EventPrescriptionCreated)
		repo := newFakeOutboxRepo(event)
		broker := &fakeBroker{}

		require.NoError(t, newProcessor(repo, broker).ProcessEvents(context.Background()))

		require.Len(t, broker.published, 1)
		assert.Equal(t, "events", broker.published[0].channel)
		envelope, ok := broker.published[0].message.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, event.ID.String(), envelope["id"])
		assert.Equal(t, model.EventPrescriptionCreated, envelope["type"])

		assert.Equal(t, model.OutboxStatusProcessed, repo.statuses[event.ID])
		assert.Nil(t, repo.errors[event.ID])
	})

	t.Run("no pending events is a no-op", func(t *testing.T) {
		repo := newFakeOutboxRepo()
		broker := &fakeBroker{}

		require.NoError(t, newProcessor(repo, broker).ProcessEvents(context.Background()))
		assert.Empty(t, broker.published)
	})

	t.Run("recovers after a transient publish failure", func(t *testing.T) {
		event := testEvent(model.EventPrescriptionCreated)
		repo := newFakeOutboxRepo(event)
		broker := &fakeBroker{failures: 1}

		require.NoError(t, newProcessor(repo, broker).ProcessEvents(context.Background()))

		require.Len(t, broker.published, 1)
		assert.Equal(t, model.OutboxStatusProcessed, repo.statuses[event.ID])
	})

	t.Run("marks the event for retry when all attempts fail", func(t *testing.T) {
		event := testEvent(model.EventPrescriptionCreated)
		repo := newFakeOutboxRepo(event)
		broker := &fakeBroker{failures: 10}

		require.NoError(t, newProcessor(repo, broker).ProcessEvents(context.Background()))

		assert.Empty(t, broker.published)
		assert.Equal(t, model.OutboxStatusRetry, repo.statuses[event.ID])
		require.NotNil(t, repo.errors[event.ID])
		assert.Contains(t, *repo.errors[event.ID], "broker unavailable")
	})

	t.Run("a failing event does not block the rest of the batch", func(t *testing.T) {
		first := testEvent(model.EventPrescriptionCreated)
		second := testEvent(model.EventPrescriptionCreated)
		repo := newFakeOutboxRepo(first, second)
		broker := &fakeBroker{failures: 2}

		require.NoError(t, newProcessor(repo, broker).ProcessEvents(context.Background()))

		assert.Equal(t, model.OutboxStatusRetry, repo.statuses[first.ID])
		assert.Equal(t, model.OutboxStatusProcessed, repo.statuses[second.ID])
	})

	t.Run("respects the batch size", func(t *testing.T) {
		repo := newFakeOutboxRepo(testEvent(model.EventPrescriptionCreated), testEvent(model.EventPrescriptionCreated))
		broker := &fakeBroker{}
		p := NewOutboxProcessor(repo, broker, OutboxProcessorConfig{
			BatchSize:     1,
			RetryAttempts: 1,
			RetryDelay:    time.Millisecond,
		}, testLogger(), metrics.New("test"))

		require.NoError(t, p.ProcessEvents(context.Background()))
		assert.Len(t, broker.published, 1)
	})
}

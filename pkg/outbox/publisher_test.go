package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cfs-platform/transaction-service/pkg/cloudevents"
	"github.com/cfs-platform/transaction-service/pkg/logging"
)

type memRepo struct {
	mu     sync.Mutex
	events []*OutboxEvent
}

func (r *memRepo) Save(_ context.Context, event *OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *memRepo) SaveAll(_ context.Context, events []*OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

func (r *memRepo) FindUnpublished(_ context.Context, limit int) ([]*OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*OutboxEvent
	for _, e := range r.events {
		if !e.IsPublished() && e.RetryCount < e.MaxRetries {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memRepo) MarkPublished(_ context.Context, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.ID == eventID {
			now := time.Now()
			e.PublishedAt = &now
			return nil
		}
	}
	return errors.New("event not found")
}

func (r *memRepo) IncrementRetry(_ context.Context, eventID, errorMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.ID == eventID {
			e.RetryCount++
			e.LastError = errorMsg
			return nil
		}
	}
	return errors.New("event not found")
}

func (r *memRepo) published(eventID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.ID == eventID {
			return e.IsPublished()
		}
	}
	return false
}

func (r *memRepo) DeletePublished(_ context.Context, olderThanSeconds int64) error {
	return nil
}

type fakeProducer struct {
	published []string
	failTypes map[string]bool
}

func (p *fakeProducer) PublishEvent(_ context.Context, topic string, event *cloudevents.CFSCloudEvent) error {
	if p.failTypes[event.Type] {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, event.Type)
	return nil
}

func newTestEvent(t *testing.T, eventType string) *OutboxEvent {
	t.Helper()
	factory := cloudevents.NewEventFactory(cloudevents.SourceTransactions)
	cloudEvent := factory.CreateEvent(context.Background(), eventType, "transaction/TXN-1", map[string]string{"transactionId": "TXN-1"})
	event, err := NewOutboxEvent("TXN-1", "PackageTransaction", "cfs.transactions.events", cloudEvent)
	require.NoError(t, err)
	return event
}

func TestProcessEventsPublishesAndMarks(t *testing.T) {
	repo := &memRepo{}
	producer := &fakeProducer{}
	publisher := NewPublisher(repo, producer, logging.New(logging.DefaultConfig("test")), nil, nil)

	repo.events = append(repo.events,
		newTestEvent(t, cloudevents.TransactionCreated),
		newTestEvent(t, cloudevents.StepExecuted),
	)

	publisher.processEvents(context.Background())

	assert.Equal(t, []string{cloudevents.TransactionCreated, cloudevents.StepExecuted}, producer.published)
	for _, e := range repo.events {
		assert.True(t, e.IsPublished())
	}
}

func TestProcessEventsRetriesFailures(t *testing.T) {
	repo := &memRepo{}
	producer := &fakeProducer{failTypes: map[string]bool{cloudevents.StepExecuted: true}}
	publisher := NewPublisher(repo, producer, logging.New(logging.DefaultConfig("test")), nil, nil)

	repo.events = append(repo.events,
		newTestEvent(t, cloudevents.TransactionCreated),
		newTestEvent(t, cloudevents.StepExecuted),
	)

	publisher.processEvents(context.Background())

	assert.True(t, repo.events[0].IsPublished())
	assert.False(t, repo.events[1].IsPublished())
	assert.Equal(t, 1, repo.events[1].RetryCount)
	assert.NotEmpty(t, repo.events[1].LastError)

	// A later pass retries only the failed event.
	producer.failTypes = nil
	publisher.processEvents(context.Background())
	assert.True(t, repo.events[1].IsPublished())
}

func TestEventsExceedingMaxRetriesAreSkipped(t *testing.T) {
	repo := &memRepo{}
	producer := &fakeProducer{}
	publisher := NewPublisher(repo, producer, logging.New(logging.DefaultConfig("test")), nil, nil)

	exhausted := newTestEvent(t, cloudevents.TransactionCreated)
	exhausted.RetryCount = exhausted.MaxRetries
	repo.events = append(repo.events, exhausted)

	publisher.processEvents(context.Background())

	assert.Empty(t, producer.published)
	assert.False(t, exhausted.IsPublished())
}

func TestStartAndStop(t *testing.T) {
	repo := &memRepo{}
	producer := &fakeProducer{}
	publisher := NewPublisher(repo, producer, logging.New(logging.DefaultConfig("test")), nil, &PublisherConfig{
		PollInterval: 10 * time.Millisecond,
		BatchSize:    10,
	})

	event := newTestEvent(t, cloudevents.TransactionCreated)
	require.NoError(t, repo.Save(context.Background(), event))

	require.NoError(t, publisher.Start(context.Background()))
	assert.True(t, publisher.IsRunning())
	assert.Error(t, publisher.Start(context.Background()), "double start is rejected")

	require.Eventually(t, func() bool {
		return repo.published(event.ID)
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, publisher.Stop())
	assert.False(t, publisher.IsRunning())
}

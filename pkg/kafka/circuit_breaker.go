package kafka

import (
	"context"
	"log/slog"
	"time"

	"github.com/cfs-platform/transaction-service/pkg/cloudevents"
	"github.com/cfs-platform/transaction-service/pkg/metrics"
	"github.com/cfs-platform/transaction-service/pkg/resilience"
)

// CircuitBreakerProducer wraps Producer with circuit breaker protection
// and publish metrics.
type CircuitBreakerProducer struct {
	producer       *Producer
	circuitBreaker *resilience.CircuitBreaker
	metrics        *metrics.Metrics
}

// NewCircuitBreakerProducer creates a circuit breaker protected Kafka producer
func NewCircuitBreakerProducer(producer *Producer, m *metrics.Metrics, logger *slog.Logger) *CircuitBreakerProducer {
	config := resilience.DefaultCircuitBreakerConfig("kafka-producer")
	cb := resilience.NewCircuitBreaker(config, logger)

	return &CircuitBreakerProducer{
		producer:       producer,
		circuitBreaker: cb,
		metrics:        m,
	}
}

// PublishEvent publishes a CloudEvent with circuit breaker protection
func (p *CircuitBreakerProducer) PublishEvent(ctx context.Context, topic string, event *cloudevents.CFSCloudEvent) error {
	start := time.Now()
	_, err := p.circuitBreaker.Execute(func() (interface{}, error) {
		return nil, p.producer.PublishEvent(ctx, topic, event)
	})

	if p.metrics != nil {
		p.metrics.RecordKafkaPublish(topic, event.Type, err == nil, time.Since(start))
	}

	return err
}

// PublishBatch publishes multiple events with circuit breaker protection
func (p *CircuitBreakerProducer) PublishBatch(ctx context.Context, topic string, events []*cloudevents.CFSCloudEvent) error {
	_, err := p.circuitBreaker.Execute(func() (interface{}, error) {
		return nil, p.producer.PublishBatch(ctx, topic, events)
	})
	return err
}

// State returns the circuit breaker state
func (p *CircuitBreakerProducer) State() int {
	return int(p.circuitBreaker.State())
}

// Close closes the underlying producer
func (p *CircuitBreakerProducer) Close() error {
	return p.producer.Close()
}

package nats

import (
	"context"
	"sync"
)

// MockPublisher is a mock implementation of Publisher for testing.
type MockPublisher struct {
	mu              sync.RWMutex
	publishedEvents []*DeploymentEvent
	publishError    error
	closed          bool
}

// NewMockPublisher creates a new mock publisher for testing.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		publishedEvents: make([]*DeploymentEvent, 0),
	}
}

// PublishDeployment records the event and returns any configured error.
func (m *MockPublisher) PublishDeployment(ctx context.Context, event *DeploymentEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishError != nil {
		return m.publishError
	}

	m.publishedEvents = append(m.publishedEvents, event)
	return nil
}

// Close marks the publisher as closed.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// SetPublishError configures the error returned by PublishDeployment.
func (m *MockPublisher) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishError = err
}

// PublishedEvents returns a copy of all recorded events.
func (m *MockPublisher) PublishedEvents() []*DeploymentEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*DeploymentEvent, len(m.publishedEvents))
	copy(events, m.publishedEvents)
	return events
}

// Closed reports whether Close was called.
func (m *MockPublisher) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// NoopPublisher discards all events. Used when NATS_URL is not configured.
type NoopPublisher struct{}

// PublishDeployment discards the event.
func (NoopPublisher) PublishDeployment(ctx context.Context, event *DeploymentEvent) error {
	return nil
}

// Close is a no-op.
func (NoopPublisher) Close() error { return nil }

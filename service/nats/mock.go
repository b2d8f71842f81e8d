package nats

import (
	"context"
	"sync"

	"github.com/brojonat/blinkmart/service/actions"
)

// MockPublisher is a mock implementation of Publisher for testing.
type MockPublisher struct {
	mu              sync.RWMutex
	publishedEvents []*actions.Event
	publishError    error
	closed          bool
}

// NewMockPublisher creates a new mock publisher for testing.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		publishedEvents: make([]*actions.Event, 0),
	}
}

// PublishAction records the event and returns any configured error.
func (m *MockPublisher) PublishAction(ctx context.Context, event *actions.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishError != nil {
		return m.publishError
	}

	m.publishedEvents = append(m.publishedEvents, event)
	return nil
}

// RecordAction implements actions.Recorder.
func (m *MockPublisher) RecordAction(ctx context.Context, event *actions.Event) error {
	return m.PublishAction(ctx, event)
}

// Close marks the publisher as closed.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// GetPublishedEvents returns all published events (for testing).
func (m *MockPublisher) GetPublishedEvents() []*actions.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*actions.Event, len(m.publishedEvents))
	copy(events, m.publishedEvents)
	return events
}

// GetPublishedEventsForSubject returns events that were published on subject.
func (m *MockPublisher) GetPublishedEventsForSubject(subject string) []*actions.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*actions.Event, 0)
	for _, event := range m.publishedEvents {
		if Subject(event) == subject {
			events = append(events, event)
		}
	}
	return events
}

// SetPublishError configures the mock to return an error on PublishAction.
func (m *MockPublisher) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishError = err
}

// IsClosed returns whether the publisher has been closed.
func (m *MockPublisher) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

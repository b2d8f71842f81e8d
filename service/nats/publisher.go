package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/blinkmart/service/actions"
	"github.com/brojonat/blinkmart/service/metrics"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Publisher defines the interface for publishing action events to NATS.
type Publisher interface {
	// PublishAction publishes a single action event to JetStream.
	// The event is published to the subject "actions.{intent}".
	PublishAction(ctx context.Context, event *actions.Event) error

	// Close closes the connection to NATS.
	Close() error
}

var (
	_ Publisher = (*JetStreamPublisher)(nil)
	_ Publisher = (*MockPublisher)(nil)
)

// JetStreamPublisher publishes action events to NATS JetStream.
type JetStreamPublisher struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	metrics *metrics.Metrics
	logger  *slog.Logger
}

const (
	// StreamName is the name of the JetStream stream for action events.
	StreamName = "ACTIONS"

	// StreamSubjects is the subject pattern for the stream.
	StreamSubjects = "actions.*"

	// StreamRetention is how long messages are retained (7 days by default).
	StreamRetention = 7 * 24 * time.Hour
)

// Subject returns the subject an event is published on. Intents other than
// buy and offer share "actions.unknown" so they stay inside the stream.
func Subject(event *actions.Event) string {
	switch actions.IntentKind(event.Intent) {
	case actions.IntentBuy, actions.IntentOffer:
		return fmt.Sprintf("actions.%s", event.Intent)
	default:
		return "actions.unknown"
	}
}

// NewPublisher creates a new JetStream publisher.
// It connects to NATS and ensures the stream exists. Metrics may be nil.
func NewPublisher(natsURL string, m *metrics.Metrics, logger *slog.Logger) (*JetStreamPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("blinkmart-publisher"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(1*time.Second),
		nats.MaxReconnects(-1), // Unlimited reconnects
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	publisher := &JetStreamPublisher{
		nc:      nc,
		js:      js,
		metrics: m,
		logger:  logger,
	}

	if err := publisher.ensureStream(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream exists: %w", err)
	}

	logger.Info("NATS publisher initialized",
		"url", natsURL,
		"stream", StreamName,
	)

	return publisher, nil
}

// ensureStream creates the JetStream stream if it doesn't exist.
func (p *JetStreamPublisher) ensureStream() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := p.js.Stream(ctx, StreamName); err == nil {
		p.logger.Debug("JetStream stream already exists", "stream", StreamName)
		return nil
	}

	p.logger.Info("creating JetStream stream", "stream", StreamName)

	_, err := p.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Action protocol prepare events",
		Subjects:    []string{StreamSubjects},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      StreamRetention,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// PublishAction publishes a single action event.
func (p *JetStreamPublisher) PublishAction(ctx context.Context, event *actions.Event) error {
	subject := Subject(event)
	start := time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal action event: %w", err)
	}

	// The event id doubles as the JetStream dedup id.
	_, err = p.js.Publish(ctx, subject, data, jetstream.WithMsgID(event.ID))

	status := "success"
	if err != nil {
		status = "error"
	}
	if p.metrics != nil {
		p.metrics.RecordNATSPublish(subject, status, time.Since(start).Seconds())
	}
	if err != nil {
		return fmt.Errorf("failed to publish action event: %w", err)
	}

	p.logger.DebugContext(ctx, "published action event",
		"subject", subject,
		"event_id", event.ID,
		"item_id", event.ItemID,
	)

	return nil
}

// RecordAction implements actions.Recorder.
func (p *JetStreamPublisher) RecordAction(ctx context.Context, event *actions.Event) error {
	return p.PublishAction(ctx, event)
}

// Close closes the connection to NATS.
func (p *JetStreamPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
		p.logger.Info("NATS publisher closed")
	}
	return nil
}

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/platinummonkey/forum/pkg/observability"
)

// conn is the subset of *nats.Conn the publisher uses
type conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	IsConnected() bool
	Drain() error
}

// NATSPublisher publishes events as JSON on core NATS subjects
type NATSPublisher struct {
	conn   conn
	logger *observability.Logger
}

// NewNATSPublisher connects to url. The connection reconnects indefinitely.
func NewNATSPublisher(url string, logger *observability.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = observability.GetLogger(context.Background())
	}
	logger = logger.WithField("component", "events")

	nc, err := nats.Connect(url,
		nats.Name("forum"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.WithError(err).Warn("disconnected from NATS")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.WithField("url", c.ConnectedUrlRedacted()).Info("reconnected to NATS")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return newNATSPublisher(nc, logger), nil
}

func newNATSPublisher(c conn, logger *observability.Logger) *NATSPublisher {
	return &NATSPublisher{conn: c, logger: logger}
}

// Publish sends event on its subject
func (p *NATSPublisher) Publish(ctx context.Context, event *Event) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.conn.Publish(event.Subject, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Subject, err)
	}
	return nil
}

// Ping round-trips to the server; used by the readiness check
func (p *NATSPublisher) Ping(ctx context.Context) error {
	if !p.conn.IsConnected() {
		return fmt.Errorf("not connected to NATS")
	}
	return p.conn.FlushWithContext(ctx)
}

// Close drains pending messages and closes the connection
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

package natsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/datamall/errors"
	"github.com/c360/datamall/metric"
)

// Subject layout for data-change notifications. The user id is the first
// token after the prefix so subscribers can filter per user with a wildcard.
const (
	changesPrefix = "datamall.changes"
)

// ChangeAction discriminates data-change notifications.
type ChangeAction string

// Actions carried by change notifications.
const (
	ActionUpdated ChangeAction = "updated"
	ActionDeleted ChangeAction = "deleted"
)

// Change is the payload of a data-change notification for one event.
type Change struct {
	User    string       `json:"user"`
	EventID string       `json:"eventId"`
	Action  ChangeAction `json:"action"`
}

// ChangeHandler consumes data-change notifications.
type ChangeHandler func(change Change)

// Client manages a NATS connection. It is safe for concurrent use.
type Client struct {
	conn   *nats.Conn
	logger *slog.Logger

	url           string
	name          string
	maxReconnects int
	reconnectWait time.Duration
	metrics       *metric.Metrics
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithName sets the connection name reported to the server.
func WithName(name string) Option {
	return func(c *Client) { c.name = name }
}

// WithMaxReconnects sets the maximum reconnection attempts (-1 for infinite).
func WithMaxReconnects(max int) Option {
	return func(c *Client) { c.maxReconnects = max }
}

// WithReconnectWait sets the wait time between reconnection attempts.
func WithReconnectWait(d time.Duration) Option {
	return func(c *Client) { c.reconnectWait = d }
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics wires connection gauges into the core metric set.
func WithMetrics(m *metric.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// Connect establishes the NATS connection.
func Connect(url string, opts ...Option) (*Client, error) {
	c := &Client{
		url:           url,
		name:          "datamall",
		maxReconnects: -1,
		reconnectWait: 2 * time.Second,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	conn, err := nats.Connect(url,
		nats.Name(c.name),
		nats.MaxReconnects(c.maxReconnects),
		nats.ReconnectWait(c.reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			c.logger.Warn("NATS disconnected", "error", err)
			if c.metrics != nil {
				c.metrics.NATSConnected.Set(0)
			}
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			c.logger.Info("NATS reconnected", "url", conn.ConnectedUrl())
			if c.metrics != nil {
				c.metrics.NATSConnected.Set(1)
				c.metrics.NATSReconnects.Inc()
			}
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			c.logger.Info("NATS connection closed")
			if c.metrics != nil {
				c.metrics.NATSConnected.Set(0)
			}
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "Client", "Connect", fmt.Sprintf("connect to %s", url))
	}

	c.conn = conn
	if c.metrics != nil {
		c.metrics.NATSConnected.Set(1)
	}
	c.logger.Info("NATS connected", "url", conn.ConnectedUrl(), "name", c.name)
	return c, nil
}

// Close drains and closes the connection.
func (c *Client) Close(ctx context.Context) error {
	if c.conn == nil {
		return nil
	}
	done := make(chan error, 1)
	go func() { done <- c.conn.Drain() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		c.conn.Close()
		return ctx.Err()
	}
}

// IsConnected reports the current connection state.
func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// PublishChange publishes a data-change notification for (user, eventID).
func (c *Client) PublishChange(change Change) error {
	if c.conn == nil {
		return errors.Wrap(nats.ErrConnectionClosed, "Client", "PublishChange", "publish")
	}
	payload, err := json.Marshal(change)
	if err != nil {
		return errors.Wrap(err, "Client", "PublishChange", "encode change")
	}
	subject := ChangeSubject(change.User)
	if err := c.conn.Publish(subject, payload); err != nil {
		return errors.Wrap(err, "Client", "PublishChange", "publish to "+subject)
	}
	return nil
}

// SubscribeChanges subscribes to the data-change notifications of every
// user. Malformed payloads are logged and dropped, never delivered.
func (c *Client) SubscribeChanges(handler ChangeHandler) (*nats.Subscription, error) {
	if c.conn == nil {
		return nil, errors.Wrap(nats.ErrConnectionClosed, "Client", "SubscribeChanges", "subscribe")
	}
	subject := changesPrefix + ".>"
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		var change Change
		if err := json.Unmarshal(msg.Data, &change); err != nil {
			c.logger.Warn("dropping malformed change notification",
				"subject", msg.Subject, "error", err)
			return
		}
		handler(change)
	})
	if err != nil {
		return nil, errors.Wrap(err, "Client", "SubscribeChanges", "subscribe to "+subject)
	}
	return sub, nil
}

// ChangeSubject returns the notification subject for one user.
func ChangeSubject(user string) string {
	return fmt.Sprintf("%s.%s", changesPrefix, user)
}

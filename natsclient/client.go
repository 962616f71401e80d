// Package natsclient provides a thin NATS connection wrapper for the remote
// graph backend. It manages connection lifecycle and exposes the
// request/reply primitive the storage layer is built on.
package natsclient

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/champtc/opencti-sub001/errors"
)

// ConnectionStatus represents the current state of the NATS connection.
type ConnectionStatus int

const (
	// StatusDisconnected means no connection is established
	StatusDisconnected ConnectionStatus = iota
	// StatusConnected means the connection is healthy
	StatusConnected
	// StatusClosed means the client has been closed
	StatusClosed
)

// String returns the string representation of the connection status.
func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnected:
		return "connected"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Client wraps a NATS connection with lifecycle management.
type Client struct {
	url    string
	logger *slog.Logger

	clientName    string
	maxReconnects int
	reconnectWait time.Duration
	timeout       time.Duration

	mu     sync.RWMutex
	conn   *nats.Conn
	status ConnectionStatus
}

// ClientOption configures a Client at construction time.
type ClientOption func(*Client)

// WithName sets the client connection name reported to the server.
func WithName(name string) ClientOption {
	return func(c *Client) { c.clientName = name }
}

// WithMaxReconnects sets the reconnection attempt limit (-1 for unlimited).
func WithMaxReconnects(n int) ClientOption {
	return func(c *Client) { c.maxReconnects = n }
}

// WithReconnectWait sets the delay between reconnection attempts.
func WithReconnectWait(d time.Duration) ClientOption {
	return func(c *Client) { c.reconnectWait = d }
}

// WithTimeout sets the default request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a NATS client for the given server URL.
func NewClient(url string, opts ...ClientOption) *Client {
	c := &Client{
		url:           url,
		logger:        slog.Default(),
		maxReconnects: -1,
		reconnectWait: 2 * time.Second,
		timeout:       5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "natsclient")
	return c
}

// Connect establishes the NATS connection. It blocks until connected or the
// context is done.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == StatusConnected {
		return nil
	}
	if c.status == StatusClosed {
		return errors.WrapFatal(errors.ErrBackendUnavailable, "Client", "Connect", "client closed")
	}

	opts := []nats.Option{
		nats.MaxReconnects(c.maxReconnects),
		nats.ReconnectWait(c.reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				c.logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			c.logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	}
	if c.clientName != "" {
		opts = append(opts, nats.Name(c.clientName))
	}
	if deadline, ok := ctx.Deadline(); ok {
		opts = append(opts, nats.Timeout(time.Until(deadline)))
	}

	conn, err := nats.Connect(c.url, opts...)
	if err != nil {
		return errors.WrapTransient(err, "Client", "Connect", "NATS connect")
	}

	c.conn = conn
	c.status = StatusConnected
	c.logger.Info("NATS connected", "url", c.url)
	return nil
}

// Request performs a request/reply exchange. The context deadline bounds the
// wait; without one the client's default timeout applies.
func (c *Client) Request(ctx context.Context, subject string, payload []byte) ([]byte, error) {
	c.mu.RLock()
	conn := c.conn
	status := c.status
	c.mu.RUnlock()

	if status != StatusConnected || conn == nil {
		return nil, errors.WrapTransient(errors.ErrBackendUnavailable, "Client", "Request", "not connected")
	}

	reqCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	msg, err := conn.RequestWithContext(reqCtx, subject, payload)
	if err != nil {
		return nil, err
	}
	return msg.Data, nil
}

// IsHealthy reports whether the connection is established and open.
func (c *Client) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status == StatusConnected && c.conn != nil && c.conn.IsConnected()
}

// Close drains and closes the connection. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == StatusClosed {
		return
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.status = StatusClosed
	c.logger.Info("NATS connection closed")
}

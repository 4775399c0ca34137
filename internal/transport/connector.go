package transport

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/luciancaetano/tickwire/internal/queue"
)

// DefaultRetryDelay is the pause between failed connection attempts.
const DefaultRetryDelay = time.Second

// DialFunc opens one stream to addr.
type DialFunc func(ctx context.Context, addr string) (Stream, error)

// Connector is the client side Acceptor. Every target pushed with Connect
// yields exactly one stream: failed attempts are retried every retry delay
// until one succeeds or ctx is done.
type Connector struct {
	dial    DialFunc
	delay   time.Duration
	targets *queue.Queue[string]
	log     zerolog.Logger

	mu   sync.Mutex
	last string
}

// NewConnector returns a connector using dial. A non-positive retryDelay
// selects DefaultRetryDelay.
func NewConnector(dial DialFunc, retryDelay time.Duration, logger zerolog.Logger) *Connector {
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	return &Connector{
		dial:    dial,
		delay:   retryDelay,
		targets: queue.New[string](),
		log:     logger.With().Str("component", "connector").Logger(),
	}
}

// Connect queues addr for the next Accept.
func (c *Connector) Connect(addr string) error {
	return c.targets.Send(addr)
}

// Accept takes the next target and dials it until it succeeds. It returns
// io.EOF once the connector is closed and no targets remain, and abandons a
// target still being retried when Close is called.
func (c *Connector) Accept(ctx context.Context) (Stream, error) {
	addr, ok, err := c.targets.Recv(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, io.EOF
	}

	c.mu.Lock()
	c.last = addr
	c.mu.Unlock()

	for attempt := 1; ; attempt++ {
		stream, err := c.dial(ctx, addr)
		if err == nil {
			c.log.Debug().Str("addr", addr).Int("attempt", attempt).Msg("connected")
			return stream, nil
		}
		c.log.Debug().Err(err).Str("addr", addr).Int("attempt", attempt).Msg("connect failed, retrying")

		timer := time.NewTimer(c.delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-c.targets.Done():
			timer.Stop()
			return nil, io.EOF
		}
	}
}

// Close makes Accept return io.EOF once queued targets are used up. A pending
// retry stops at its next back-off.
func (c *Connector) Close() error {
	c.targets.Close()
	return nil
}

// Addr returns the most recent target.
func (c *Connector) Addr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

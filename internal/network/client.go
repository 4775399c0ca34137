package network

import (
	"sync"

	"github.com/go-faster/errors"

	"github.com/luciancaetano/tickwire"
	"github.com/luciancaetano/tickwire/internal/mediator"
	"github.com/luciancaetano/tickwire/internal/protocol"
	"github.com/luciancaetano/tickwire/internal/task"
	"github.com/luciancaetano/tickwire/internal/transport"
)

// Client connects to one server at a time, receives ServerPacket values and
// sends ClientPacket values.
//
// Reconnecting is up to the owner: after HandleDisconnections reports the
// server gone, call Connect again.
type Client struct {
	*Base[protocol.ServerKind, protocol.ServerPacket]
	connector *transport.Connector

	mu     sync.RWMutex
	server *task.Handle
}

// NewClient returns a client dialling with dial. Nothing is dialled until
// Connect is called.
func NewClient(dial transport.DialFunc, senders *mediator.SenderMap[protocol.ServerKind, protocol.ServerPacket], cfg Config) *Client {
	connector := transport.NewConnector(dial, cfg.RetryDelay, cfg.Logger)
	return &Client{
		Base:      NewBase(connector, senders, protocol.ClientCodec.Heartbeat(), cfg),
		connector: connector,
	}
}

// Connect queues addr. The connection appears after it is established and
// SpawnTasksForNewConnections has run; failed attempts are retried forever.
func (c *Client) Connect(addr string) error {
	if c.Closed() {
		return ErrNetworkClosed
	}
	if err := c.connector.Connect(addr); err != nil {
		return errors.Wrapf(ErrNetworkClosed, "connect %s", addr)
	}
	return nil
}

// SpawnTasksForNewConnections starts the connection established since the
// previous call, replacing the current one if any. onNew may be nil.
func (c *Client) SpawnTasksForNewConnections(onNew func(protocol.ConnectionID)) int {
	return c.spawnNew(func(h *task.Handle) {
		c.mu.Lock()
		previous := c.server
		c.server = h
		c.mu.Unlock()

		if previous != nil {
			previous.Disconnect()
		}
		if onNew != nil {
			onNew(h.ID())
		}
	})
}

// HandleDisconnections drains lifecycle events. The current server is
// forgotten when its connection is reported. onDisconnect may be nil.
func (c *Client) HandleDisconnections(onDisconnect func(protocol.ConnectionID)) int {
	return c.handleEvents(func(id protocol.ConnectionID) {
		c.mu.Lock()
		if c.server != nil && c.server.ID() == id {
			c.server = nil
		}
		c.mu.Unlock()

		if onDisconnect != nil {
			onDisconnect(id)
		}
	})
}

// IsConnected reports whether a server connection is spawned and not yet
// reported disconnected.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.server != nil
}

// ConnectionID returns the local id of the server connection.
func (c *Client) ConnectionID() (protocol.ConnectionID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.server == nil {
		return 0, false
	}
	return c.server.ID(), true
}

// Send encodes packet and queues it for the server.
func (c *Client) Send(packet protocol.ClientPacket) error {
	c.mu.RLock()
	h := c.server
	c.mu.RUnlock()
	if h == nil {
		return ErrNotConnected
	}

	encoded, err := protocol.ClientCodec.EncodeLimit(packet, c.maxFrameLength())
	if err != nil {
		return errors.Wrap(err, tickwire.ErrFailedToEncode)
	}
	return sendHandle(h, encoded)
}

// Disconnect drops the current server connection, if any.
func (c *Client) Disconnect() {
	c.mu.RLock()
	h := c.server
	c.mu.RUnlock()
	if h != nil {
		h.Disconnect()
	}
}

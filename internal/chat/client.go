package chat

import (
	"fmt"
	"io"
	"sort"

	"github.com/rs/zerolog"

	"github.com/luciancaetano/tickwire/internal/mediator"
	"github.com/luciancaetano/tickwire/internal/network"
	"github.com/luciancaetano/tickwire/internal/protocol"
	"github.com/luciancaetano/tickwire/internal/queue"
	"github.com/luciancaetano/tickwire/internal/transport"
	"github.com/luciancaetano/tickwire/timewheel"
)

// Client is the terminal side of the demo. Chat lines and entity changes are
// written to out as they arrive.
type Client struct {
	net *network.Client
	out io.Writer
	log zerolog.Logger

	accepted *queue.Queue[mediator.PacketWithConnID[protocol.AcceptConnection]]
	chat     *queue.Queue[mediator.PacketWithConnID[protocol.MessageReceived]]
	targets  *queue.Queue[mediator.PacketWithConnID[protocol.PathTarget]]
	spawns   *queue.Queue[mediator.PacketWithConnID[protocol.SpawnEntity]]
	despawns *queue.Queue[mediator.PacketWithConnID[protocol.DespawnEntity]]
	syncs    *queue.Queue[mediator.PacketWithConnID[protocol.TickSync]]

	self     protocol.NetworkID
	tick     timewheel.Tick
	entities map[protocol.NetworkID]struct{}
}

// NewClient returns a client dialling with dial. Call Connect to reach a server.
func NewClient(dial transport.DialFunc, cfg network.Config, out io.Writer) *Client {
	senders := mediator.NewServerSenderMap()
	c := &Client{
		out:      out,
		log:      cfg.Logger.With().Str("component", "chat").Logger(),
		accepted: mediator.Subscribe[protocol.AcceptConnection](senders),
		chat:     mediator.Subscribe[protocol.MessageReceived](senders),
		targets:  mediator.Subscribe[protocol.PathTarget](senders),
		spawns:   mediator.Subscribe[protocol.SpawnEntity](senders),
		despawns: mediator.Subscribe[protocol.DespawnEntity](senders),
		syncs:    mediator.Subscribe[protocol.TickSync](senders),
		entities: make(map[protocol.NetworkID]struct{}),
	}
	senders.MustBeComplete()
	c.net = network.NewClient(dial, senders, cfg)
	return c
}

// Network returns the underlying network client.
func (c *Client) Network() *network.Client {
	return c.net
}

// Connect queues addr for the connector.
func (c *Client) Connect(addr string) error {
	return c.net.Connect(addr)
}

// Self returns the id the server assigned to this client, zero until
// AcceptConnection arrives.
func (c *Client) Self() protocol.NetworkID {
	return c.self
}

// Tick returns the local tick, kept in step with the server.
func (c *Client) Tick() uint64 {
	return c.tick.Current()
}

// Entities returns the ids of the entities the server announced, sorted.
func (c *Client) Entities() []protocol.NetworkID {
	ids := make([]protocol.NetworkID, 0, len(c.entities))
	for id := range c.entities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Say sends a chat line.
func (c *Client) Say(kind protocol.MessageKind, contents string) error {
	return c.net.Send(protocol.SendMessage{Kind: kind, Contents: contents})
}

// MoveTo asks the server to move this client's entity.
func (c *Client) MoveTo(x, y int32) error {
	return c.net.Send(protocol.PathTargetRequest{X: x, Y: y})
}

// Query asks the server whether an entity exists.
func (c *Client) Query(id protocol.NetworkID) error {
	return c.net.Send(protocol.QueryEntity{ID: id})
}

// Step advances the local tick and applies everything received since the
// previous call.
func (c *Client) Step() {
	c.tick.Increment()

	c.net.SpawnTasksForNewConnections(func(id protocol.ConnectionID) {
		c.log.Debug().Uint64("connection_id", uint64(id)).Msg("connected")
	})
	c.net.HandleDisconnections(func(protocol.ConnectionID) {
		c.self = 0
		c.entities = make(map[protocol.NetworkID]struct{})
		c.printf("* disconnected\n")
	})

	for _, p := range c.accepted.Drain() {
		c.self = protocol.NetworkID(p.Packet.ConnectionID)
		c.printf("* connected as %d\n", c.self)
	}
	for _, p := range c.syncs.Drain() {
		c.tick.Set(p.Packet.Current)
	}
	for _, p := range c.spawns.Drain() {
		c.entities[p.Packet.ID] = struct{}{}
		if p.Packet.ID != c.self {
			c.printf("* %d is here\n", p.Packet.ID)
		}
	}
	for _, p := range c.despawns.Drain() {
		if _, ok := c.entities[p.Packet.ID]; ok {
			delete(c.entities, p.Packet.ID)
			c.printf("* %d left\n", p.Packet.ID)
		}
	}
	for _, p := range c.targets.Drain() {
		c.printf("* %d moved to (%d, %d)\n", p.Packet.ID, p.Packet.CurrentX, p.Packet.CurrentY)
	}
	for _, p := range c.chat.Drain() {
		c.printf("[%s] %d: %s\n", p.Packet.Kind, p.Packet.Sender, p.Packet.Contents)
	}
}

// Close shuts the network client down.
func (c *Client) Close() error {
	return c.net.Close()
}

func (c *Client) printf(format string, args ...any) {
	if c.out == nil {
		return
	}
	fmt.Fprintf(c.out, format, args...)
}

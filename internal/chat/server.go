// Package chat is the demo collaborator run by the tickwire binary. The
// server relays chat lines to every client, announces joins and leaves,
// answers entity queries, moves entities toward requested targets on the
// timing wheel and keeps clients in step with TickSync.
package chat

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/luciancaetano/tickwire/internal/mediator"
	"github.com/luciancaetano/tickwire/internal/network"
	"github.com/luciancaetano/tickwire/internal/protocol"
	"github.com/luciancaetano/tickwire/internal/queue"
	"github.com/luciancaetano/tickwire/internal/transport"
	"github.com/luciancaetano/tickwire/timewheel"
)

const (
	// DefaultSyncEvery is how many ticks pass between TickSync broadcasts.
	DefaultSyncEvery = 20
	wheelDepth       = 2
)

type eventKind uint8

const (
	tickSync eventKind = iota
	arrive
)

type event struct {
	kind eventKind
	id   protocol.ConnectionID
	x, y int32
}

type position struct{ x, y int32 }

// Server is the simulation side of the demo. It is driven by Step, either
// directly or through Run.
type Server struct {
	net       *network.Server
	syncEvery uint64
	log       zerolog.Logger

	messages *queue.Queue[mediator.PacketWithConnID[protocol.SendMessage]]
	paths    *queue.Queue[mediator.PacketWithConnID[protocol.PathTargetRequest]]
	queries  *queue.Queue[mediator.PacketWithConnID[protocol.QueryEntity]]

	timer     *timewheel.Timer[event]
	positions map[protocol.ConnectionID]position
}

// ServerOptions configures NewServer.
type ServerOptions struct {
	// Network.Logger is replaced by Logger.
	Network network.Config
	// SyncEvery defaults to DefaultSyncEvery.
	SyncEvery uint64
	Logger    zerolog.Logger
}

// NewServer starts a network server on acceptor with every client packet kind
// routed to the relay.
func NewServer(acceptor transport.Acceptor, opts ServerOptions) *Server {
	senders := mediator.NewClientSenderMap()
	s := &Server{
		syncEvery: opts.SyncEvery,
		log:       opts.Logger.With().Str("component", "chat").Logger(),
		messages:  mediator.Subscribe[protocol.SendMessage](senders),
		paths:     mediator.Subscribe[protocol.PathTargetRequest](senders),
		queries:   mediator.Subscribe[protocol.QueryEntity](senders),
		timer:     timewheel.NewTimer[event](wheelDepth),
		positions: make(map[protocol.ConnectionID]position),
	}
	senders.MustBeComplete()

	if s.syncEvery == 0 {
		s.syncEvery = DefaultSyncEvery
	}
	opts.Network.Logger = opts.Logger
	s.net = network.NewServer(acceptor, senders, opts.Network)
	s.schedule(1, event{kind: tickSync})
	return s
}

// Network returns the underlying network server.
func (s *Server) Network() *network.Server {
	return s.net
}

// Tick returns the current simulation tick.
func (s *Server) Tick() uint64 {
	return s.timer.Now()
}

// Position returns where the entity of a connection stands.
func (s *Server) Position(id protocol.ConnectionID) (x, y int32, ok bool) {
	p, ok := s.positions[id]
	return p.x, p.y, ok
}

// Run calls Step every interval until ctx is done, then closes the network.
func (s *Server) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info().Str("addr", s.net.Addr()).Dur("interval", interval).Msg("simulation started")
	for {
		select {
		case <-ctx.Done():
			s.Step()
			return s.net.Close()
		case <-ticker.C:
			s.Step()
		}
	}
}

// Step runs one simulation tick: connection bookkeeping, inbound packets,
// then the events due on the next tick.
func (s *Server) Step() {
	s.net.SpawnTasksForNewConnections(s.join)
	s.net.HandleDisconnections(s.leave)

	for _, msg := range s.messages.Drain() {
		s.broadcast(protocol.MessageReceived{
			Sender:   protocol.NetworkID(msg.ConnectionID),
			Kind:     msg.Packet.Kind,
			Contents: msg.Packet.Contents,
		})
	}
	for _, q := range s.queries.Drain() {
		s.answer(q.ConnectionID, protocol.ConnectionID(q.Packet.ID))
	}
	for _, req := range s.paths.Drain() {
		s.move(req.ConnectionID, req.Packet.X, req.Packet.Y)
	}

	for _, ev := range s.timer.Advance() {
		switch ev.kind {
		case tickSync:
			s.broadcast(protocol.TickSync{Current: s.timer.Now()})
			s.schedule(s.syncEvery, event{kind: tickSync})
		case arrive:
			s.arrive(ev)
		}
	}
}

func (s *Server) join(id protocol.ConnectionID) {
	for other := range s.positions {
		s.send(protocol.SpawnEntity{ID: protocol.NetworkID(other)}, id)
	}
	s.positions[id] = position{}
	s.broadcast(protocol.SpawnEntity{ID: protocol.NetworkID(id)})
	s.send(protocol.TickSync{Current: s.timer.Now()}, id)
	s.log.Info().Uint64("connection_id", uint64(id)).Msg("joined")
}

func (s *Server) leave(id protocol.ConnectionID) {
	delete(s.positions, id)
	s.broadcast(protocol.DespawnEntity{ID: protocol.NetworkID(id)})
	s.log.Info().Uint64("connection_id", uint64(id)).Msg("left")
}

func (s *Server) answer(to, about protocol.ConnectionID) {
	if _, ok := s.positions[about]; ok {
		s.send(protocol.SpawnEntity{ID: protocol.NetworkID(about)}, to)
		return
	}
	s.send(protocol.DespawnEntity{ID: protocol.NetworkID(about)}, to)
}

// move schedules the arrival one tick per grid step away, never past the
// wheel horizon.
func (s *Server) move(id protocol.ConnectionID, x, y int32) {
	from, ok := s.positions[id]
	if !ok {
		return
	}
	steps := distance(from, position{x, y})
	if horizon := s.timer.Wheel().Capacity() - 1; steps > horizon {
		steps = horizon
	}
	if steps == 0 {
		steps = 1
	}
	s.schedule(steps, event{kind: arrive, id: id, x: x, y: y})
}

func (s *Server) arrive(ev event) {
	if _, ok := s.positions[ev.id]; !ok {
		return
	}
	s.positions[ev.id] = position{ev.x, ev.y}
	s.broadcast(protocol.PathTarget{
		ID:       protocol.NetworkID(ev.id),
		X:        ev.x,
		Y:        ev.y,
		CurrentX: ev.x,
		CurrentY: ev.y,
	})
}

func (s *Server) schedule(delay uint64, ev event) {
	if err := s.timer.ScheduleIn(delay, ev); err != nil {
		s.log.Error().Err(err).Uint64("delay", delay).Msg("schedule event")
	}
}

func (s *Server) send(packet protocol.ServerPacket, id protocol.ConnectionID) {
	if err := s.net.Send(packet, id); err != nil {
		s.log.Debug().Err(err).Uint64("connection_id", uint64(id)).Msg("send")
	}
}

func (s *Server) broadcast(packet protocol.ServerPacket) {
	if err := s.net.Broadcast(packet); err != nil {
		s.log.Warn().Err(err).Msg("broadcast")
	}
}

func distance(a, b position) uint64 {
	return uint64(abs(int64(a.x)-int64(b.x)) + abs(int64(a.y)-int64(b.y)))
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

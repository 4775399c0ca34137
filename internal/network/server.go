package network

import (
	"sort"
	"sync"

	"github.com/go-faster/errors"

	"github.com/luciancaetano/tickwire"
	"github.com/luciancaetano/tickwire/internal/mediator"
	"github.com/luciancaetano/tickwire/internal/protocol"
	"github.com/luciancaetano/tickwire/internal/queue"
	"github.com/luciancaetano/tickwire/internal/task"
	"github.com/luciancaetano/tickwire/internal/transport"
)

// Server accepts clients, receives ClientPacket values and sends ServerPacket
// values.
type Server struct {
	*Base[protocol.ClientKind, protocol.ClientPacket]

	mu      sync.RWMutex
	clients map[protocol.ConnectionID]*task.Handle
}

// NewServer starts accepting on acceptor and routes inbound packets through senders.
func NewServer(acceptor transport.Acceptor, senders *mediator.SenderMap[protocol.ClientKind, protocol.ClientPacket], cfg Config) *Server {
	return &Server{
		Base:    NewBase(acceptor, senders, protocol.ServerCodec.Heartbeat(), cfg),
		clients: make(map[protocol.ConnectionID]*task.Handle),
	}
}

// Addr returns the bound listen address.
func (s *Server) Addr() string {
	return s.acceptor.Addr()
}

// SpawnTasksForNewConnections starts every connection accepted since the
// previous call. Each client is told its connection id with AcceptConnection
// before onNew runs. onNew may be nil.
func (s *Server) SpawnTasksForNewConnections(onNew func(protocol.ConnectionID)) int {
	return s.spawnNew(func(h *task.Handle) {
		accept, err := s.encode(protocol.AcceptConnection{ConnectionID: h.ID()})
		if err == nil {
			err = h.Send(accept)
		}
		if err != nil {
			s.log.Warn().Err(err).Uint64("connection_id", uint64(h.ID())).Msg("announce connection id")
		}

		s.mu.Lock()
		s.clients[h.ID()] = h
		s.mu.Unlock()

		if onNew != nil {
			onNew(h.ID())
		}
	})
}

// HandleDisconnections forgets every client reported disconnected since the
// previous call and passes its id to onDisconnect, which may be nil.
func (s *Server) HandleDisconnections(onDisconnect func(protocol.ConnectionID)) int {
	return s.handleEvents(func(id protocol.ConnectionID) {
		s.mu.Lock()
		delete(s.clients, id)
		s.mu.Unlock()

		if onDisconnect != nil {
			onDisconnect(id)
		}
	})
}

// Clients returns the ids of the spawned clients in ascending order.
func (s *Server) Clients() []protocol.ConnectionID {
	s.mu.RLock()
	ids := make([]protocol.ConnectionID, 0, len(s.clients))
	for id := range s.clients {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Disconnect drops one client. The Disconnected event follows as usual.
func (s *Server) Disconnect(id protocol.ConnectionID) error {
	h, ok := s.client(id)
	if !ok {
		return errors.Wrapf(ErrUnknownConnection, "connection %d", id)
	}
	h.Disconnect()
	return nil
}

// Send encodes packet and queues it for one client.
func (s *Server) Send(packet protocol.ServerPacket, id protocol.ConnectionID) error {
	h, ok := s.client(id)
	if !ok {
		return errors.Wrapf(ErrUnknownConnection, "connection %d", id)
	}
	encoded, err := s.encode(packet)
	if err != nil {
		return err
	}
	return sendHandle(h, encoded)
}

// SendAll encodes packet once and queues the same frame for every id. Unknown
// or already closed connections are skipped.
func (s *Server) SendAll(ids []protocol.ConnectionID, packet protocol.ServerPacket) error {
	encoded, err := s.encode(packet)
	if err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range ids {
		if h, ok := s.clients[id]; ok {
			_ = h.Send(encoded)
		}
	}
	return nil
}

// Broadcast sends packet to every spawned client.
func (s *Server) Broadcast(packet protocol.ServerPacket) error {
	return s.SendAll(s.Clients(), packet)
}

func (s *Server) client(id protocol.ConnectionID) (*task.Handle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.clients[id]
	return h, ok
}

func (s *Server) encode(packet protocol.ServerPacket) (protocol.EncodedPacket, error) {
	encoded, err := protocol.ServerCodec.EncodeLimit(packet, s.maxFrameLength())
	if err != nil {
		return protocol.EncodedPacket{}, errors.Wrap(err, tickwire.ErrFailedToEncode)
	}
	return encoded, nil
}

func (b *Base[K, P]) maxFrameLength() int {
	if b.cfg.MaxFrameLength <= 0 {
		return protocol.DefaultMaxFrameLength
	}
	return b.cfg.MaxFrameLength
}

func sendHandle(h *task.Handle, encoded protocol.EncodedPacket) error {
	if err := h.Send(encoded); err != nil {
		if errors.Is(err, queue.ErrClosed) {
			return errors.Wrapf(ErrConnectionClosed, "connection %d", h.ID())
		}
		return err
	}
	return nil
}

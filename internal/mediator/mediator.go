// Package mediator routes decoded packets to the consumer queue registered for
// their kind.
//
// A SenderMap is built once per role at startup: Subscribe registers a typed
// queue for one packet variant, and the map arrives with a NullSink already
// registered for Heartbeat. Mediator freezes the map into a read-only routing
// table that every receive task of the role shares.
package mediator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-faster/errors"

	"github.com/luciancaetano/tickwire/internal/protocol"
	"github.com/luciancaetano/tickwire/internal/queue"
)

// ErrConsumerClosed is returned by Mediator.Send when the consumer queue for
// the packet's kind has been closed.
var ErrConsumerClosed = errors.Wrap(queue.ErrClosed, "consumer closed")

// AnyPacket is a decoded packet of either union paired with the connection it
// arrived on.
type AnyPacket[P any] struct {
	Packet       P
	ConnectionID protocol.ConnectionID
}

// PacketWithConnID is what consumers receive: one concrete variant plus the
// connection it arrived on.
type PacketWithConnID[T any] struct {
	Packet       T
	ConnectionID protocol.ConnectionID
}

// Handler consumes packets of one kind.
type Handler[P any] interface {
	Handle(packet AnyPacket[P]) error
}

// NullSink discards every packet.
type NullSink[P any] struct{}

func (NullSink[P]) Handle(AnyPacket[P]) error { return nil }

// Sender forwards packets of variant T to a queue.
type Sender[T, P any] struct {
	queue *queue.Queue[PacketWithConnID[T]]
}

// NewSender returns a handler that pushes onto q.
func NewSender[T, P any](q *queue.Queue[PacketWithConnID[T]]) Sender[T, P] {
	return Sender[T, P]{queue: q}
}

func (s Sender[T, P]) Handle(packet AnyPacket[P]) error {
	v, ok := any(packet.Packet).(T)
	if !ok {
		panic(fmt.Sprintf("mediator: %T routed to sender for %T", packet.Packet, v))
	}
	err := s.queue.Send(PacketWithConnID[T]{Packet: v, ConnectionID: packet.ConnectionID})
	if errors.Is(err, queue.ErrClosed) {
		return errors.Wrapf(ErrConsumerClosed, "%T", v)
	}
	return err
}

// SenderMap maps every kind of one packet union to exactly one handler.
type SenderMap[K protocol.Kind, P any] struct {
	codec    protocol.Codec[K, P]
	handlers map[K]Handler[P]
}

// NewSenderMap returns a map for the union described by codec with Heartbeat
// routed to a NullSink.
func NewSenderMap[K protocol.Kind, P any](codec protocol.Codec[K, P]) *SenderMap[K, P] {
	m := &SenderMap[K, P]{
		codec:    codec,
		handlers: make(map[K]Handler[P], len(codec.Kinds())),
	}
	m.Add(codec.KindOf(any(protocol.Heartbeat{}).(P)), NullSink[P]{})
	return m
}

// NewClientSenderMap routes packets received by a server.
func NewClientSenderMap() *SenderMap[protocol.ClientKind, protocol.ClientPacket] {
	return NewSenderMap(protocol.ClientCodec)
}

// NewServerSenderMap routes packets received by a client.
func NewServerSenderMap() *SenderMap[protocol.ServerKind, protocol.ServerPacket] {
	return NewSenderMap(protocol.ServerCodec)
}

// Codec returns the codec of the routed union.
func (m *SenderMap[K, P]) Codec() protocol.Codec[K, P] {
	return m.codec
}

// Add registers handler for kind. Registering a kind twice panics.
func (m *SenderMap[K, P]) Add(kind K, handler Handler[P]) {
	if _, ok := m.handlers[kind]; ok {
		panic(fmt.Sprintf("mediator: handler for %s registered twice", kind))
	}
	m.handlers[kind] = handler
}

// Ignore routes kind to a NullSink.
func (m *SenderMap[K, P]) Ignore(kind K) {
	m.Add(kind, NullSink[P]{})
}

// Missing returns the kinds of the union with no registered handler, sorted by name.
func (m *SenderMap[K, P]) Missing() []K {
	var missing []K
	for _, kind := range m.codec.Kinds() {
		if _, ok := m.handlers[kind]; !ok {
			missing = append(missing, kind)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i].String() < missing[j].String() })
	return missing
}

// MustBeComplete panics unless every kind has a handler.
func (m *SenderMap[K, P]) MustBeComplete() {
	missing := m.Missing()
	if len(missing) == 0 {
		return
	}
	names := make([]string, len(missing))
	for i, kind := range missing {
		names[i] = kind.String()
	}
	panic(fmt.Sprintf("mediator: no handler for %s packets: %s", m.codec.Role(), strings.Join(names, ", ")))
}

// Mediator returns a read-only routing table holding a snapshot of the map.
func (m *SenderMap[K, P]) Mediator() Mediator[K, P] {
	handlers := make(map[K]Handler[P], len(m.handlers))
	for k, h := range m.handlers {
		handlers[k] = h
	}
	return Mediator[K, P]{kindOf: m.codec.KindOf, handlers: handlers}
}

// Subscribe creates a queue for variant T and registers it on m. T must be a
// variant of P.
func Subscribe[T any, K protocol.Kind, P any](m *SenderMap[K, P]) *queue.Queue[PacketWithConnID[T]] {
	var zero T
	variant, ok := any(zero).(P)
	if !ok {
		panic(fmt.Sprintf("mediator: %T is not a %s packet", zero, m.codec.Role()))
	}
	q := queue.New[PacketWithConnID[T]]()
	m.Add(m.codec.KindOf(variant), NewSender[T, P](q))
	return q
}

// Mediator is the shared routing table of one role. It is safe for
// concurrent use and cheap to copy.
type Mediator[K protocol.Kind, P any] struct {
	kindOf   func(P) K
	handlers map[K]Handler[P]
}

// Send routes packet to the handler registered for its kind. A kind with no
// handler is a wiring bug and panics.
func (m Mediator[K, P]) Send(packet AnyPacket[P]) error {
	kind := m.kindOf(packet.Packet)
	handler, ok := m.handlers[kind]
	if !ok {
		panic(fmt.Sprintf("mediator: no handler registered for %s", kind))
	}
	return handler.Handle(packet)
}

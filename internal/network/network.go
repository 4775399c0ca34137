// Package network ties the transport, the connection tasks and the routing
// table of one role together.
//
// Neither role runs callbacks on network goroutines. The owner polls instead:
// SpawnTasksForNewConnections starts the tasks of streams accepted since the
// previous call, and HandleDisconnections drains the Disconnected events.
// Both are meant to be called once per simulation step.
package network

import (
	"context"
	"sync"
	"time"

	"github.com/glycerine/idem"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/luciancaetano/tickwire"
	"github.com/luciancaetano/tickwire/internal/mediator"
	"github.com/luciancaetano/tickwire/internal/protocol"
	"github.com/luciancaetano/tickwire/internal/queue"
	"github.com/luciancaetano/tickwire/internal/task"
	"github.com/luciancaetano/tickwire/internal/transport"
)

var (
	ErrUnknownConnection = errors.New(tickwire.ErrUnknownConnection)
	ErrNotConnected      = errors.New(tickwire.ErrNotConnected)
	ErrConnectionClosed  = errors.New(tickwire.ErrConnectionClosed)
	ErrNetworkClosed     = errors.New(tickwire.ErrNetworkClosed)
)

type (
	Event     = task.Event
	EventType = task.EventType
)

const Disconnected = task.Disconnected

// Config holds the settings shared by both roles. Zero values select defaults.
type Config struct {
	HeartbeatInterval time.Duration
	MaxFrameLength    int
	RateLimit         *task.RateLimitConfig

	// RetryDelay is the pause between failed dials of a client.
	RetryDelay time.Duration

	// IDs assigns connection ids. nil selects the process-wide counter.
	IDs transport.IDGenerator

	Logger zerolog.Logger
}

// Base owns the accept task, the queue of established but not yet spawned
// connections, the event queue and the shutdown signal. K and P describe the
// union this side receives.
type Base[K protocol.Kind, P any] struct {
	cfg       Config
	codec     protocol.Codec[K, P]
	mediator  mediator.Mediator[K, P]
	heartbeat protocol.EncodedPacket
	acceptor  transport.Acceptor
	instance  uuid.UUID
	log       zerolog.Logger

	newConns *queue.Queue[transport.Connection]
	events   *queue.Queue[Event]
	shutdown *idem.Halter

	cancel     context.CancelFunc
	acceptDone chan struct{}
	closeOnce  sync.Once

	// mu orders spawning against Close so handles.Add never races Wait.
	mu      sync.Mutex
	handles sync.WaitGroup
}

// NewBase starts accepting on acceptor. heartbeat is the pre-encoded
// heartbeat of the union this side sends.
func NewBase[K protocol.Kind, P any](acceptor transport.Acceptor, senders *mediator.SenderMap[K, P], heartbeat protocol.EncodedPacket, cfg Config) *Base[K, P] {
	if cfg.IDs == nil {
		cfg.IDs = transport.GlobalIDs
	}

	instance := uuid.New()
	codec := senders.Codec()
	log := cfg.Logger.With().
		Str("component", "network").
		Stringer("role", codec.Role().Opposite()).
		Str("instance", instance.String()).
		Logger()

	if missing := senders.Missing(); len(missing) > 0 {
		arr := zerolog.Arr()
		for _, k := range missing {
			arr.Str(k.String())
		}
		log.Warn().Array("missing_kinds", arr).Msg("packets of these kinds will panic when received")
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Base[K, P]{
		cfg:        cfg,
		codec:      codec,
		mediator:   senders.Mediator(),
		heartbeat:  heartbeat,
		acceptor:   acceptor,
		instance:   instance,
		log:        log,
		newConns:   queue.New[transport.Connection](),
		events:     queue.New[Event](),
		shutdown:   idem.NewHalter(),
		cancel:     cancel,
		acceptDone: make(chan struct{}),
	}

	go func() {
		defer close(b.acceptDone)
		task.Accept(ctx, acceptor, cfg.IDs, b.newConns, log)
	}()
	return b
}

// Instance identifies this network in logs.
func (b *Base[K, P]) Instance() uuid.UUID {
	return b.instance
}

// Events returns the lifecycle event queue.
func (b *Base[K, P]) Events() *queue.Queue[Event] {
	return b.events
}

// Logger returns the network logger.
func (b *Base[K, P]) Logger() zerolog.Logger {
	return b.log
}

// PendingConnections returns how many established streams wait to be spawned.
func (b *Base[K, P]) PendingConnections() int {
	return b.newConns.Len()
}

// spawnNew starts the tasks of every pending connection and hands each handle
// to fn. It returns the number of spawned connections.
func (b *Base[K, P]) spawnNew(fn func(*task.Handle)) int {
	n := 0
	for {
		conn, ok := b.newConns.TryRecv()
		if !ok {
			return n
		}
		h := b.spawn(conn)
		if h == nil {
			_ = conn.Stream.Close()
			continue
		}

		b.log.Info().
			Uint64("connection_id", uint64(h.ID())).
			Stringer("remote_addr", h.RemoteAddr()).
			Msg("connection spawned")
		fn(h)
		n++
	}
}

func (b *Base[K, P]) spawn(conn transport.Connection) *task.Handle {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.shutdown.ReqStop.IsClosed() {
		return nil
	}

	h := task.Spawn(conn, task.Options[K, P]{
		Codec:             b.codec,
		Mediator:          b.mediator,
		Heartbeat:         b.heartbeat,
		HeartbeatInterval: b.cfg.HeartbeatInterval,
		MaxFrameLength:    b.cfg.MaxFrameLength,
		RateLimit:         b.cfg.RateLimit,
		Shutdown:          b.shutdown,
		Events:            b.events,
		Logger:            b.log,
	})
	b.handles.Add(1)
	go func() {
		<-h.Done()
		b.handles.Done()
	}()
	return h
}

// handleEvents drains the event queue, calling fn for each disconnection.
func (b *Base[K, P]) handleEvents(fn func(protocol.ConnectionID)) int {
	events := b.events.Drain()
	for _, ev := range events {
		if ev.Type == Disconnected {
			fn(ev.ConnectionID)
		}
	}
	return len(events)
}

// Close stops accepting, signals shutdown to every connection and waits for
// all of them to report their disconnection. The events stay queued for a
// final HandleDisconnections.
func (b *Base[K, P]) Close() error {
	var err error
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.shutdown.ReqStop.Close()
		b.mu.Unlock()

		b.cancel()
		err = b.acceptor.Close()
		<-b.acceptDone

		b.newConns.Close()
		for _, conn := range b.newConns.Drain() {
			_ = conn.Stream.Close()
		}

		b.handles.Wait()
		b.shutdown.Done.Close()
		b.log.Info().Msg("network closed")
	})
	return err
}

// Closed reports whether Close has been called.
func (b *Base[K, P]) Closed() bool {
	return b.shutdown.ReqStop.IsClosed()
}

// Package task runs the goroutines that drive one connection: a receive task
// that decodes frames and routes them, a send task that writes queued frames
// and heartbeats, and a watcher that tears both down and reports the
// disconnection exactly once.
package task

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/glycerine/idem"
	"github.com/go-faster/errors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/luciancaetano/tickwire"
	"github.com/luciancaetano/tickwire/internal/mediator"
	"github.com/luciancaetano/tickwire/internal/protocol"
	"github.com/luciancaetano/tickwire/internal/queue"
	"github.com/luciancaetano/tickwire/internal/transport"
)

// DefaultHeartbeatInterval is how long a connection may stay silent before a
// heartbeat is written.
const DefaultHeartbeatInterval = time.Second

// EventType classifies connection lifecycle events.
type EventType uint8

const (
	Disconnected EventType = iota
)

func (t EventType) String() string {
	switch t {
	case Disconnected:
		return "Disconnected"
	}
	return fmt.Sprintf("EventType(%d)", uint8(t))
}

// Event is a connection lifecycle event.
type Event struct {
	Type         EventType
	ConnectionID protocol.ConnectionID
}

// Options configures the tasks of one connection. K and P describe the union
// the connection receives.
type Options[K protocol.Kind, P any] struct {
	Codec    protocol.Codec[K, P]
	Mediator mediator.Mediator[K, P]

	// Heartbeat is written whenever the connection has been idle for
	// HeartbeatInterval.
	Heartbeat         protocol.EncodedPacket
	HeartbeatInterval time.Duration
	MaxFrameLength    int
	// RateLimit bounds inbound packets. nil disables limiting.
	RateLimit *RateLimitConfig

	// Shutdown stops every connection of a network at once.
	Shutdown *idem.Halter
	Events   *queue.Queue[Event]
	// OnClose runs after both tasks exited and before the event is sent.
	OnClose func(protocol.ConnectionID)

	Logger zerolog.Logger
}

// Handle is the owner side of a running connection.
type Handle struct {
	id     protocol.ConnectionID
	remote net.Addr
	out    *queue.Queue[protocol.EncodedPacket]
	halt   *idem.Halter
}

// ID returns the connection id.
func (h *Handle) ID() protocol.ConnectionID {
	return h.id
}

// RemoteAddr returns the peer address.
func (h *Handle) RemoteAddr() net.Addr {
	return h.remote
}

// Send queues a frame. It fails with queue.ErrClosed once the connection is gone.
func (h *Handle) Send(packet protocol.EncodedPacket) error {
	return h.out.Send(packet)
}

// Disconnect asks both tasks to stop. It does not wait.
func (h *Handle) Disconnect() {
	h.halt.ReqStop.Close()
}

// Done is closed after the Disconnected event has been queued.
func (h *Handle) Done() <-chan struct{} {
	return h.halt.Done.Chan
}

// Spawn starts the receive task, send task and watcher of conn.
func Spawn[K protocol.Kind, P any](conn transport.Connection, opts Options[K, P]) *Handle {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if opts.Heartbeat.IsZero() {
		panic("task: heartbeat packet not set")
	}

	h := &Handle{
		id:     conn.ID,
		remote: conn.Stream.RemoteAddr(),
		out:    queue.New[protocol.EncodedPacket](),
		halt:   idem.NewHalterNamed(fmt.Sprintf("connection(%d)", conn.ID)),
	}
	log := opts.Logger.With().Uint64("connection_id", uint64(conn.ID)).Logger()
	framer := protocol.NewFramer(conn.Stream, conn.Stream, opts.Codec, opts.MaxFrameLength)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		receive(h, framer, opts.Codec, opts.Mediator, opts.RateLimit.newLimiter(), log)
	}()
	go func() {
		defer wg.Done()
		send(h, framer, opts.Heartbeat, opts.HeartbeatInterval, opts.Shutdown, log)
	}()
	go watch(h, conn.Stream, &wg, opts.Shutdown, opts.Events, opts.OnClose, log)

	return h
}

// receive routes inbound packets until the stream fails, the peer exceeds the
// rate limit or a consumer is gone.
func receive[K protocol.Kind, P any](h *Handle, framer *protocol.Framer[P], codec protocol.Codec[K, P], med mediator.Mediator[K, P], limiter *rate.Limiter, log zerolog.Logger) {
	defer h.halt.ReqStop.Close()

	for {
		packet, err := framer.ReadPacket()
		if err != nil {
			switch {
			case errors.Is(err, protocol.ErrInvalidData):
				log.Warn().Err(err).Msg(tickwire.ErrInvalidMessageFormat)
			case !h.halt.ReqStop.IsClosed():
				log.Debug().Err(err).Msg("receive task stopped")
			}
			return
		}

		_, heartbeat := any(packet).(protocol.Heartbeat)
		if limiter != nil && !heartbeat && !limiter.Allow() {
			log.Warn().Msg(tickwire.ErrRateLimitExceeded)
			return
		}

		log.Trace().Stringer("kind", codec.KindOf(packet)).Msg("packet received")
		if err := med.Send(mediator.AnyPacket[P]{Packet: packet, ConnectionID: h.id}); err != nil {
			log.Warn().Err(err).Msg("dropping connection")
			return
		}
	}
}

// send writes queued frames in order and a heartbeat after every idle
// interval. The heartbeat timer restarts after each successful write.
func send[P any](h *Handle, framer *protocol.Framer[P], heartbeat protocol.EncodedPacket, interval time.Duration, shutdown *idem.Halter, log zerolog.Logger) {
	defer h.halt.ReqStop.Close()

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-h.out.Ready():
			packets := h.out.Drain()
			for _, p := range packets {
				if err := framer.Send(p); err != nil {
					log.Debug().Err(err).Msg("send task stopped")
					return
				}
			}
			if len(packets) > 0 {
				log.Trace().Int("frames", len(packets)).Msg("frames written")
				timer.Reset(interval)
			}

		case <-timer.C:
			if err := framer.Send(heartbeat); err != nil {
				log.Debug().Err(err).Msg("heartbeat failed")
				return
			}
			log.Trace().Msg("heartbeat written")
			timer.Reset(interval)

		case <-h.halt.ReqStop.Chan:
			return
		case <-shutdown.ReqStop.Chan:
			return
		}
	}
}

// watch waits for either task to stop or for shutdown, then closes the
// stream, waits for both tasks and reports the disconnection.
func watch(h *Handle, stream transport.Stream, tasks *sync.WaitGroup, shutdown *idem.Halter, events *queue.Queue[Event], onClose func(protocol.ConnectionID), log zerolog.Logger) {
	select {
	case <-h.halt.ReqStop.Chan:
	case <-shutdown.ReqStop.Chan:
	}
	h.halt.ReqStop.Close()

	if err := stream.Close(); err != nil {
		log.Trace().Err(err).Msg("close stream")
	}
	tasks.Wait()
	h.out.Close()

	if onClose != nil {
		onClose(h.id)
	}
	if err := events.Send(Event{Type: Disconnected, ConnectionID: h.id}); err != nil {
		log.Debug().Err(err).Msg("event queue closed")
	}
	log.Info().Msg("disconnected")
	h.halt.Done.Close()
}

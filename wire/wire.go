// Package wire is the public entry point of tickwire. It re-exports the packet
// types and builds servers and clients over the selected transport.
package wire

import (
	"crypto/tls"
	"time"

	"github.com/rs/zerolog"

	"github.com/luciancaetano/tickwire"
	"github.com/luciancaetano/tickwire/internal/mediator"
	"github.com/luciancaetano/tickwire/internal/network"
	"github.com/luciancaetano/tickwire/internal/protocol"
	"github.com/luciancaetano/tickwire/internal/queue"
	"github.com/luciancaetano/tickwire/internal/task"
	"github.com/luciancaetano/tickwire/internal/transport"
	"github.com/luciancaetano/tickwire/internal/websocket"
)

type (
	ConnectionID = protocol.ConnectionID
	NetworkID    = protocol.NetworkID
	MessageKind  = protocol.MessageKind

	ClientPacket = protocol.ClientPacket
	ServerPacket = protocol.ServerPacket
	ClientKind   = protocol.ClientKind
	ServerKind   = protocol.ServerKind

	Heartbeat         = protocol.Heartbeat
	SendMessage       = protocol.SendMessage
	PathTargetRequest = protocol.PathTargetRequest
	QueryEntity       = protocol.QueryEntity
	MessageReceived   = protocol.MessageReceived
	AcceptConnection  = protocol.AcceptConnection
	PathTarget        = protocol.PathTarget
	SpawnEntity       = protocol.SpawnEntity
	DespawnEntity     = protocol.DespawnEntity
	TickSync          = protocol.TickSync

	// ClientSenders routes packets received by a server.
	ClientSenders = mediator.SenderMap[protocol.ClientKind, protocol.ClientPacket]
	// ServerSenders routes packets received by a client.
	ServerSenders = mediator.SenderMap[protocol.ServerKind, protocol.ServerPacket]

	RateLimitConfig = task.RateLimitConfig
	Transport       = transport.Kind
	CheckOriginFn   = websocket.CheckOriginFn
)

// Inbox is the queue a subscribed packet type is delivered to.
type Inbox[T any] = queue.Queue[mediator.PacketWithConnID[T]]

const (
	Shout   = protocol.Shout
	Say     = protocol.Say
	Whisper = protocol.Whisper

	ClientSendMessage       = protocol.ClientSendMessage
	ClientPathTargetRequest = protocol.ClientPathTargetRequest
	ClientQueryEntity       = protocol.ClientQueryEntity

	ServerMessageReceived  = protocol.ServerMessageReceived
	ServerAcceptConnection = protocol.ServerAcceptConnection
	ServerPathTarget       = protocol.ServerPathTarget
	ServerSpawnEntity      = protocol.ServerSpawnEntity
	ServerDespawnEntity    = protocol.ServerDespawnEntity
	ServerTickSync         = protocol.ServerTickSync

	TCP       = transport.TCP
	QUIC      = transport.QUIC
	WebSocket = transport.WebSocket
)

var (
	ErrUnknownConnection = network.ErrUnknownConnection
	ErrNotConnected      = network.ErrNotConnected
	ErrConnectionClosed  = network.ErrConnectionClosed
	ErrNetworkClosed     = network.ErrNetworkClosed
	ErrConsumerClosed    = mediator.ErrConsumerClosed
)

var (
	_ tickwire.Server = (*network.Server)(nil)
	_ tickwire.Client = (*network.Client)(nil)
)

// Options configures Listen and Dial. Zero values select defaults.
type Options struct {
	Transport Transport
	// TLS is required for QUIC.
	TLS         *tls.Config
	CheckOrigin CheckOriginFn

	HeartbeatInterval time.Duration
	RetryDelay        time.Duration
	MaxFrameLength    int
	RateLimit         *RateLimitConfig

	Logger zerolog.Logger
}

// DefaultOptions selects TCP with no rate limit and no logging.
func DefaultOptions() Options {
	return Options{
		Transport: TCP,
		Logger:    zerolog.Nop(),
	}
}

func (o Options) transport() transport.Options {
	return transport.Options{
		Kind:        o.Transport,
		TLS:         o.TLS,
		CheckOrigin: o.CheckOrigin,
		Logger:      o.Logger,
	}
}

func (o Options) network() network.Config {
	return network.Config{
		HeartbeatInterval: o.HeartbeatInterval,
		MaxFrameLength:    o.MaxFrameLength,
		RateLimit:         o.RateLimit,
		RetryDelay:        o.RetryDelay,
		Logger:            o.Logger,
	}
}

// NewClientSenders returns the routing table of a server.
func NewClientSenders() *ClientSenders {
	return mediator.NewClientSenderMap()
}

// NewServerSenders returns the routing table of a client.
func NewServerSenders() *ServerSenders {
	return mediator.NewServerSenderMap()
}

// SubscribeClient registers an inbox for the client packet type T.
func SubscribeClient[T ClientPacket](senders *ClientSenders) *Inbox[T] {
	return mediator.Subscribe[T](senders)
}

// SubscribeServer registers an inbox for the server packet type T.
func SubscribeServer[T ServerPacket](senders *ServerSenders) *Inbox[T] {
	return mediator.Subscribe[T](senders)
}

// Listen starts a server on addr. Kinds without a handler are logged as a
// warning and panic when received.
func Listen(addr string, senders *ClientSenders, opts Options) (tickwire.Server, error) {
	acceptor, err := transport.Listen(addr, opts.transport())
	if err != nil {
		return nil, err
	}
	return network.NewServer(acceptor, senders, opts.network()), nil
}

// Dial returns a client. Nothing is dialled until Connect.
func Dial(senders *ServerSenders, opts Options) (tickwire.Client, error) {
	dial, err := transport.Dialer(opts.transport())
	if err != nil {
		return nil, err
	}
	return network.NewClient(dial, senders, opts.network()), nil
}

// AllOrigins returns a CheckOriginFn that allows every origin (dev only).
func AllOrigins() CheckOriginFn {
	return websocket.AllOrigins()
}

// DefaultRateLimitConfig returns the 100/s, burst 200 preset for Options.RateLimit.
func DefaultRateLimitConfig() *RateLimitConfig {
	return task.DefaultRateLimitConfig()
}

// NoRateLimit returns a configuration with rate limiting disabled
func NoRateLimit() *RateLimitConfig {
	return task.NoRateLimit()
}

// SelfSigned holds a generated certificate for QUIC tests and demos.
type SelfSigned = transport.SelfSigned

// GenerateSelfSigned creates a certificate valid for hosts.
func GenerateSelfSigned(hosts ...string) (*SelfSigned, error) {
	return transport.GenerateSelfSigned(hosts...)
}

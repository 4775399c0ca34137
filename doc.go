// Package tickwire is a connection-oriented binary packet transport for
// tick-based multiplayer simulations.
//
// A network accepts or initiates byte streams, frames and decodes typed
// packets, routes every decoded packet by kind to a per-type queue, keeps idle
// connections alive with heartbeats and reports each disconnection exactly
// once. A companion timing wheel (package timewheel) schedules work at future
// ticks.
//
// # Architecture
//
// Each role sends a closed union of packet types: clients send ClientPacket
// values, servers send ServerPacket values. Every variant has a stable Kind
// used as its wire tag and as its routing key.
//
// Inbound routing is declared once at startup with a sender map. Every kind
// must have exactly one handler: a typed queue created by Subscribe, or an
// explicit Ignore. The Heartbeat kind is ignored by default.
//
// Every connection runs three goroutines:
//
//   - the receive task reads frames, decodes them and routes them
//   - the send task writes queued frames and a heartbeat after each idle interval
//   - the watcher closes the stream once either task stops or the network
//     shuts down, then queues a Disconnected event
//
// The owner never receives callbacks from these goroutines. It polls
// SpawnTasksForNewConnections and HandleDisconnections once per simulation
// step and drains its packet queues.
//
// # Quick Start
//
//	import "github.com/luciancaetano/tickwire/wire"
//
//	senders := wire.NewServerSenders()
//	accepted := wire.SubscribeServer[wire.AcceptConnection](senders)
//	chat := wire.SubscribeServer[wire.MessageReceived](senders)
//	// ... subscribe or ignore the remaining kinds
//	senders.MustBeComplete()
//
//	client, err := wire.Dial(senders, wire.DefaultOptions())
//	client.Connect("127.0.0.1:7777")
//
// # Protocol Format
//
// All integers are little-endian:
//
//	[4 bytes: body length (uint32)][4 bytes: kind (uint32)][payload]
//
// Strings are a uint32 byte length followed by UTF-8 bytes. Ids and ticks are
// uint64, coordinates int32. A body longer than 5000 bytes, an unknown kind or
// trailing bytes after the payload disconnect the sender.
//
// # Transports
//
// TCP, QUIC (TLS 1.3 with verified certificates) and WebSocket binary
// messages are interchangeable. The framing is identical on all three.
//
// # Rate Limiting
//
// Inbound packets are not limited by default. Setting Options.RateLimit (or
// rate_limit.enabled in the YAML config) gives each connection a token
// bucket, and a peer exceeding it is disconnected. DefaultRateLimitConfig
// allows 100 packets per second with a burst of 200.
package tickwire

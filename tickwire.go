package tickwire

import "github.com/luciancaetano/tickwire/internal/protocol"

// Server defines the server role of a network: it accepts clients, receives
// ClientPacket values on the queues registered in its sender map, and sends
// ServerPacket values.
//
// Nothing happens on the owner's behalf between polls. Call
// SpawnTasksForNewConnections and HandleDisconnections once per simulation
// step.
//
// Example usage:
//
//	import "github.com/luciancaetano/tickwire/wire"
//
//	senders := wire.NewClientSenders()
//	chat := wire.SubscribeClient[wire.SendMessage](senders)
//	senders.Ignore(wire.ClientPathTargetRequest)
//	senders.Ignore(wire.ClientQueryEntity)
//
//	server, err := wire.Listen("127.0.0.1:7777", senders, wire.DefaultOptions())
//	for range ticker.C {
//	    server.SpawnTasksForNewConnections(nil)
//	    server.HandleDisconnections(nil)
//	    for _, msg := range chat.Drain() {
//	        server.Broadcast(wire.MessageReceived{Sender: wire.NetworkID(msg.ConnectionID), Contents: msg.Packet.Contents})
//	    }
//	}
type Server interface {
	// SpawnTasksForNewConnections starts the connection tasks of every stream
	// accepted since the previous call. Each new client first receives an
	// AcceptConnection carrying its id, then onNew is called with that id.
	//
	// onNew may be nil. Returns the number of spawned connections.
	SpawnTasksForNewConnections(onNew func(id protocol.ConnectionID)) int

	// HandleDisconnections drains the Disconnected events queued since the
	// previous call. Exactly one event is reported per connection.
	//
	// onDisconnect may be nil. Returns the number of drained events.
	HandleDisconnections(onDisconnect func(id protocol.ConnectionID)) int

	// Send encodes packet and queues it for one client.
	//
	// Returns an error wrapping ErrUnknownConnection for ids that are not
	// spawned, or ErrConnectionClosed when the connection is going away.
	Send(packet protocol.ServerPacket, id protocol.ConnectionID) error

	// SendAll encodes packet once and queues the frame for every listed
	// client. Unknown ids are skipped.
	SendAll(ids []protocol.ConnectionID, packet protocol.ServerPacket) error

	// Broadcast sends packet to every spawned client.
	Broadcast(packet protocol.ServerPacket) error

	// Clients returns the spawned connection ids in ascending order.
	Clients() []protocol.ConnectionID

	// Disconnect drops one client. Its Disconnected event follows as usual.
	Disconnect(id protocol.ConnectionID) error

	// Addr returns the bound address, useful when listening on port 0.
	Addr() string

	// Close stops accepting, disconnects every client and waits for all
	// connection tasks to exit. The final events stay queued for
	// HandleDisconnections.
	Close() error
}

// Client defines the client role of a network: it connects to one server,
// receives ServerPacket values on the queues registered in its sender map,
// and sends ClientPacket values.
type Client interface {
	// Connect queues addr. Failed attempts are retried with a fixed delay
	// until one succeeds; the connection appears after the next
	// SpawnTasksForNewConnections.
	Connect(addr string) error

	SpawnTasksForNewConnections(onNew func(id protocol.ConnectionID)) int
	HandleDisconnections(onDisconnect func(id protocol.ConnectionID)) int

	// Send encodes packet and queues it for the server. Returns
	// ErrNotConnected when no connection is spawned.
	Send(packet protocol.ClientPacket) error

	// IsConnected reports whether a connection is spawned and not yet
	// reported disconnected.
	IsConnected() bool

	// ConnectionID returns the local id of the server connection. The id the
	// server assigned arrives separately in AcceptConnection.
	ConnectionID() (protocol.ConnectionID, bool)

	// Disconnect drops the current connection, if any.
	Disconnect()

	Close() error
}

package protocol

import (
	"fmt"

	"github.com/go-faster/errors"
)

// ConnectionID identifies one established stream for the lifetime of the process.
type ConnectionID uint64

// NetworkID identifies a networked entity. Chat senders use the connection id
// of the peer that produced the message.
type NetworkID uint64

// Role selects which packet union a network endpoint sends and receives.
type Role uint8

const (
	// RoleServer sends ServerPacket values and receives ClientPacket values.
	RoleServer Role = iota
	// RoleClient sends ClientPacket values and receives ServerPacket values.
	RoleClient
)

func (r Role) String() string {
	switch r {
	case RoleServer:
		return "server"
	case RoleClient:
		return "client"
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

// Opposite returns the role at the other end of a connection.
func (r Role) Opposite() Role {
	if r == RoleServer {
		return RoleClient
	}
	return RoleServer
}

// ClientKind is the discriminant of a ClientPacket.
type ClientKind uint32

// Client packet kinds. The values are written on the wire and must not change.
const (
	ClientHeartbeat ClientKind = iota
	ClientSendMessage
	ClientPathTargetRequest
	ClientQueryEntity
)

var clientKindNames = map[ClientKind]string{
	ClientHeartbeat:         "Heartbeat",
	ClientSendMessage:       "SendMessage",
	ClientPathTargetRequest: "PathTargetRequest",
	ClientQueryEntity:       "QueryEntity",
}

func (k ClientKind) String() string {
	if name, ok := clientKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ClientKind(%d)", uint32(k))
}

// ClientKinds returns every kind of the client union in tag order.
func ClientKinds() []ClientKind {
	return []ClientKind{ClientHeartbeat, ClientSendMessage, ClientPathTargetRequest, ClientQueryEntity}
}

// ServerKind is the discriminant of a ServerPacket.
type ServerKind uint32

// Server packet kinds. The values are written on the wire and must not change.
const (
	ServerHeartbeat ServerKind = iota
	ServerMessageReceived
	ServerAcceptConnection
	ServerPathTarget
	ServerSpawnEntity
	ServerDespawnEntity
	ServerTickSync
)

var serverKindNames = map[ServerKind]string{
	ServerHeartbeat:        "Heartbeat",
	ServerMessageReceived:  "MessageReceived",
	ServerAcceptConnection: "AcceptConnection",
	ServerPathTarget:       "PathTarget",
	ServerSpawnEntity:      "SpawnEntity",
	ServerDespawnEntity:    "DespawnEntity",
	ServerTickSync:         "TickSync",
}

func (k ServerKind) String() string {
	if name, ok := serverKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ServerKind(%d)", uint32(k))
}

// ServerKinds returns every kind of the server union in tag order.
func ServerKinds() []ServerKind {
	return []ServerKind{
		ServerHeartbeat,
		ServerMessageReceived,
		ServerAcceptConnection,
		ServerPathTarget,
		ServerSpawnEntity,
		ServerDespawnEntity,
		ServerTickSync,
	}
}

// ClientPacket is the closed set of payloads a client sends to a server.
type ClientPacket interface {
	ClientKind() ClientKind
	encodePayload(w *Writer)
}

// ServerPacket is the closed set of payloads a server sends to a client.
type ServerPacket interface {
	ServerKind() ServerKind
	encodePayload(w *Writer)
}

// MessageKind classifies chat messages.
type MessageKind uint32

const (
	Shout MessageKind = iota
	Say
	Whisper
)

func (k MessageKind) String() string {
	switch k {
	case Shout:
		return "Shout"
	case Say:
		return "Say"
	case Whisper:
		return "Whisper"
	}
	return fmt.Sprintf("MessageKind(%d)", uint32(k))
}

func readMessageKind(r *Reader) MessageKind {
	k := MessageKind(r.Uint32("message kind"))
	if r.err == nil && k > Whisper {
		r.err = errors.Wrapf(ErrInvalidData, "unknown message kind %d", uint32(k))
	}
	return k
}

// Heartbeat is the empty keepalive packet. It belongs to both unions.
type Heartbeat struct{}

func (Heartbeat) ClientKind() ClientKind { return ClientHeartbeat }
func (Heartbeat) ServerKind() ServerKind { return ServerHeartbeat }
func (Heartbeat) encodePayload(*Writer)  {}

// SendMessage asks the server to relay a chat message.
type SendMessage struct {
	Kind     MessageKind
	Contents string
}

func (SendMessage) ClientKind() ClientKind { return ClientSendMessage }

func (p SendMessage) encodePayload(w *Writer) {
	w.PutUint32(uint32(p.Kind))
	w.PutString(p.Contents)
}

// PathTargetRequest asks the server to move the sender's entity.
type PathTargetRequest struct {
	X int32
	Y int32
}

func (PathTargetRequest) ClientKind() ClientKind { return ClientPathTargetRequest }

func (p PathTargetRequest) encodePayload(w *Writer) {
	w.PutInt32(p.X)
	w.PutInt32(p.Y)
}

// QueryEntity asks the server to describe an entity.
type QueryEntity struct {
	ID NetworkID
}

func (QueryEntity) ClientKind() ClientKind { return ClientQueryEntity }

func (p QueryEntity) encodePayload(w *Writer) {
	w.PutUint64(uint64(p.ID))
}

// MessageReceived is a relayed chat message.
type MessageReceived struct {
	Sender   NetworkID
	Kind     MessageKind
	Contents string
}

func (MessageReceived) ServerKind() ServerKind { return ServerMessageReceived }

func (p MessageReceived) encodePayload(w *Writer) {
	w.PutUint64(uint64(p.Sender))
	w.PutUint32(uint32(p.Kind))
	w.PutString(p.Contents)
}

// AcceptConnection tells a client which connection id the server assigned it.
type AcceptConnection struct {
	ConnectionID ConnectionID
}

func (AcceptConnection) ServerKind() ServerKind { return ServerAcceptConnection }

func (p AcceptConnection) encodePayload(w *Writer) {
	w.PutUint64(uint64(p.ConnectionID))
}

// PathTarget announces where an entity is heading.
type PathTarget struct {
	ID       NetworkID
	X        int32
	Y        int32
	CurrentX int32
	CurrentY int32
}

func (PathTarget) ServerKind() ServerKind { return ServerPathTarget }

func (p PathTarget) encodePayload(w *Writer) {
	w.PutUint64(uint64(p.ID))
	w.PutInt32(p.X)
	w.PutInt32(p.Y)
	w.PutInt32(p.CurrentX)
	w.PutInt32(p.CurrentY)
}

// SpawnEntity announces an entity that entered the world.
type SpawnEntity struct {
	ID NetworkID
}

func (SpawnEntity) ServerKind() ServerKind { return ServerSpawnEntity }

func (p SpawnEntity) encodePayload(w *Writer) {
	w.PutUint64(uint64(p.ID))
}

// DespawnEntity removes an entity from the world.
type DespawnEntity struct {
	ID NetworkID
}

func (DespawnEntity) ServerKind() ServerKind { return ServerDespawnEntity }

func (p DespawnEntity) encodePayload(w *Writer) {
	w.PutUint64(uint64(p.ID))
}

// TickSync carries the server's current simulation tick.
type TickSync struct {
	Current uint64
}

func (TickSync) ServerKind() ServerKind { return ServerTickSync }

func (p TickSync) encodePayload(w *Writer) {
	w.PutUint64(p.Current)
}

func decodeClientPacket(body []byte) (ClientPacket, error) {
	r := NewReader(body)
	kind := ClientKind(r.Uint32("kind"))
	if err := r.Err(); err != nil {
		return nil, err
	}

	var packet ClientPacket
	switch kind {
	case ClientHeartbeat:
		packet = Heartbeat{}
	case ClientSendMessage:
		packet = SendMessage{
			Kind:     readMessageKind(r),
			Contents: r.String("contents"),
		}
	case ClientPathTargetRequest:
		packet = PathTargetRequest{X: r.Int32("x"), Y: r.Int32("y")}
	case ClientQueryEntity:
		packet = QueryEntity{ID: NetworkID(r.Uint64("id"))}
	default:
		return nil, errors.Wrapf(ErrInvalidData, "unknown client packet kind %d", uint32(kind))
	}

	if err := r.Finish(); err != nil {
		return nil, errors.Wrapf(err, "decode %s", kind)
	}
	return packet, nil
}

func decodeServerPacket(body []byte) (ServerPacket, error) {
	r := NewReader(body)
	kind := ServerKind(r.Uint32("kind"))
	if err := r.Err(); err != nil {
		return nil, err
	}

	var packet ServerPacket
	switch kind {
	case ServerHeartbeat:
		packet = Heartbeat{}
	case ServerMessageReceived:
		packet = MessageReceived{
			Sender:   NetworkID(r.Uint64("sender")),
			Kind:     readMessageKind(r),
			Contents: r.String("contents"),
		}
	case ServerAcceptConnection:
		packet = AcceptConnection{ConnectionID: ConnectionID(r.Uint64("connection id"))}
	case ServerPathTarget:
		packet = PathTarget{
			ID:       NetworkID(r.Uint64("id")),
			X:        r.Int32("x"),
			Y:        r.Int32("y"),
			CurrentX: r.Int32("current x"),
			CurrentY: r.Int32("current y"),
		}
	case ServerSpawnEntity:
		packet = SpawnEntity{ID: NetworkID(r.Uint64("id"))}
	case ServerDespawnEntity:
		packet = DespawnEntity{ID: NetworkID(r.Uint64("id"))}
	case ServerTickSync:
		packet = TickSync{Current: r.Uint64("current")}
	default:
		return nil, errors.Wrapf(ErrInvalidData, "unknown server packet kind %d", uint32(kind))
	}

	if err := r.Finish(); err != nil {
		return nil, errors.Wrapf(err, "decode %s", kind)
	}
	return packet, nil
}

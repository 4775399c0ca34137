package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/go-faster/errors"
)

const (
	headerSize = 4
	kindSize   = 4

	// DefaultMaxFrameLength bounds the body of a single frame.
	DefaultMaxFrameLength = 5000
)

var (
	// ErrInvalidData marks corrupt or malformed input. Every decode failure wraps it.
	ErrInvalidData = errors.New("invalid data")

	// ErrFrameTooLarge is returned for frames longer than the configured maximum.
	ErrFrameTooLarge = errors.Wrap(ErrInvalidData, "frame too large")
)

// Kind is implemented by the discriminant enums of both packet unions.
type Kind interface {
	comparable
	fmt.Stringer
}

// EncodedPacket is one complete frame: a 4-byte little-endian length followed
// by the serialized packet. It is never modified after construction, so the
// same value can be queued on many connections.
type EncodedPacket struct {
	bytes []byte
}

// Bytes returns the frame. Callers must not modify it.
func (p EncodedPacket) Bytes() []byte {
	return p.bytes
}

// Len returns the frame length including the length prefix.
func (p EncodedPacket) Len() int {
	return len(p.bytes)
}

// BodyLen returns the length written in the prefix.
func (p EncodedPacket) BodyLen() int {
	if len(p.bytes) < headerSize {
		return 0
	}
	return len(p.bytes) - headerSize
}

// IsZero reports whether p was never encoded.
func (p EncodedPacket) IsZero() bool {
	return p.bytes == nil
}

type encoder interface {
	encodePayload(w *Writer)
}

// encode builds the frame [u32 len][u32 kind][payload] in a single allocation.
func encode(kind uint32, payload encoder, maxFrameLength int) (EncodedPacket, error) {
	w := NewWriter(headerSize + kindSize + 32)
	w.PutUint32(0) // patched below
	w.PutUint32(kind)
	payload.encodePayload(w)

	buf := w.Bytes()
	bodyLen := len(buf) - headerSize
	if bodyLen > maxFrameLength {
		return EncodedPacket{}, errors.Wrapf(ErrFrameTooLarge, "packet body %d exceeds maximum %d bytes", bodyLen, maxFrameLength)
	}
	binary.LittleEndian.PutUint32(buf[:headerSize], uint32(bodyLen))
	return EncodedPacket{bytes: buf}, nil
}

// Codec binds one packet union to its kinds and wire encoding.
type Codec[K Kind, P any] struct {
	role   Role
	kinds  []K
	kindOf func(P) K
	encode func(P, int) (EncodedPacket, error)
	decode func([]byte) (P, error)
}

// ClientCodec encodes and decodes packets sent by clients.
var ClientCodec = Codec[ClientKind, ClientPacket]{
	role:   RoleClient,
	kinds:  ClientKinds(),
	kindOf: func(p ClientPacket) ClientKind { return p.ClientKind() },
	encode: func(p ClientPacket, limit int) (EncodedPacket, error) {
		return encode(uint32(p.ClientKind()), p, limit)
	},
	decode: decodeClientPacket,
}

// ServerCodec encodes and decodes packets sent by servers.
var ServerCodec = Codec[ServerKind, ServerPacket]{
	role:   RoleServer,
	kinds:  ServerKinds(),
	kindOf: func(p ServerPacket) ServerKind { return p.ServerKind() },
	encode: func(p ServerPacket, limit int) (EncodedPacket, error) {
		return encode(uint32(p.ServerKind()), p, limit)
	},
	decode: decodeServerPacket,
}

// Role returns the role that sends packets of this union.
func (c Codec[K, P]) Role() Role {
	return c.role
}

// Kinds returns every kind of the union.
func (c Codec[K, P]) Kinds() []K {
	out := make([]K, len(c.kinds))
	copy(out, c.kinds)
	return out
}

// KindOf returns the discriminant of p.
func (c Codec[K, P]) KindOf(p P) K {
	return c.kindOf(p)
}

// Encode frames p using DefaultMaxFrameLength.
func (c Codec[K, P]) Encode(p P) (EncodedPacket, error) {
	return c.encode(p, DefaultMaxFrameLength)
}

// EncodeLimit frames p, refusing bodies longer than maxFrameLength.
func (c Codec[K, P]) EncodeLimit(p P, maxFrameLength int) (EncodedPacket, error) {
	return c.encode(p, maxFrameLength)
}

// Decode parses a frame body (the bytes after the length prefix).
func (c Codec[K, P]) Decode(body []byte) (P, error) {
	return c.decode(body)
}

// Heartbeat returns the pre-encoded heartbeat frame of this union.
func (c Codec[K, P]) Heartbeat() EncodedPacket {
	p, err := c.encode(any(Heartbeat{}).(P), DefaultMaxFrameLength)
	if err != nil {
		panic(err)
	}
	return p
}

package protocol

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestClientPacketRoundTrip verifies every client variant survives encode and decode
func TestClientPacketRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		packet ClientPacket
	}{
		{"heartbeat", Heartbeat{}},
		{"send message", SendMessage{Kind: Shout, Contents: "message"}},
		{"send empty message", SendMessage{Kind: Whisper}},
		{"send unicode message", SendMessage{Kind: Say, Contents: "héllo wörld ✓"}},
		{"path target request", PathTargetRequest{X: -12, Y: 40}},
		{"query entity", QueryEntity{ID: 1 << 40}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			encoded, err := ClientCodec.Encode(tt.packet)
			require.NoError(t, err)
			assert.Equal(t, encoded.BodyLen(), int(binary.LittleEndian.Uint32(encoded.Bytes()[:headerSize])))

			decoded, err := ClientCodec.Decode(encoded.Bytes()[headerSize:])
			require.NoError(t, err)
			assert.Equal(t, tt.packet, decoded)
			assert.Equal(t, ClientCodec.KindOf(tt.packet), ClientCodec.KindOf(decoded))
		})
	}
}

// TestServerPacketRoundTrip verifies every server variant survives encode and decode
func TestServerPacketRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		packet ServerPacket
	}{
		{"heartbeat", Heartbeat{}},
		{"message received", MessageReceived{Sender: 7, Kind: Shout, Contents: "hi"}},
		{"accept connection", AcceptConnection{ConnectionID: 42}},
		{"path target", PathTarget{ID: 3, X: 1, Y: 2, CurrentX: -3, CurrentY: -4}},
		{"spawn entity", SpawnEntity{ID: 9}},
		{"despawn entity", DespawnEntity{ID: 10}},
		{"tick sync", TickSync{Current: 123456789}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			encoded, err := ServerCodec.Encode(tt.packet)
			require.NoError(t, err)

			decoded, err := ServerCodec.Decode(encoded.Bytes()[headerSize:])
			require.NoError(t, err)
			assert.Equal(t, tt.packet, decoded)
		})
	}
}

// TestEveryKindHasAVariant makes sure the kind tables and decoders agree
func TestEveryKindHasAVariant(t *testing.T) {
	t.Parallel()

	for _, kind := range ClientKinds() {
		body := binary.LittleEndian.AppendUint32(nil, uint32(kind))
		_, err := ClientCodec.Decode(body)
		if err != nil {
			// Only kinds with a payload may fail on an empty body, and never as unknown.
			assert.NotContains(t, err.Error(), "unknown client packet kind", kind.String())
		}
		assert.NotContains(t, kind.String(), "ClientKind(")
	}

	for _, kind := range ServerKinds() {
		body := binary.LittleEndian.AppendUint32(nil, uint32(kind))
		_, err := ServerCodec.Decode(body)
		if err != nil {
			assert.NotContains(t, err.Error(), "unknown server packet kind", kind.String())
		}
		assert.NotContains(t, kind.String(), "ServerKind(")
	}
}

// TestWireLayout pins the bit-exact frame layout
func TestWireLayout(t *testing.T) {
	t.Parallel()

	encoded, err := ClientCodec.Encode(SendMessage{Kind: Shout, Contents: "hi"})
	require.NoError(t, err)

	want := []byte{
		14, 0, 0, 0, // body length
		1, 0, 0, 0, // kind: SendMessage
		0, 0, 0, 0, // message kind: Shout
		2, 0, 0, 0, // contents length
		'h', 'i',
	}
	assert.Equal(t, want, encoded.Bytes())

	heartbeat := ServerCodec.Heartbeat()
	assert.Equal(t, []byte{4, 0, 0, 0, 0, 0, 0, 0}, heartbeat.Bytes())
}

// TestDecodeMalformed tests the decoder rejects corrupt bodies
func TestDecodeMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body []byte
	}{
		{"empty body", []byte{}},
		{"short kind", []byte{1, 0}},
		{"unknown kind", []byte{0xFF, 0, 0, 0}},
		{"truncated payload", []byte{1, 0, 0, 0, 0, 0, 0, 0, 9, 0, 0, 0, 'a'}},
		{"unknown message kind", []byte{1, 0, 0, 0, 9, 0, 0, 0, 0, 0, 0, 0}},
		{"trailing bytes", []byte{0, 0, 0, 0, 1}},
		{"invalid utf8", []byte{1, 0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0xFF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ClientCodec.Decode(tt.body)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidData), "error %v should wrap ErrInvalidData", err)
		})
	}
}

// TestEncodeRejectsOversizedPacket tests the sender refuses frames the peer would drop
func TestEncodeRejectsOversizedPacket(t *testing.T) {
	t.Parallel()

	_, err := ClientCodec.Encode(SendMessage{Contents: strings.Repeat("x", DefaultMaxFrameLength)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFrameTooLarge))

	_, err = ClientCodec.EncodeLimit(SendMessage{Contents: "0123456789"}, 8)
	assert.True(t, errors.Is(err, ErrFrameTooLarge))
}

// TestFramerReadsConsecutiveFrames tests stream order is preserved across frames
func TestFramerReadsConsecutiveFrames(t *testing.T) {
	t.Parallel()

	packets := []ClientPacket{
		SendMessage{Kind: Shout, Contents: "one"},
		Heartbeat{},
		PathTargetRequest{X: 1, Y: 2},
		SendMessage{Kind: Say, Contents: "two"},
	}

	var stream bytes.Buffer
	writer := NewFramer(nil, &stream, ClientCodec, 0)
	for _, p := range packets {
		encoded, err := ClientCodec.Encode(p)
		require.NoError(t, err)
		require.NoError(t, writer.Send(encoded))
	}

	reader := NewFramer(&stream, nil, ClientCodec, 0)
	for _, want := range packets {
		got, err := reader.ReadPacket()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := reader.Ready()
	assert.ErrorIs(t, err, io.EOF)
}

// TestFramerRejectsOversizedLength tests the length check happens before any payload read
func TestFramerRejectsOversizedLength(t *testing.T) {
	t.Parallel()

	prefix := binary.LittleEndian.AppendUint32(nil, DefaultMaxFrameLength+1)
	framer := NewFramer(bytes.NewReader(append(prefix, make([]byte, 64)...)), nil, ClientCodec, 0)
	_, err := framer.Ready()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFrameTooLarge))
	assert.True(t, errors.Is(err, ErrInvalidData))

	_, err = framer.Next()
	assert.Error(t, err)
}

// TestFramerShortBody tests a truncated body yields an error and not a partial decode
func TestFramerShortBody(t *testing.T) {
	t.Parallel()

	encoded, err := ClientCodec.Encode(SendMessage{Kind: Shout, Contents: "truncated"})
	require.NoError(t, err)
	short := encoded.Bytes()[:encoded.Len()-3]

	framer := NewFramer(bytes.NewReader(short), nil, ClientCodec, 0)
	length, err := framer.Ready()
	require.NoError(t, err)
	assert.Equal(t, encoded.BodyLen(), length)

	_, err = framer.Next()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

// TestFramerCustomLimit tests a per-network frame limit
func TestFramerCustomLimit(t *testing.T) {
	t.Parallel()

	encoded, err := ClientCodec.Encode(SendMessage{Contents: "0123456789"})
	require.NoError(t, err)

	framer := NewFramer(bytes.NewReader(encoded.Bytes()), nil, ClientCodec, 8)
	_, err = framer.Ready()
	assert.True(t, errors.Is(err, ErrFrameTooLarge))
}

// BenchmarkEncode benchmarks the encoding operation
func BenchmarkEncode(b *testing.B) {
	packet := SendMessage{Kind: Shout, Contents: "benchmark test payload with some data"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ClientCodec.Encode(packet)
	}
}

// BenchmarkDecode benchmarks the decoding operation
func BenchmarkDecode(b *testing.B) {
	encoded, _ := ClientCodec.Encode(SendMessage{Kind: Shout, Contents: "benchmark test payload with some data"})
	body := encoded.Bytes()[headerSize:]
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ClientCodec.Decode(body)
	}
}

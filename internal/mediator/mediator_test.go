package mediator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luciancaetano/tickwire/internal/protocol"
)

// TestSenderMapCompleteness iterates every tag of both unions once
func TestSenderMapCompleteness(t *testing.T) {
	t.Parallel()

	client := NewClientSenderMap()
	Subscribe[protocol.SendMessage](client)
	Subscribe[protocol.PathTargetRequest](client)
	Subscribe[protocol.QueryEntity](client)
	assert.Empty(t, client.Missing())
	assert.NotPanics(t, client.MustBeComplete)

	server := NewServerSenderMap()
	Subscribe[protocol.MessageReceived](server)
	Subscribe[protocol.AcceptConnection](server)
	Subscribe[protocol.PathTarget](server)
	Subscribe[protocol.SpawnEntity](server)
	Subscribe[protocol.DespawnEntity](server)
	Subscribe[protocol.TickSync](server)
	assert.Empty(t, server.Missing())
	assert.NotPanics(t, server.MustBeComplete)
}

func TestSenderMapMissing(t *testing.T) {
	t.Parallel()

	m := NewClientSenderMap()
	Subscribe[protocol.SendMessage](m)

	assert.Equal(t, []protocol.ClientKind{protocol.ClientPathTargetRequest, protocol.ClientQueryEntity}, m.Missing())
	assert.PanicsWithValue(t,
		"mediator: no handler for client packets: PathTargetRequest, QueryEntity",
		m.MustBeComplete,
	)
}

func TestSenderMapDuplicatePanics(t *testing.T) {
	t.Parallel()

	m := NewClientSenderMap()
	Subscribe[protocol.SendMessage](m)

	assert.Panics(t, func() { Subscribe[protocol.SendMessage](m) })
	assert.Panics(t, func() { m.Ignore(protocol.ClientHeartbeat) })
}

func TestSubscribeRejectsForeignVariant(t *testing.T) {
	t.Parallel()

	m := NewClientSenderMap()
	assert.Panics(t, func() { Subscribe[protocol.TickSync](m) })
}

// TestMediatorRouting checks each kind lands on its own queue and nowhere else
func TestMediatorRouting(t *testing.T) {
	t.Parallel()

	m := NewClientSenderMap()
	messages := Subscribe[protocol.SendMessage](m)
	targets := Subscribe[protocol.PathTargetRequest](m)
	queries := Subscribe[protocol.QueryEntity](m)
	med := m.Mediator()

	require.NoError(t, med.Send(AnyPacket[protocol.ClientPacket]{
		Packet:       protocol.SendMessage{Kind: protocol.Say, Contents: "hi"},
		ConnectionID: 11,
	}))
	require.NoError(t, med.Send(AnyPacket[protocol.ClientPacket]{
		Packet:       protocol.PathTargetRequest{X: 4, Y: 5},
		ConnectionID: 12,
	}))
	require.NoError(t, med.Send(AnyPacket[protocol.ClientPacket]{
		Packet:       protocol.Heartbeat{},
		ConnectionID: 13,
	}))

	assert.Equal(t, 1, messages.Len())
	assert.Equal(t, 1, targets.Len())
	assert.Equal(t, 0, queries.Len())

	msg, ok := messages.TryRecv()
	require.True(t, ok)
	assert.Equal(t, PacketWithConnID[protocol.SendMessage]{
		Packet:       protocol.SendMessage{Kind: protocol.Say, Contents: "hi"},
		ConnectionID: 11,
	}, msg)

	target, ok := targets.TryRecv()
	require.True(t, ok)
	assert.Equal(t, protocol.ConnectionID(12), target.ConnectionID)
	assert.Equal(t, int32(4), target.Packet.X)
}

func TestMediatorUnregisteredKindPanics(t *testing.T) {
	t.Parallel()

	m := NewClientSenderMap()
	med := m.Mediator()

	assert.Panics(t, func() {
		_ = med.Send(AnyPacket[protocol.ClientPacket]{Packet: protocol.QueryEntity{ID: 1}})
	})
	assert.NotPanics(t, func() {
		_ = med.Send(AnyPacket[protocol.ClientPacket]{Packet: protocol.Heartbeat{}})
	})
}

func TestMediatorIsSnapshot(t *testing.T) {
	t.Parallel()

	m := NewClientSenderMap()
	med := m.Mediator()
	Subscribe[protocol.QueryEntity](m)

	assert.Panics(t, func() {
		_ = med.Send(AnyPacket[protocol.ClientPacket]{Packet: protocol.QueryEntity{ID: 1}})
	})
}

func TestMediatorClosedConsumer(t *testing.T) {
	t.Parallel()

	m := NewClientSenderMap()
	messages := Subscribe[protocol.SendMessage](m)
	queries := Subscribe[protocol.QueryEntity](m)
	med := m.Mediator()
	messages.Close()

	err := med.Send(AnyPacket[protocol.ClientPacket]{Packet: protocol.SendMessage{Contents: "late"}, ConnectionID: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConsumerClosed)

	// Other kinds keep flowing.
	require.NoError(t, med.Send(AnyPacket[protocol.ClientPacket]{Packet: protocol.QueryEntity{ID: 2}, ConnectionID: 1}))
	assert.Equal(t, 1, queries.Len())
}

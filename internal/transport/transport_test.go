package transport

import (
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luciancaetano/tickwire/internal/protocol"
)

func TestParseKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{in: "tcp", want: TCP},
		{in: "quic", want: QUIC},
		{in: "websocket", want: WebSocket},
		{in: "udp", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := ParseKind(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConnectionIDsAreUnique(t *testing.T) {
	t.Parallel()

	const n = 1000
	var (
		mu   sync.Mutex
		seen = make(map[protocol.ConnectionID]bool, n)
		wg   sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := NextConnectionID()
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, n)
}

func TestSequentialIDs(t *testing.T) {
	t.Parallel()

	ids := SequentialIDs(100)
	assert.Equal(t, protocol.ConnectionID(100), ids.Next())
	assert.Equal(t, protocol.ConnectionID(101), ids.Next())

	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	conn := NewConnection(a, ids)
	assert.Equal(t, protocol.ConnectionID(102), conn.ID)
}

// TestTCPRoundTrip tests accept and dial over loopback
func TestTCPRoundTrip(t *testing.T) {
	t.Parallel()

	ln, err := Listen("127.0.0.1:0", Options{Kind: TCP})
	require.NoError(t, err)
	defer ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dial, err := Dialer(Options{Kind: TCP})
	require.NoError(t, err)

	client, err := dial(ctx, ln.Addr())
	require.NoError(t, err)
	defer client.Close()

	server, err := ln.Accept(ctx)
	require.NoError(t, err)
	defer server.Close()

	_, err = server.Write([]byte("ping"))
	require.NoError(t, err)
	buf := make([]byte, 4)
	_, err = io.ReadFull(client, buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf))
}

func TestTCPAcceptHonoursContext(t *testing.T) {
	t.Parallel()

	ln, err := ListenTCP("127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = ln.Accept(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestConnectorRetries tests that failed dials are retried until one succeeds
func TestConnectorRetries(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	dial := func(ctx context.Context, addr string) (Stream, error) {
		if attempts.Add(1) < 3 {
			return nil, errors.New("connection refused")
		}
		a, _ := net.Pipe()
		return a, nil
	}

	c := NewConnector(dial, 5*time.Millisecond, zerolog.Nop())
	require.NoError(t, c.Connect("127.0.0.1:1"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stream, err := c.Accept(ctx)
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, "127.0.0.1:1", c.Addr())
}

// TestConnectorClosed tests that a closed connector reports end of targets
func TestConnectorClosed(t *testing.T) {
	t.Parallel()

	c := NewConnector(DialTCP, 0, zerolog.Nop())
	require.NoError(t, c.Close())

	_, err := c.Accept(context.Background())
	assert.ErrorIs(t, err, io.EOF)
	assert.Error(t, c.Connect("127.0.0.1:1"))
}

// TestConnectorStopsRetryingOnClose tests that closing the connector ends a pending retry loop
func TestConnectorStopsRetryingOnClose(t *testing.T) {
	t.Parallel()

	dial := func(ctx context.Context, addr string) (Stream, error) {
		return nil, errors.New("connection refused")
	}
	c := NewConnector(dial, 10*time.Millisecond, zerolog.Nop())
	require.NoError(t, c.Connect("127.0.0.1:1"))

	result := make(chan error, 1)
	go func() {
		_, err := c.Accept(context.Background())
		result <- err
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, c.Close())

	select {
	case err := <-result:
		assert.ErrorIs(t, err, io.EOF)
	case <-time.After(2 * time.Second):
		t.Fatal("accept kept retrying after close")
	}
}

// TestConnectorGivesUpOnCancel tests that retries stop with the context
func TestConnectorGivesUpOnCancel(t *testing.T) {
	t.Parallel()

	dial := func(ctx context.Context, addr string) (Stream, error) {
		return nil, errors.New("connection refused")
	}
	c := NewConnector(dial, time.Hour, zerolog.Nop())
	require.NoError(t, c.Connect("127.0.0.1:1"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Accept(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestConnectorReachesLateListener tests a listener that comes up after the first attempt
func TestConnectorReachesLateListener(t *testing.T) {
	t.Parallel()

	// Reserve a port, free it, and bring the listener up later.
	probe, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := probe.Addr().String()
	require.NoError(t, probe.Close())

	c := NewConnector(DialTCP, 10*time.Millisecond, zerolog.Nop())
	require.NoError(t, c.Connect(addr))

	lnCh := make(chan *TCPListener, 1)
	go func() {
		time.Sleep(50 * time.Millisecond)
		ln, err := ListenTCP(addr)
		if err != nil {
			lnCh <- nil
			return
		}
		lnCh <- ln
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stream, err := c.Accept(ctx)
	require.NoError(t, err)
	defer stream.Close()

	if ln := <-lnCh; ln != nil {
		_ = ln.Close()
	}
}

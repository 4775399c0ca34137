package websocket

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Path is the HTTP path the upgrade handler is mounted on.
const Path = "/ws"

// CheckOriginFn is a function that validates the origin of a WebSocket connection request.
// It receives the HTTP request and returns true if the origin is allowed, false otherwise.
// Use this to implement CORS policies for your WebSocket server.
type CheckOriginFn = func(r *http.Request) bool

// AllOrigins allows every origin. Development only.
func AllOrigins() CheckOriginFn {
	return func(r *http.Request) bool {
		return true
	}
}

// ErrListenerClosed is returned by Accept after Close.
var ErrListenerClosed = errors.New("websocket listener closed")

type ListenerConfig struct {
	Addr        string
	CheckOrigin CheckOriginFn
	Logger      zerolog.Logger
}

// Listener serves the upgrade endpoint and hands every upgraded connection
// to Accept as a binary Stream.
type Listener struct {
	ln       net.Listener
	server   *http.Server
	upgrader websocket.Upgrader
	log      zerolog.Logger

	streams chan *Stream
	done    chan struct{}

	mu     sync.Mutex
	closed bool
}

// Listen binds cfg.Addr and starts serving.
func Listen(cfg ListenerConfig) (*Listener, error) {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen websocket %s", cfg.Addr)
	}

	l := &Listener{
		ln:  ln,
		log: cfg.Logger.With().Str("component", "websocket").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     cfg.CheckOrigin,
		},
		streams: make(chan *Stream),
		done:    make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(Path, l.handleWebSocket)
	l.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := l.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.log.Error().Err(err).Msg("websocket server stopped")
		}
	}()
	return l, nil
}

// handleWebSocket upgrades the request and waits until Accept takes the stream.
func (l *Listener) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.log.Debug().Err(err).Str("remote_addr", r.RemoteAddr).Msg("upgrade failed")
		return
	}

	stream := NewStream(conn)
	select {
	case l.streams <- stream:
	case <-l.done:
		_ = stream.CloseWithCode(websocket.CloseGoingAway, "server shutting down")
	}
}

func (l *Listener) Accept(ctx context.Context) (*Stream, error) {
	select {
	case s := <-l.streams:
		return s, nil
	case <-l.done:
		return nil, ErrListenerClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the HTTP server. Streams already handed out stay open.
func (l *Listener) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.done)
	l.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return l.server.Shutdown(ctx)
}

func (l *Listener) Addr() string {
	return l.ln.Addr().String()
}

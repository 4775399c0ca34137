package transport

import (
	"context"

	"github.com/luciancaetano/tickwire/internal/websocket"
)

// WebSocketListener accepts binary WebSocket streams.
type WebSocketListener struct {
	*websocket.Listener
}

// ListenWebSocket serves the upgrade endpoint on addr.
func ListenWebSocket(cfg websocket.ListenerConfig) (*WebSocketListener, error) {
	l, err := websocket.Listen(cfg)
	if err != nil {
		return nil, err
	}
	return &WebSocketListener{Listener: l}, nil
}

func (l *WebSocketListener) Accept(ctx context.Context) (Stream, error) {
	s, err := l.Listener.Accept(ctx)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// DialWebSocket opens a WebSocket stream to addr.
func DialWebSocket(ctx context.Context, addr string) (Stream, error) {
	s, err := websocket.Dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	return s, nil
}

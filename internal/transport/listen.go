package transport

import (
	"crypto/tls"

	"github.com/go-faster/errors"
	"github.com/rs/zerolog"

	"github.com/luciancaetano/tickwire/internal/websocket"
)

// Options selects and configures a transport.
type Options struct {
	Kind Kind
	// TLS is required for QUIC and ignored otherwise.
	TLS         *tls.Config
	CheckOrigin websocket.CheckOriginFn
	Logger      zerolog.Logger
}

// Listen binds addr with the selected transport.
func Listen(addr string, opts Options) (Acceptor, error) {
	switch opts.Kind {
	case TCP, "":
		return ListenTCP(addr)
	case QUIC:
		return ListenQUIC(addr, opts.TLS)
	case WebSocket:
		return ListenWebSocket(websocket.ListenerConfig{
			Addr:        addr,
			CheckOrigin: opts.CheckOrigin,
			Logger:      opts.Logger,
		})
	}
	return nil, errors.Errorf("unknown transport %q", opts.Kind)
}

// Dialer returns the dial function of the selected transport.
func Dialer(opts Options) (DialFunc, error) {
	switch opts.Kind {
	case TCP, "":
		return DialTCP, nil
	case QUIC:
		if opts.TLS == nil {
			return nil, errors.New("quic dialer requires a tls config")
		}
		return DialQUIC(opts.TLS), nil
	case WebSocket:
		return DialWebSocket, nil
	}
	return nil, errors.Errorf("unknown transport %q", opts.Kind)
}

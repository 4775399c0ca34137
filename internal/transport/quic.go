package transport

import (
	"context"
	"crypto/tls"
	"net"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/quic-go/quic-go"
)

const quicNoError quic.ApplicationErrorCode = 0

const (
	quicIdleTimeout   = 30 * time.Second
	quicInitialPacket = 1200
)

func quicConfig() *quic.Config {
	return &quic.Config{
		MaxIdleTimeout:    quicIdleTimeout,
		InitialPacketSize: quicInitialPacket,
	}
}

// QUICListener accepts QUIC connections. Each connection carries one stream
// made of two unidirectional QUIC streams, one per direction, so that either
// side can write first.
type QUICListener struct {
	ln *quic.Listener
}

// ListenQUIC binds addr. tlsConf must carry a certificate.
func ListenQUIC(addr string, tlsConf *tls.Config) (*QUICListener, error) {
	if tlsConf == nil || (len(tlsConf.Certificates) == 0 && tlsConf.GetCertificate == nil) {
		return nil, errors.New("quic listener requires a tls certificate")
	}
	ln, err := quic.ListenAddr(addr, tlsConf, quicConfig())
	if err != nil {
		return nil, errors.Wrapf(err, "listen quic %s", addr)
	}
	return &QUICListener{ln: ln}, nil
}

func (l *QUICListener) Accept(ctx context.Context) (Stream, error) {
	conn, err := l.ln.Accept(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "accept quic")
	}
	return newQUICStream(conn), nil
}

func (l *QUICListener) Close() error {
	return l.ln.Close()
}

func (l *QUICListener) Addr() string {
	return l.ln.Addr().String()
}

// DialQUIC connects to addr and verifies the server certificate against
// tlsConf.
func DialQUIC(tlsConf *tls.Config) DialFunc {
	return func(ctx context.Context, addr string) (Stream, error) {
		conn, err := quic.DialAddr(ctx, addr, tlsConf, quicConfig())
		if err != nil {
			return nil, errors.Wrapf(err, "dial quic %s", addr)
		}
		return newQUICStream(conn), nil
	}
}

// quicStream opens its send half on the first Write and accepts the peer's
// send half on the first Read.
type quicStream struct {
	conn   quic.Connection
	ctx    context.Context
	cancel context.CancelFunc

	sendMu sync.Mutex
	send   quic.SendStream

	recvMu sync.Mutex
	recv   quic.ReceiveStream

	closeOnce sync.Once
}

func newQUICStream(conn quic.Connection) *quicStream {
	ctx, cancel := context.WithCancel(conn.Context())
	return &quicStream{conn: conn, ctx: ctx, cancel: cancel}
}

func (s *quicStream) Read(p []byte) (int, error) {
	s.recvMu.Lock()
	defer s.recvMu.Unlock()

	if s.recv == nil {
		recv, err := s.conn.AcceptUniStream(s.ctx)
		if err != nil {
			return 0, errors.Wrap(err, "accept quic stream")
		}
		s.recv = recv
	}
	return s.recv.Read(p)
}

func (s *quicStream) Write(p []byte) (int, error) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.send == nil {
		send, err := s.conn.OpenUniStreamSync(s.ctx)
		if err != nil {
			return 0, errors.Wrap(err, "open quic stream")
		}
		s.send = send
	}
	return s.send.Write(p)
}

func (s *quicStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.cancel()
		err = s.conn.CloseWithError(quicNoError, "closed")
	})
	return err
}

func (s *quicStream) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

package task

import (
	"context"
	"io"

	"github.com/go-faster/errors"
	"github.com/rs/zerolog"

	"github.com/luciancaetano/tickwire/internal/queue"
	"github.com/luciancaetano/tickwire/internal/transport"
)

// Accept pulls streams from acceptor until ctx is done or the acceptor fails,
// attaching an id from ids to each and pushing it onto conns.
func Accept(ctx context.Context, acceptor transport.Acceptor, ids transport.IDGenerator, conns *queue.Queue[transport.Connection], log zerolog.Logger) {
	for {
		stream, err := acceptor.Accept(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				log.Debug().Msg("accept task stopped")
			case errors.Is(err, io.EOF):
				log.Debug().Msg("no more connect targets")
			default:
				log.Error().Err(err).Str("addr", acceptor.Addr()).Msg("accept failed")
			}
			return
		}

		conn := transport.NewConnection(stream, ids)
		if err := conns.Send(conn); err != nil {
			_ = stream.Close()
			return
		}
		log.Debug().
			Uint64("connection_id", uint64(conn.ID)).
			Stringer("remote_addr", stream.RemoteAddr()).
			Msg("connection established")
	}
}

package main

import (
	"crypto/tls"
	"net"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/luciancaetano/tickwire/internal/chat"
	"github.com/luciancaetano/tickwire/internal/config"
	"github.com/luciancaetano/tickwire/internal/transport"
	"github.com/luciancaetano/tickwire/internal/websocket"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var (
		writeCA   string
		anyOrigin bool
		syncEvery uint64
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the demo server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			logger, closer, err := setupLogger(cfg, stderr())
			if err != nil {
				return err
			}
			defer closer.Close()

			opts := transportOptions(cfg, logger)
			if anyOrigin {
				opts.CheckOrigin = websocket.AllOrigins()
			}
			if cfg.Network.Kind() == transport.QUIC {
				if opts.TLS, err = serverTLS(cfg, writeCA); err != nil {
					return err
				}
			}

			acceptor, err := transport.Listen(cfg.Network.Address, opts)
			if err != nil {
				return err
			}

			server := chat.NewServer(acceptor, chat.ServerOptions{
				Network:   cfg.NetworkOptions(),
				SyncEvery: syncEvery,
				Logger:    logger,
			})
			logger.Info().
				Str("addr", acceptor.Addr()).
				Str("transport", cfg.Network.Transport).
				Str("instance", server.Network().Instance().String()).
				Msg("serving")

			return server.Run(cmd.Context(), cfg.Network.TickInterval)
		},
	}

	cmd.Flags().StringVar(&writeCA, "write-ca", "", "with QUIC and no cert_file, write the generated certificate here")
	cmd.Flags().BoolVar(&anyOrigin, "any-origin", false, "accept websocket upgrades from any origin (dev only)")
	cmd.Flags().Uint64Var(&syncEvery, "sync-every", chat.DefaultSyncEvery, "ticks between TickSync broadcasts")
	return cmd
}

func serverTLS(cfg *config.Config, writeCA string) (*tls.Config, error) {
	if cfg.Network.TLS.CertFile != "" {
		return transport.LoadServerTLS(cfg.Network.TLS.CertFile, cfg.Network.TLS.KeyFile)
	}

	host, _, err := net.SplitHostPort(cfg.Network.Address)
	if err != nil {
		return nil, errors.Wrap(err, "parse address")
	}
	hosts := []string{"localhost"}
	if host != "" && host != "localhost" {
		hosts = append(hosts, host)
	}
	cert, err := transport.GenerateSelfSigned(hosts...)
	if err != nil {
		return nil, err
	}
	if writeCA != "" {
		if err := cert.WritePEM(writeCA); err != nil {
			return nil, err
		}
	}
	return cert.ServerTLSConfig(), nil
}

package main

import (
	"io"
	"os"

	"github.com/go-faster/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/luciancaetano/tickwire"
	"github.com/luciancaetano/tickwire/internal/config"
	"github.com/luciancaetano/tickwire/internal/transport"
)

type globalFlags struct {
	configPath string
	address    string
	transport  string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "tickwire",
		Short: "Binary packet transport for tick-based simulations",
		Long: `tickwire runs a small chat and movement demo on top of the tickwire
packet transport.

Examples:
  tickwire serve --address 127.0.0.1:7777
  tickwire connect --address 127.0.0.1:7777
  tickwire serve --transport quic --write-ca ca.pem
  tickwire connect --transport quic --ca-file ca.pem`,
		Version:       tickwire.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVarP(&flags.address, "address", "a", "", "listen or connect address (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&flags.transport, "transport", "t", "", "tcp, quic or websocket (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "trace, debug, info, warn or error (overrides config)")

	rootCmd.AddCommand(newServeCmd(flags))
	rootCmd.AddCommand(newConnectCmd(flags))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// load reads the config file, if any, and applies the command line overrides.
func (f *globalFlags) load() (*config.Config, error) {
	cfg := config.LoadDefaultConfig()
	if f.configPath != "" {
		loaded, err := config.LoadConfig(f.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if f.address != "" {
		cfg.Network.Address = f.address
	}
	if f.transport != "" {
		cfg.Network.Transport = f.transport
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

func setupLogger(cfg *config.Config, out io.Writer) (zerolog.Logger, io.Closer, error) {
	logger, closer, err := config.SetupLogger(cfg.Log, out)
	if err != nil {
		return zerolog.Logger{}, nil, err
	}
	return logger.With().Str("service", "tickwire").Logger(), closer, nil
}

func transportOptions(cfg *config.Config, logger zerolog.Logger) transport.Options {
	return transport.Options{
		Kind:   cfg.Network.Kind(),
		Logger: logger,
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("tickwire", tickwire.Version)
		},
	}
}

func stderr() io.Writer {
	return os.Stderr
}

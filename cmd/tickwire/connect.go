package main

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/luciancaetano/tickwire/internal/chat"
	"github.com/luciancaetano/tickwire/internal/protocol"
	"github.com/luciancaetano/tickwire/internal/queue"
	"github.com/luciancaetano/tickwire/internal/transport"
)

func newConnectCmd(flags *globalFlags) *cobra.Command {
	var (
		caFile     string
		serverName string
	)

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Join a demo server and chat from stdin",
		Long: `Each line read from stdin is sent as a chat message. Lines starting with
a slash are commands:

  /shout text    send a Shout instead of a Say
  /whisper text  send a Whisper
  /move x y      ask the server to move your entity
  /query id      ask whether an entity exists
  /who           list known entities`,
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
			if cfg.Network.Kind() == transport.QUIC {
				if caFile == "" {
					caFile = cfg.Network.TLS.CAFile
				}
				if serverName == "" {
					serverName = cfg.Network.TLS.ServerName
				}
				if opts.TLS, err = transport.LoadClientTLS(caFile, serverName); err != nil {
					return err
				}
			}
			dial, err := transport.Dialer(opts)
			if err != nil {
				return err
			}

			netCfg := cfg.NetworkOptions()
			netCfg.Logger = logger
			client := chat.NewClient(dial, netCfg, cmd.OutOrStdout())
			defer client.Close()
			if err := client.Connect(cfg.Network.Address); err != nil {
				return err
			}

			lines := readLines(cmd.InOrStdin())
			ticker := time.NewTicker(cfg.Network.TickInterval)
			defer ticker.Stop()

			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case <-ticker.C:
				}

				client.Step()
				for _, line := range lines.Drain() {
					if err := runLine(client, line, cmd.OutOrStdout()); err != nil {
						cmd.PrintErrln("error:", err)
					}
				}
				if lines.IsClosed() && lines.Len() == 0 {
					// Give the last lines a chance to leave before closing.
					client.Step()
					time.Sleep(cfg.Network.TickInterval)
					return nil
				}
			}
		},
	}

	cmd.Flags().StringVar(&caFile, "ca-file", "", "PEM certificate to trust for QUIC (overrides config)")
	cmd.Flags().StringVar(&serverName, "server-name", "", "TLS server name for QUIC (overrides config)")
	return cmd
}

// readLines feeds stdin into a queue that is closed at EOF.
func readLines(r io.Reader) *queue.Queue[string] {
	lines := queue.New[string]()
	go func() {
		defer lines.Close()
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				_ = lines.Send(line)
			}
		}
	}()
	return lines
}

func runLine(client *chat.Client, line string, out io.Writer) error {
	if !strings.HasPrefix(line, "/") {
		return client.Say(protocol.Say, line)
	}

	name, rest, _ := strings.Cut(line[1:], " ")
	rest = strings.TrimSpace(rest)
	switch name {
	case "shout":
		return client.Say(protocol.Shout, rest)
	case "whisper":
		return client.Say(protocol.Whisper, rest)
	case "move":
		fields := strings.Fields(rest)
		if len(fields) != 2 {
			return errors.New("usage: /move x y")
		}
		x, err := strconv.ParseInt(fields[0], 10, 32)
		if err != nil {
			return errors.Wrap(err, "x")
		}
		y, err := strconv.ParseInt(fields[1], 10, 32)
		if err != nil {
			return errors.Wrap(err, "y")
		}
		return client.MoveTo(int32(x), int32(y))
	case "query":
		id, err := strconv.ParseUint(rest, 10, 64)
		if err != nil {
			return errors.Wrap(err, "usage: /query id")
		}
		return client.Query(protocol.NetworkID(id))
	case "who":
		for _, id := range client.Entities() {
			marker := ""
			if id == client.Self() {
				marker = " (you)"
			}
			if _, err := io.WriteString(out, "  "+strconv.FormatUint(uint64(id), 10)+marker+"\n"); err != nil {
				return err
			}
		}
		return nil
	}
	return errors.Errorf("unknown command /%s", name)
}

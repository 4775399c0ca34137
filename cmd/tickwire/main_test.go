package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luciancaetano/tickwire"
	"github.com/luciancaetano/tickwire/internal/chat"
	"github.com/luciancaetano/tickwire/internal/network"
	"github.com/luciancaetano/tickwire/internal/transport"
)

// TestVersionCommand tests the version output
func TestVersionCommand(t *testing.T) {
	t.Parallel()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "tickwire "+tickwire.Version+"\n", out.String())
}

// TestFlagsOverrideConfig tests that command line flags win over the file
func TestFlagsOverrideConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tickwire.yaml")
	require.NoError(t, os.WriteFile(path, []byte("network:\n  address: 10.0.0.1:1\n  transport: quic\n"), 0o644))

	flags := &globalFlags{configPath: path, transport: "websocket", logLevel: "debug"}
	cfg, err := flags.load()
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.1:1", cfg.Network.Address)
	assert.Equal(t, transport.WebSocket, cfg.Network.Kind())
	assert.Equal(t, "debug", cfg.Log.Level)
}

// TestFlagsRejectInvalidValues tests validation after overrides
func TestFlagsRejectInvalidValues(t *testing.T) {
	t.Parallel()

	_, err := (&globalFlags{transport: "smoke-signal"}).load()
	assert.Error(t, err)

	_, err = (&globalFlags{configPath: filepath.Join(t.TempDir(), "nope.yaml")}).load()
	assert.Error(t, err)
}

// TestRunLine tests command parsing without a server
func TestRunLine(t *testing.T) {
	t.Parallel()

	client := chat.NewClient(transport.DialTCP, network.Config{Logger: zerolog.Nop()}, nil)
	defer client.Close()

	tests := []struct {
		line    string
		wantErr error
		usage   bool
	}{
		{line: "hello", wantErr: network.ErrNotConnected},
		{line: "/shout hey", wantErr: network.ErrNotConnected},
		{line: "/whisper psst", wantErr: network.ErrNotConnected},
		{line: "/move 1 2", wantErr: network.ErrNotConnected},
		{line: "/query 3", wantErr: network.ErrNotConnected},
		{line: "/move 1", usage: true},
		{line: "/move a 2", usage: true},
		{line: "/query x", usage: true},
		{line: "/dance", usage: true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			err := runLine(client, tt.line, &bytes.Buffer{})
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.usage {
				assert.NotErrorIs(t, err, network.ErrNotConnected)
			}
		})
	}

	var out bytes.Buffer
	require.NoError(t, runLine(client, "/who", &out))
	assert.Empty(t, out.String())
}

// TestReadLines tests that blank lines are skipped and EOF closes the queue
func TestReadLines(t *testing.T) {
	t.Parallel()

	lines := readLines(bytes.NewBufferString("one\n\n  two  \n"))
	<-lines.Done()
	assert.Equal(t, []string{"one", "two"}, lines.Drain())
}

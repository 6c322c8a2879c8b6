//go:build unix

package cmd_test

import (
	"bytes"
	"io"
	"net"
	"strconv"
	"testing"

	"github.com/AdguardTeam/golibs/log"
	"github.com/ameshkov/goconnect/internal/cmd"
	"github.com/ameshkov/goconnect/internal/config"
	"github.com/ameshkov/goconnect/internal/output"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startUDPServer starts a UDP server that replies "pong" to every datagram.
func startUDPServer(t *testing.T) (port string) {
	t.Helper()

	pc, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { log.OnCloserError(pc, log.DEBUG) })

	go func() {
		buf := make([]byte, 512)
		for {
			_, from, rErr := pc.ReadFrom(buf)
			if rErr != nil {
				return
			}

			_, _ = pc.WriteTo([]byte("pong"), from)
		}
	}()

	return strconv.Itoa(pc.LocalAddr().(*net.UDPAddr).Port)
}

// TestRunUDP tests a datagram exchange with a local server.
func TestRunUDP(t *testing.T) {
	port := startUDPServer(t)

	for _, args := range [][]string{
		{"-d", "ping", "127.0.0.1", port},
		{"--async", "-d", "ping", "127.0.0.1", port},
		{"-4", "-d", "ping", "localhost", port},
		{"--resolve=local.example:" + port + ":127.0.0.1", "-d", "ping", "local.example", port},
	} {
		// Create buffers for output
		dataBuffer := &bytes.Buffer{}
		logBuffer := &bytes.Buffer{}

		cfg, err := config.ParseConfig(args)
		require.NoError(t, err)

		out := output.NewOutputWithWriters(dataBuffer, logBuffer, cfg.Verbose, cfg.OutputJSON)

		err = cmd.Run(cfg, out)
		require.NoError(t, err)

		assert.Equal(t, "pong", dataBuffer.String())
		assert.Contains(t, logBuffer.String(), "Received 4 bytes from 127.0.0.1:"+port)
	}
}

// TestRunTCP_jsonOutput tests a stream exchange with the JSON output.
func TestRunTCP_jsonOutput(t *testing.T) {
	l, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { log.OnCloserError(l, log.DEBUG) })

	go func() {
		conn, aErr := l.Accept()
		if aErr != nil {
			return
		}
		defer log.OnCloserError(conn, log.DEBUG)

		buf := make([]byte, 4)
		if _, rErr := io.ReadFull(conn, buf); rErr != nil {
			return
		}

		_, _ = conn.Write([]byte("pong"))
	}()

	_, port, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)

	dataBuffer := &bytes.Buffer{}
	cfg, err := config.ParseConfig([]string{"-t", "--json-output", "-d", "ping", "127.0.0.1", port})
	require.NoError(t, err)

	out := output.NewOutputWithWriters(dataBuffer, &bytes.Buffer{}, cfg.Verbose, cfg.OutputJSON)

	err = cmd.Run(cfg, out)
	require.NoError(t, err)

	var res output.Result
	require.NoError(t, json.Unmarshal(dataBuffer.Bytes(), &res))

	assert.Equal(t, "connect", res.Mode)
	assert.Equal(t, "tcp", res.Network)
	assert.Equal(t, l.Addr().String(), res.Endpoint)
	assert.Equal(t, "cG9uZw==", res.ReceivedBase64)
}

// TestRunConnectRefused tests that the last connection error is reported.
func TestRunConnectRefused(t *testing.T) {
	l, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)

	_, port, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)
	require.NoError(t, l.Close())

	cfg, err := config.ParseConfig([]string{"-t", "127.0.0.1", port})
	require.NoError(t, err)

	out := output.NewOutputWithWriters(&bytes.Buffer{}, &bytes.Buffer{}, false, false)

	err = cmd.Run(cfg, out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

// TestRunNumeric tests that names are rejected with --numeric.
func TestRunNumeric(t *testing.T) {
	cfg, err := config.ParseConfig([]string{"-n", "example.org", "53"})
	require.NoError(t, err)

	out := output.NewOutputWithWriters(&bytes.Buffer{}, &bytes.Buffer{}, false, false)

	err = cmd.Run(cfg, out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host is not an ip address")
}

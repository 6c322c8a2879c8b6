//go:build unix

package client_test

import (
	"bytes"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/AdguardTeam/golibs/log"
	"github.com/ameshkov/goconnect/internal/client"
	"github.com/ameshkov/goconnect/internal/config"
	"github.com/ameshkov/goconnect/internal/output"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestOutput returns an *output.Output that discards everything.
func newTestOutput() (out *output.Output) {
	return output.NewOutputWithWriters(&bytes.Buffer{}, &bytes.Buffer{}, true, false)
}

// portOf returns the port of addr as a string.
func portOf(addr net.Addr) (port string) {
	_, port, _ = net.SplitHostPort(addr.String())

	return port
}

func TestListen_udp(t *testing.T) {
	cfg := &config.Config{Listen: true, Service: "0"}

	l, err := client.Listen(cfg, newTestOutput())
	require.NoError(t, err)
	t.Cleanup(func() { log.OnCloserError(l, log.DEBUG) })

	go func() {
		conn, dErr := net.Dial("udp4", net.JoinHostPort("127.0.0.1", portOf(l.Addr())))
		if dErr != nil {
			return
		}
		defer log.OnCloserError(conn, log.DEBUG)

		_, _ = conn.Write([]byte("hello"))
	}()

	res, err := l.Receive(2 * time.Second)
	require.NoError(t, err)

	assert.Equal(t, "listen", res.Mode)
	assert.Equal(t, "udp4", res.Network)
	assert.Equal(t, "0.0.0.0:0", res.Endpoint)
	assert.Equal(t, "hello", string(res.Received))
	assert.NotEmpty(t, res.Peer)
}

func TestListen_tcp(t *testing.T) {
	cfg := &config.Config{Listen: true, TCP: true, Service: "0"}

	l, err := client.Listen(cfg, newTestOutput())
	require.NoError(t, err)
	t.Cleanup(func() { log.OnCloserError(l, log.DEBUG) })

	go func() {
		conn, dErr := net.Dial("tcp4", net.JoinHostPort("127.0.0.1", portOf(l.Addr())))
		if dErr != nil {
			return
		}

		_, _ = conn.Write([]byte("hello over tcp"))
		log.OnCloserError(conn, log.DEBUG)
	}()

	res, err := l.Receive(2 * time.Second)
	require.NoError(t, err)

	assert.Equal(t, "tcp4", res.Network)
	assert.Equal(t, "hello over tcp", string(res.Received))
}

func TestListen_timeout(t *testing.T) {
	l, err := client.Listen(&config.Config{Listen: true, Service: "0"}, newTestOutput())
	require.NoError(t, err)
	t.Cleanup(func() { log.OnCloserError(l, log.DEBUG) })

	_, err = l.Receive(10 * time.Millisecond)
	assert.Error(t, err)
}

func TestConnect_exchange(t *testing.T) {
	pc, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { log.OnCloserError(pc, log.DEBUG) })

	go func() {
		buf := make([]byte, 64)
		n, from, rErr := pc.ReadFrom(buf)
		if rErr != nil {
			return
		}

		_, _ = pc.WriteTo(append([]byte("re: "), buf[:n]...), from)
	}()

	port := pc.LocalAddr().(*net.UDPAddr).Port
	cfg := &config.Config{
		Host:    "127.0.0.1",
		Service: strconv.Itoa(port),
		Async:   true,
	}

	conn, err := client.Connect(cfg, newTestOutput())
	require.NoError(t, err)
	t.Cleanup(func() { log.OnCloserError(conn, log.DEBUG) })

	res, err := client.Exchange(conn, []byte("ping"), 2*time.Second)
	require.NoError(t, err)

	assert.Equal(t, "connect", res.Mode)
	assert.Equal(t, pc.LocalAddr().String(), res.Endpoint)
	assert.Equal(t, pc.LocalAddr().String(), res.Peer)
	assert.Equal(t, "re: ping", string(res.Received))
}

func TestConnect_connectTo(t *testing.T) {
	l, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { log.OnCloserError(l, log.DEBUG) })

	cfg := &config.Config{
		Host:      "unreachable.example",
		Service:   "80",
		TCP:       true,
		ConnectTo: map[string]string{"unreachable.example:80": l.Addr().String()},
	}

	conn, err := client.Connect(cfg, newTestOutput())
	require.NoError(t, err)
	t.Cleanup(func() { log.OnCloserError(conn, log.DEBUG) })

	assert.Equal(t, l.Addr().String(), conn.RemoteAddr().String())
}

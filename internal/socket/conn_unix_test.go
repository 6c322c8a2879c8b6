//go:build unix

package socket_test

import (
	"net"
	"net/netip"
	"syscall"
	"testing"
	"time"

	"github.com/ameshkov/goconnect/internal/proto"
	"github.com/ameshkov/goconnect/internal/sched"
	"github.com/ameshkov/goconnect/internal/socket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loopback is the IPv4 loopback address.
var loopback = netip.MustParseAddr("127.0.0.1")

func TestConn_Connect_udp(t *testing.T) {
	srv, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	port := uint16(srv.LocalAddr().(*net.UDPAddr).Port)
	ep := proto.NewEndpoint[proto.UDP](loopback, port)

	c, err := socket.New(ep.Protocol())
	require.NoError(t, err)
	assert.Equal(t, proto.UDPv4(), c.Protocol())

	require.NoError(t, c.Connect(ep))

	conn, err := c.NetConn()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	_, err = conn.Write([]byte("ping"))
	require.NoError(t, err)

	buf := make([]byte, 16)
	require.NoError(t, srv.SetReadDeadline(time.Now().Add(time.Second)))
	n, addr, err := srv.ReadFrom(buf)
	require.NoError(t, err)

	assert.Equal(t, "ping", string(buf[:n]))
	assert.Equal(t, conn.LocalAddr().String(), addr.String())

	// The socket is owned by conn now.
	assert.ErrorIs(t, c.Close(), socket.ErrClosed)
}

func TestConn_Connect_tcp(t *testing.T) {
	l, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	port := uint16(l.Addr().(*net.TCPAddr).Port)
	ep := proto.NewEndpoint[proto.TCP](loopback, port)

	c, err := socket.New(proto.TCPv4())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Connect(ep))

	local, err := c.LocalEndpoint()
	require.NoError(t, err)
	assert.Equal(t, loopback, local.Addr())
	assert.NotZero(t, local.Port())
}

func TestConn_Connect_refused(t *testing.T) {
	l, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)

	port := uint16(l.Addr().(*net.TCPAddr).Port)
	require.NoError(t, l.Close())

	c, err := socket.New(proto.TCPv4())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	err = c.Connect(proto.NewEndpoint[proto.TCP](loopback, port))
	assert.ErrorIs(t, err, syscall.ECONNREFUSED)
}

func TestConn_AsyncConnect(t *testing.T) {
	l, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	port := uint16(l.Addr().(*net.TCPAddr).Port)

	c, err := socket.New(proto.TCPv4())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	svc := sched.NewService()
	st := svc.NewStrand()

	results := make(chan error, 1)
	c.AsyncConnect(proto.NewEndpoint[proto.TCP](loopback, port), st, func(err error) {
		results <- err
	})

	svc.Wait()

	require.Len(t, results, 1)
	assert.NoError(t, <-results)
}

func TestConn_AsyncConnect_stopped(t *testing.T) {
	c, err := socket.New(proto.UDPv4())
	require.NoError(t, err)

	svc := sched.NewService()
	svc.Stop()

	called := false
	c.AsyncConnect(proto.NewEndpoint[proto.UDP](loopback, 9), svc.NewStrand(), func(_ error) {
		called = true
	})

	svc.Wait()

	assert.False(t, called)
	assert.ErrorIs(t, c.Close(), socket.ErrClosed)
}

func TestConn_AsyncConnect_stoppedAfterConnect(t *testing.T) {
	l, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	port := uint16(l.Addr().(*net.TCPAddr).Port)

	c, err := socket.New(proto.TCPv4())
	require.NoError(t, err)

	svc := sched.NewService()
	st := svc.NewStrand()

	// Keep the strand busy so that the completion is queued behind the gate.
	gate := make(chan struct{})
	require.True(t, st.Post(func() { <-gate }))

	called := false
	c.AsyncConnect(proto.NewEndpoint[proto.TCP](loopback, port), st, func(_ error) {
		called = true
	})

	// Wait for the connection to be established and the completion queued.
	require.Eventually(t, func() (ok bool) {
		conn, aErr := l.Accept()
		if aErr != nil {
			return false
		}

		_ = conn.Close()

		return true
	}, time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	svc.Stop()
	close(gate)
	svc.Wait()

	assert.False(t, called)
	assert.ErrorIs(t, c.Close(), socket.ErrClosed)
}

func TestConn_Bind_closed(t *testing.T) {
	c, err := socket.New(proto.UDPv4())
	require.NoError(t, err)
	require.NoError(t, c.Close())

	assert.ErrorIs(t, c.Bind(proto.NewEndpoint[proto.UDP](loopback, 0)), socket.ErrClosed)
	assert.ErrorIs(t, c.Listen(1), socket.ErrClosed)

	_, err = c.LocalEndpoint()
	assert.ErrorIs(t, err, socket.ErrClosed)
}

func TestConn_Bind(t *testing.T) {
	c, err := socket.New(proto.UDPv4())
	require.NoError(t, err)

	require.NoError(t, c.Bind(proto.NewEndpoint[proto.UDP](loopback, 0)))

	local, err := c.LocalEndpoint()
	require.NoError(t, err)
	require.NotZero(t, local.Port())

	pc, err := c.NetPacketConn()
	require.NoError(t, err)
	t.Cleanup(func() { _ = pc.Close() })

	assert.Equal(t, local.AddrPort().String(), pc.LocalAddr().String())
}

func TestConn_Close(t *testing.T) {
	c, err := socket.New(proto.UDPv4())
	require.NoError(t, err)

	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Close(), socket.ErrClosed)
	assert.ErrorIs(t, c.Connect(proto.NewEndpoint[proto.UDP](loopback, 9)), socket.ErrClosed)
}

package dialer

import "net"

// udpConn is a wrapper over a connected datagram net.Conn that implements
// net.PacketConn on top of it.  The peer address of every packet is the
// remote address of the connection.
type udpConn struct {
	net.Conn
}

// type check
var _ net.PacketConn = (*udpConn)(nil)

// ReadFrom implements net.PacketConn for *udpConn.
func (u *udpConn) ReadFrom(b []byte) (n int, addr net.Addr, err error) {
	n, err = u.Read(b)

	return n, u.RemoteAddr(), err
}

// WriteTo implements net.PacketConn for *udpConn.  addr is ignored.
func (u *udpConn) WriteTo(b []byte, _ net.Addr) (n int, err error) {
	return u.Write(b)
}

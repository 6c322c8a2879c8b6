//go:build !unix

package socket

import (
	"net"

	"github.com/ameshkov/goconnect/internal/proto"
	"github.com/ameshkov/goconnect/internal/sched"
)

// Conn is a socket backed by an OS socket.  It is not supported on this
// platform, New always fails.
type Conn[P proto.Protocol[P]] struct {
	proto P
}

// type check
var _ Bindable[proto.UDP] = (*Conn[proto.UDP])(nil)

// New always returns ErrUnsupported on this platform.
func New[P proto.Protocol[P]](_ P) (c *Conn[P], err error) {
	return nil, ErrUnsupported
}

// Protocol returns the protocol the socket was created for.
func (c *Conn[P]) Protocol() (p P) { return c.proto }

// Connect implements the Socket interface for *Conn.
func (c *Conn[P]) Connect(_ proto.Endpoint[P]) (err error) { return ErrUnsupported }

// AsyncConnect implements the Socket interface for *Conn.
func (c *Conn[P]) AsyncConnect(_ proto.Endpoint[P], st *sched.Strand, onComplete func(err error)) {
	st.Post(func() { onComplete(ErrUnsupported) })
}

// Bind binds the socket to ep.
func (c *Conn[P]) Bind(_ proto.Endpoint[P]) (err error) { return ErrUnsupported }

// Listen marks a bound stream socket as accepting connections.
func (c *Conn[P]) Listen(_ int) (err error) { return ErrUnsupported }

// LocalEndpoint returns the endpoint the socket is bound to.
func (c *Conn[P]) LocalEndpoint() (ep proto.Endpoint[P], err error) { return ep, ErrUnsupported }

// NetConn hands the connected socket over to the net package.
func (c *Conn[P]) NetConn() (conn net.Conn, err error) { return nil, ErrUnsupported }

// NetPacketConn hands the bound datagram socket over to the net package.
func (c *Conn[P]) NetPacketConn() (conn net.PacketConn, err error) { return nil, ErrUnsupported }

// NetListener hands the listening stream socket over to the net package.
func (c *Conn[P]) NetListener() (l net.Listener, err error) { return nil, ErrUnsupported }

// Close implements the Socket interface for *Conn.
func (c *Conn[P]) Close() (err error) { return nil }

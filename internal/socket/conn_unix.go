//go:build unix

package socket

import (
	"fmt"
	"net"
	"net/netip"
	"os"
	"strconv"
	"sync"
	"syscall"

	"github.com/AdguardTeam/golibs/log"
	"github.com/ameshkov/goconnect/internal/proto"
	"github.com/ameshkov/goconnect/internal/sched"
	"golang.org/x/sys/unix"
)

// Conn is a socket backed by an OS socket.  Once connected or bound it can be
// handed over to the net package with NetConn, NetPacketConn or NetListener.
type Conn[P proto.Protocol[P]] struct {
	proto P

	// mu protects fd.  fd is -1 once the socket is closed or handed over.
	mu *sync.Mutex
	fd int
}

// type check
var _ Bindable[proto.UDP] = (*Conn[proto.UDP])(nil)

// New creates a new OS socket for the protocol p.
func New[P proto.Protocol[P]](p P) (c *Conn[P], err error) {
	domain, err := domainOf(p.Family())
	if err != nil {
		return nil, err
	}

	typ := unix.SOCK_DGRAM
	if p.SocketKind() == proto.KindStream {
		typ = unix.SOCK_STREAM
	}

	// Hold the fork lock so that the descriptor doesn't leak to a child
	// process before it's marked close-on-exec.
	syscall.ForkLock.RLock()
	fd, err := unix.Socket(domain, typ, p.ProtocolNumber())
	if err == nil {
		unix.CloseOnExec(fd)
	}
	syscall.ForkLock.RUnlock()

	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}

	return &Conn[P]{
		proto: p,
		mu:    &sync.Mutex{},
		fd:    fd,
	}, nil
}

// Protocol returns the protocol the socket was created for.
func (c *Conn[P]) Protocol() (p P) { return c.proto }

// Connect implements the Socket interface for *Conn.  The descriptor is used
// without holding the lock for the whole, possibly long, connection, so Close
// must not be called concurrently with Connect.
func (c *Conn[P]) Connect(ep proto.Endpoint[P]) (err error) {
	sa, err := sockaddr(ep.AddrPort())
	if err != nil {
		return err
	}

	fd, err := c.sysfd()
	if err != nil {
		return err
	}

	err = unix.Connect(fd, sa)
	switch err {
	case nil:
		return nil
	case unix.EINTR, unix.EINPROGRESS, unix.EALREADY:
		// The connection is still being established in the background.
		return waitConnected(fd)
	default:
		return os.NewSyscallError("connect", err)
	}
}

// AsyncConnect implements the Socket interface for *Conn.  The blocking
// connect runs on the service of st.
func (c *Conn[P]) AsyncConnect(ep proto.Endpoint[P], st *sched.Strand, onComplete func(err error)) {
	ok := st.Service().Go(func() {
		err := c.Connect(ep)
		closeConn := func() { log.OnCloserError(c, log.DEBUG) }
		if !st.PostOrDrop(func() { onComplete(err) }, closeConn) {
			closeConn()
		}
	})
	if !ok {
		log.OnCloserError(c, log.DEBUG)
	}
}

// Bind binds the socket to ep.
func (c *Conn[P]) Bind(ep proto.Endpoint[P]) (err error) {
	sa, err := sockaddr(ep.AddrPort())
	if err != nil {
		return err
	}

	return c.withFD(func(fd int) (opErr error) {
		return os.NewSyscallError("bind", unix.Bind(fd, sa))
	})
}

// Listen marks a bound stream socket as accepting connections.
func (c *Conn[P]) Listen(backlog int) (err error) {
	return c.withFD(func(fd int) (opErr error) {
		return os.NewSyscallError("listen", unix.Listen(fd, backlog))
	})
}

// LocalEndpoint returns the endpoint the socket is bound to.
func (c *Conn[P]) LocalEndpoint() (ep proto.Endpoint[P], err error) {
	var sa unix.Sockaddr
	err = c.withFD(func(fd int) (opErr error) {
		sa, opErr = unix.Getsockname(fd)

		return os.NewSyscallError("getsockname", opErr)
	})
	if err != nil {
		return ep, err
	}

	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return proto.NewEndpoint[P](netip.AddrFrom4(sa.Addr), uint16(sa.Port)), nil
	case *unix.SockaddrInet6:
		return proto.NewEndpoint[P](netip.AddrFrom16(sa.Addr), uint16(sa.Port)), nil
	default:
		return ep, fmt.Errorf("unexpected socket address %T", sa)
	}
}

// NetConn hands the connected socket over to the net package.  The socket
// must not be used afterwards, the returned connection owns it.
func (c *Conn[P]) NetConn() (conn net.Conn, err error) {
	return handOver(c, net.FileConn)
}

// NetPacketConn hands the bound datagram socket over to the net package.  The
// socket must not be used afterwards.
func (c *Conn[P]) NetPacketConn() (conn net.PacketConn, err error) {
	return handOver(c, net.FilePacketConn)
}

// NetListener hands the listening stream socket over to the net package.  The
// socket must not be used afterwards.
func (c *Conn[P]) NetListener() (l net.Listener, err error) {
	return handOver(c, net.FileListener)
}

// Close implements the Socket interface for *Conn.
func (c *Conn[P]) Close() (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fd < 0 {
		return ErrClosed
	}

	fd := c.fd
	c.fd = -1

	return os.NewSyscallError("close", unix.Close(fd))
}

// withFD calls fn with the descriptor of the socket while holding the lock, so
// that the descriptor can't be closed and reused in the meantime.
func (c *Conn[P]) withFD(fn func(fd int) (opErr error)) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fd < 0 {
		return ErrClosed
	}

	return fn(c.fd)
}

// sysfd returns the descriptor of the socket.
func (c *Conn[P]) sysfd() (fd int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fd < 0 {
		return -1, ErrClosed
	}

	return c.fd, nil
}

// handOver converts the socket into a net package type with fn.  The socket is
// closed in any case since fn works with a duplicate of the descriptor.
func handOver[P proto.Protocol[P], T any](c *Conn[P], fn func(f *os.File) (T, error)) (v T, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fd < 0 {
		return v, ErrClosed
	}

	f := os.NewFile(uintptr(c.fd), "socket:"+proto.DescriptorOf(c.proto).Network())
	c.fd = -1
	defer log.OnCloserError(f, log.DEBUG)

	return fn(f)
}

// waitConnected waits for the connection on the socket fd to be established
// and returns the error it has been established with.
func waitConnected(fd int) (err error) {
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
	for {
		_, err = unix.Poll(fds, -1)
		if err != unix.EINTR {
			break
		}
	}

	if err != nil {
		return os.NewSyscallError("poll", err)
	}

	soErr, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return os.NewSyscallError("getsockopt", err)
	} else if soErr != 0 {
		return os.NewSyscallError("connect", syscall.Errno(soErr))
	}

	return nil
}

// domainOf returns the socket domain for the family f.
func domainOf(f proto.Family) (domain int, err error) {
	switch f {
	case proto.FamilyIPv4:
		return unix.AF_INET, nil
	case proto.FamilyIPv6:
		return unix.AF_INET6, nil
	default:
		return 0, fmt.Errorf("unsupported address family %s", f)
	}
}

// sockaddr converts ap into a socket address.
func sockaddr(ap netip.AddrPort) (sa unix.Sockaddr, err error) {
	addr := ap.Addr()
	switch {
	case addr.Is4():
		return &unix.SockaddrInet4{Port: int(ap.Port()), Addr: addr.As4()}, nil
	case addr.Is6():
		sa6 := &unix.SockaddrInet6{Port: int(ap.Port()), Addr: addr.As16()}
		sa6.ZoneId, err = zoneID(addr.Zone())

		return sa6, err
	default:
		return nil, fmt.Errorf("invalid address %q", ap)
	}
}

// zoneID returns the index of the interface named by an IPv6 zone.
func zoneID(zone string) (id uint32, err error) {
	if zone == "" {
		return 0, nil
	}

	if ifi, ifErr := net.InterfaceByName(zone); ifErr == nil {
		return uint32(ifi.Index), nil
	}

	n, err := strconv.ParseUint(zone, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid zone %q", zone)
	}

	return uint32(n), nil
}

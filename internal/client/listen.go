package client

import (
	"net"
	"strconv"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/log"
	"github.com/ameshkov/goconnect/internal/config"
	"github.com/ameshkov/goconnect/internal/connect"
	"github.com/ameshkov/goconnect/internal/output"
	"github.com/ameshkov/goconnect/internal/proto"
	"github.com/ameshkov/goconnect/internal/resolve"
	"github.com/ameshkov/goconnect/internal/socket"
)

// listenBacklog is the backlog of the stream listener.
const listenBacklog = 16

// Listener is a socket bound to a wildcard address that waits for incoming
// data.
type Listener struct {
	// pc is set for datagram sockets.
	pc net.PacketConn

	// l is set for stream sockets.
	l net.Listener

	out *output.Output

	// endpoint is the endpoint the socket is bound to.
	endpoint string

	// network is the network of the endpoint, e.g. "udp6".
	network string
}

// Listen binds a socket to the first wildcard address for the service from
// cfg that it can be bound to.  A numeric service is treated as a port
// number.
func Listen(cfg *config.Config, out *output.Output) (l *Listener, err error) {
	backend := resolve.NewResolver(cfg, out)
	q := passiveQuery(cfg.Service)

	if cfg.TCP {
		return listenStream(backend, q, out)
	}

	return listenDatagram(backend, q, out)
}

// passiveQuery returns the query for the wildcard addresses of service.
func passiveQuery(service string) (q resolve.Query) {
	port, err := strconv.ParseUint(service, 10, 16)
	if err == nil {
		return resolve.PassivePort{Port: uint16(port)}
	}

	return resolve.PassiveService{Service: service}
}

// listenDatagram binds a datagram socket.
func listenDatagram(backend resolve.Backend, q resolve.Query, out *output.Output) (l *Listener, err error) {
	e := connect.New[proto.UDP, *socket.Conn[proto.UDP]](backend, socket.New[proto.UDP], out)
	sock, ep, err := connect.Bind(e, q)
	if err != nil {
		return nil, err
	}

	pc, err := sock.NetPacketConn()
	if err != nil {
		return nil, err
	}

	return &Listener{
		pc:       pc,
		out:      out,
		endpoint: ep.String(),
		network:  proto.DescriptorOf(ep.Protocol()).Network(),
	}, nil
}

// listenStream binds a stream socket and starts listening on it.
func listenStream(backend resolve.Backend, q resolve.Query, out *output.Output) (l *Listener, err error) {
	e := connect.New[proto.TCP, *socket.Conn[proto.TCP]](backend, socket.New[proto.TCP], out)
	sock, ep, err := connect.Bind(e, q)
	if err != nil {
		return nil, err
	}

	err = sock.Listen(listenBacklog)
	if err != nil {
		log.OnCloserError(sock, log.DEBUG)

		return nil, err
	}

	nl, err := sock.NetListener()
	if err != nil {
		return nil, err
	}

	return &Listener{
		l:        nl,
		out:      out,
		endpoint: ep.String(),
		network:  proto.DescriptorOf(ep.Protocol()).Network(),
	}, nil
}

// Addr returns the local address of the listener.
func (l *Listener) Addr() (addr net.Addr) {
	if l.pc != nil {
		return l.pc.LocalAddr()
	}

	return l.l.Addr()
}

// deadliner is a net.Listener that supports deadlines.  *net.TCPListener
// implements it.
type deadliner interface {
	SetDeadline(t time.Time) (err error)
}

// Receive waits for at most timeout for incoming data.  A datagram listener
// receives a single datagram, a stream one accepts a single connection and
// reads from it until the peer closes it or the timeout expires.
func (l *Listener) Receive(timeout time.Duration) (res *output.Result, err error) {
	deadline := time.Now().Add(timeout)

	res = &output.Result{
		Mode:     "listen",
		Network:  l.network,
		Endpoint: l.endpoint,
		Local:    l.Addr().String(),
	}

	l.out.Debug("Waiting for incoming data on %s for %s", res.Local, timeout)

	if l.pc != nil {
		err = l.pc.SetReadDeadline(deadline)
		if err != nil {
			return nil, err
		}

		buf := make([]byte, maxDatagramSize)
		n, peer, rErr := l.pc.ReadFrom(buf)
		if rErr != nil {
			return nil, errors.Annotate(rErr, "receiving datagram: %w")
		}

		res.Peer, res.Received = peer.String(), buf[:n]

		return res, nil
	}

	if d, ok := l.l.(deadliner); ok {
		err = d.SetDeadline(deadline)
		if err != nil {
			return nil, err
		}
	}

	conn, err := l.l.Accept()
	if err != nil {
		return nil, errors.Annotate(err, "accepting connection: %w")
	}
	defer log.OnCloserError(conn, log.DEBUG)

	err = conn.SetReadDeadline(deadline)
	if err != nil {
		return nil, err
	}

	res.Peer = conn.RemoteAddr().String()
	res.Received, err = readStream(conn)
	if err != nil {
		return nil, errors.Annotate(err, "reading from %s: %w", res.Peer)
	}

	return res, nil
}

// Close closes the listener.
func (l *Listener) Close() (err error) {
	if l.pc != nil {
		return l.pc.Close()
	}

	return l.l.Close()
}

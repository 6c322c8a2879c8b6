package dialer

import (
	"fmt"
	"net"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/ameshkov/goconnect/internal/connect"
	"github.com/ameshkov/goconnect/internal/output"
	"github.com/ameshkov/goconnect/internal/proto"
	"github.com/ameshkov/goconnect/internal/resolve"
	"github.com/ameshkov/goconnect/internal/sched"
	"github.com/ameshkov/goconnect/internal/socket"
)

// ErrUnsupportedNetwork is returned when the network is neither "udp" nor
// "tcp".
const ErrUnsupportedNetwork errors.Error = "unsupported network"

// Direct implements the Dialer interface and provides the base DialFunc
// implementation that resolves the target host and tries every address until
// it connects to one.
type Direct struct {
	backend resolve.Backend
	out     *output.Output
	async   bool
}

// type check
var _ Dialer = (*Direct)(nil)

// NewDirect creates a new instance of *Direct.  If async is true, the
// connections are established asynchronously.
func NewDirect(backend resolve.Backend, out *output.Output, async bool) (d *Direct) {
	return &Direct{
		backend: backend,
		out:     out,
		async:   async,
	}
}

// Dial implements Dialer for *Direct.
func (d *Direct) Dial(network, addr string) (conn net.Conn, err error) {
	d.out.Debug("Connecting to %s://%s", network, addr)

	host, service, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}

	q := resolve.HostService{Host: host, Service: service}

	switch network {
	case "udp":
		conn, err = dial[proto.UDP](d, q)
		if err != nil {
			return nil, err
		}

		return &udpConn{Conn: conn}, nil
	case "tcp":
		return dial[proto.TCP](d, q)
	default:
		return nil, fmt.Errorf("%q: %w", network, ErrUnsupportedNetwork)
	}
}

// dial establishes a connection of the protocol P and hands it over to the net
// package.
func dial[P proto.Protocol[P]](d *Direct, q resolve.Query) (conn net.Conn, err error) {
	e := connect.New[P, *socket.Conn[P]](d.backend, socket.New[P], d.out)

	var sock *socket.Conn[P]
	var ep proto.Endpoint[P]
	if d.async {
		sock, ep, err = connectAsync(e, q)
	} else {
		sock, ep, err = e.Connect(q)
	}

	if err != nil {
		return nil, err
	}

	d.out.Debug("Connected to %s over %s", ep, proto.DescriptorOf(ep.Protocol()))

	return sock.NetConn()
}

// connectAsync runs the asynchronous establishment on a new service and waits
// for its result.
func connectAsync[P proto.Protocol[P]](
	e *connect.Establisher[P, *socket.Conn[P]],
	q resolve.Query,
) (sock *socket.Conn[P], ep proto.Endpoint[P], err error) {
	svc := sched.NewService()

	e.AsyncConnect(q, svc.NewStrand(), func(s *socket.Conn[P], cep proto.Endpoint[P], cErr error) {
		sock, ep, err = s, cep, cErr
	})

	svc.Wait()

	return sock, ep, err
}

// Package socket contains the sockets the connection logic operates on.
package socket

import (
	"github.com/AdguardTeam/golibs/errors"
	"github.com/ameshkov/goconnect/internal/proto"
	"github.com/ameshkov/goconnect/internal/sched"
)

// ErrUnsupported is returned when raw sockets are not supported on the
// platform.
const ErrUnsupported = errors.Error("raw sockets are not supported on this platform")

// ErrClosed is returned when a closed socket is used.
const ErrClosed = errors.Error("use of closed socket")

// Socket is a transport endpoint of the protocol P.
type Socket[P proto.Protocol[P]] interface {
	// Connect connects the socket to ep and blocks until it's done.
	Connect(ep proto.Endpoint[P]) (err error)

	// AsyncConnect starts connecting the socket to ep and returns
	// immediately.  onComplete is called exactly once with the result, and
	// it is always called from st, never from AsyncConnect itself.  If the
	// service of st is stopped before the connection completes, onComplete
	// is not called at all and the socket is closed.
	AsyncConnect(ep proto.Endpoint[P], st *sched.Strand, onComplete func(err error))

	// Close closes the socket.
	Close() (err error)
}

// Bindable is a Socket that can be bound to a local endpoint.
type Bindable[P proto.Protocol[P]] interface {
	Socket[P]

	// Bind binds the socket to the local endpoint ep.
	Bind(ep proto.Endpoint[P]) (err error)
}

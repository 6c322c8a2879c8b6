// Package connect establishes connections: it resolves a query into candidate
// endpoints and tries them one by one until a socket connects.
package connect

import (
	"github.com/AdguardTeam/golibs/log"
	"github.com/ameshkov/goconnect/internal/output"
	"github.com/ameshkov/goconnect/internal/proto"
	"github.com/ameshkov/goconnect/internal/resolve"
	"github.com/ameshkov/goconnect/internal/socket"
)

// NewSocketFunc creates a new unconnected socket of the protocol p.
type NewSocketFunc[P proto.Protocol[P], S socket.Socket[P]] func(p P) (s S, err error)

// Continuation receives the result of an asynchronous establishment.  Either
// err is nil and sock is connected to ep, or err is not nil and sock and ep
// are zero values.
type Continuation[P proto.Protocol[P], S socket.Socket[P]] func(sock S, ep proto.Endpoint[P], err error)

// Establisher turns queries into connected sockets of the protocol P.
type Establisher[P proto.Protocol[P], S socket.Socket[P]] struct {
	backend   resolve.Backend
	newSocket NewSocketFunc[P, S]
	out       *output.Output
}

// New creates a new *Establisher.  backend resolves the queries, newSocket
// creates a socket for every candidate that is tried.
func New[P proto.Protocol[P], S socket.Socket[P]](
	backend resolve.Backend,
	newSocket NewSocketFunc[P, S],
	out *output.Output,
) (e *Establisher[P, S]) {
	return &Establisher[P, S]{
		backend:   backend,
		newSocket: newSocket,
		out:       out,
	}
}

// Connect resolves q and connects a new socket to the first candidate that
// accepts the connection.  It blocks until it's done.
//
// If resolution fails, the returned error is *resolve.ResolutionError.  If a
// socket cannot be created, it is *ConstructionError and no more candidates
// are tried.  If no candidate accepts the connection, it is the error of the
// last one, or ErrHostNotFound if there were no candidates at all.
func (e *Establisher[P, S]) Connect(q resolve.Query) (sock S, ep proto.Endpoint[P], err error) {
	return e.first(q, "connect", func(s S, cand proto.Endpoint[P]) (tryErr error) {
		return s.Connect(cand)
	})
}

// Bind resolves q and binds a new socket to the first candidate that it can
// be bound to.  Errors are the same as the ones of Establisher.Connect.
func Bind[P proto.Protocol[P], S socket.Bindable[P]](
	e *Establisher[P, S],
	q resolve.Query,
) (sock S, ep proto.Endpoint[P], err error) {
	return e.first(q, "bind", func(s S, cand proto.Endpoint[P]) (tryErr error) {
		return s.Bind(cand)
	})
}

// first calls try with a new socket for every candidate of q until it
// succeeds.  op is only used for logging.
func (e *Establisher[P, S]) first(
	q resolve.Query,
	op string,
	try func(s S, cand proto.Endpoint[P]) (tryErr error),
) (sock S, ep proto.Endpoint[P], err error) {
	candidates, err := resolve.Iter[P](e.backend, q)
	if err != nil {
		return sock, ep, err
	}

	err = ErrHostNotFound
	for {
		cand, ok := candidates.Next()
		if !ok {
			return sock, ep, err
		}

		p := cand.Protocol()
		s, newErr := e.newSocket(p)
		if newErr != nil {
			return sock, ep, &ConstructionError{
				Err:      newErr,
				Protocol: proto.DescriptorOf(p),
			}
		}

		e.out.Debug("Trying to %s to %s", op, cand)

		err = try(s, cand)
		if err == nil {
			e.out.Debug("Succeeded to %s to %s", op, cand)

			return s, cand, nil
		}

		e.out.Debug("Failed to %s to %s: %v", op, cand, err)

		log.OnCloserError(s, log.DEBUG)
	}
}

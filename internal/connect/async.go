package connect

import (
	"fmt"
	"sync/atomic"

	"github.com/AdguardTeam/golibs/log"
	"github.com/ameshkov/goconnect/internal/proto"
	"github.com/ameshkov/goconnect/internal/resolve"
	"github.com/ameshkov/goconnect/internal/sched"
	"github.com/ameshkov/goconnect/internal/socket"
	"github.com/google/uuid"
)

// state is the state of an asynchronous establishment.
type state uint8

// state values.
const (
	stateResolving state = iota
	stateAttempting
	stateSucceeded
	stateFailed
)

// String implements the fmt.Stringer interface for state.
func (s state) String() (str string) {
	switch s {
	case stateResolving:
		return "resolving"
	case stateAttempting:
		return "attempting"
	case stateSucceeded:
		return "succeeded"
	case stateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// terminal returns true if no transitions are possible from s.
func (s state) terminal() (ok bool) {
	return s == stateSucceeded || s == stateFailed
}

// transition moves est to the state to.  It panics if est is already in a
// terminal state or if to is stateResolving, which is only the initial one.
func (est *establishment[P, S]) transition(to state) {
	if est.state.terminal() || to == stateResolving {
		panic(fmt.Errorf("connect: invalid transition from %s to %s", est.state, to))
	}

	est.state = to
}

// AsyncConnect is the asynchronous version of Establisher.Connect.  It
// returns without waiting for the result, cont is called with it exactly
// once, always from st and never from AsyncConnect itself.  The errors are the
// same as the ones of Establisher.Connect.
//
// Resolution itself is performed before AsyncConnect returns.  If the service
// of st is stopped before the establishment completes, cont is not called.
func (e *Establisher[P, S]) AsyncConnect(q resolve.Query, st *sched.Strand, cont Continuation[P, S]) {
	est := &establishment[P, S]{
		e:     e,
		st:    st,
		cont:  cont,
		id:    uuid.New(),
		state: stateResolving,
	}

	candidates, err := resolve.Iter[P](e.backend, q)
	if err != nil {
		est.fail(err)

		return
	}

	est.attemptNext(candidates)
}

// establishment is a single asynchronous establishment.  After it has
// started, it is only accessed from the callbacks running on st.
type establishment[P proto.Protocol[P], S socket.Socket[P]] struct {
	e    *Establisher[P, S]
	st   *sched.Strand
	cont Continuation[P, S]

	// lastErr is the error of the last failed attempt.
	lastErr error

	id    uuid.UUID
	state state
}

// inFlight is the state of a single connection attempt.  It is handed to the
// completion callback of the attempt and must be taken back exactly once.
type inFlight[P proto.Protocol[P], S socket.Socket[P]] struct {
	rest *resolve.Candidates[P]
	sock S
	ep   proto.Endpoint[P]

	taken atomic.Bool
}

// take returns the contents of f and empties it.  It panics if f has already
// been taken.
func (f *inFlight[P, S]) take() (rest *resolve.Candidates[P], sock S, ep proto.Endpoint[P]) {
	if !f.taken.CompareAndSwap(false, true) {
		panic(fmt.Errorf("connect: attempt to %s completed more than once", f.ep))
	}

	rest, sock, ep = f.rest, f.sock, f.ep

	var zero S
	f.rest, f.sock = nil, zero

	return rest, sock, ep
}

// attemptNext starts an attempt to connect to the next candidate from rest.
func (est *establishment[P, S]) attemptNext(rest *resolve.Candidates[P]) {
	cand, ok := rest.Next()
	if !ok {
		err := est.lastErr
		if err == nil {
			err = ErrHostNotFound
		}

		est.fail(err)

		return
	}

	p := cand.Protocol()
	sock, err := est.e.newSocket(p)
	if err != nil {
		est.fail(&ConstructionError{
			Err:      err,
			Protocol: proto.DescriptorOf(p),
		})

		return
	}

	est.transition(stateAttempting)
	est.e.out.Debug("[%s] Trying to connect to %s, %d more left", est.id, cand, rest.Len())

	f := &inFlight[P, S]{
		rest: rest,
		sock: sock,
		ep:   cand,
	}

	sock.AsyncConnect(cand, est.st, func(connErr error) {
		est.complete(f, connErr)
	})
}

// complete handles the result of the attempt f.  It is called from est.st.
func (est *establishment[P, S]) complete(f *inFlight[P, S], err error) {
	if est.state != stateAttempting {
		panic(fmt.Errorf("connect: attempt to %s completed in state %s", f.ep, est.state))
	}

	rest, sock, ep := f.take()
	if err != nil {
		est.e.out.Debug("[%s] Failed to connect to %s: %v", est.id, ep, err)

		est.lastErr = err
		log.OnCloserError(sock, log.DEBUG)
		est.attemptNext(rest)

		return
	}

	est.transition(stateSucceeded)
	est.e.out.Debug("[%s] Connected to %s", est.id, ep)

	est.cont(sock, ep, nil)
}

// fail posts the continuation with err to est.st.  It panics if est has
// already finished.
func (est *establishment[P, S]) fail(err error) {
	est.transition(stateFailed)
	est.e.out.Debug("[%s] Establishment %s: %v", est.id, est.state, err)

	var sock S
	var ep proto.Endpoint[P]
	if !est.st.Post(func() { est.cont(sock, ep, err) }) {
		est.e.out.Debug("[%s] Service is stopped, dropping the result", est.id)
	}
}

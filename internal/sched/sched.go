// Package sched contains the scheduling primitives the asynchronous code runs
// on: the I/O service that executes work and strands that serialize it.
package sched

import (
	"context"
	"sync"

	"github.com/sourcegraph/conc"
)

// Service runs posted work on goroutines.  Stopping the service cancels all
// the work that has not started yet.
type Service struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     conc.WaitGroup
}

// NewService creates a new running *Service.
func NewService() (s *Service) {
	ctx, cancel := context.WithCancel(context.Background())

	return &Service{
		ctx:    ctx,
		cancel: cancel,
	}
}

// Go runs fn on a new goroutine.  It returns false and does nothing if the
// service is stopped.
func (s *Service) Go(fn func()) (ok bool) {
	if s.Stopped() {
		return false
	}

	s.wg.Go(fn)

	return true
}

// Stop stops the service.  Work that is already running is not interrupted.
func (s *Service) Stop() { s.cancel() }

// Stopped returns true if the service is stopped.
func (s *Service) Stopped() (ok bool) { return s.ctx.Err() != nil }

// Context returns the context that is canceled when the service is stopped.
func (s *Service) Context() (ctx context.Context) { return s.ctx }

// Wait blocks until all the work, including the work posted while waiting,
// is done.  A panic in any work is propagated to the caller.
func (s *Service) Wait() { s.wg.Wait() }

// NewStrand returns a new strand running on s.
func (s *Service) NewStrand() (st *Strand) {
	return &Strand{svc: s}
}

// Strand is a serialized execution context: the work posted to a strand runs
// in the order it was posted and never concurrently with other work of the
// same strand.
type Strand struct {
	svc *Service

	// mu protects the fields below.
	mu      sync.Mutex
	queue   []posted
	running bool
}

// posted is a unit of work queued on a strand.
type posted struct {
	work   func()
	onDrop func()
}

// Service returns the service the strand runs on.
func (st *Strand) Service() (s *Service) { return st.svc }

// Post schedules work to run exactly once on the strand.  work is never run
// before Post returns.  It returns false and drops work if the service is
// stopped.
func (st *Strand) Post(work func()) (ok bool) {
	return st.PostOrDrop(work, nil)
}

// PostOrDrop is like Post, but if the service is stopped after work has been
// queued and before it has started, onDrop is called instead of work.  onDrop
// is not called when PostOrDrop returns false.  onDrop may be nil.
func (st *Strand) PostOrDrop(work, onDrop func()) (ok bool) {
	if st.svc.Stopped() {
		return false
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.running {
		st.queue = append(st.queue, posted{work: work, onDrop: onDrop})

		return true
	}

	st.running = true
	if !st.svc.Go(st.drain) {
		st.running = false

		return false
	}

	st.queue = append(st.queue, posted{work: work, onDrop: onDrop})

	return true
}

// drain runs the queued work until the queue is empty.  Once the service is
// stopped, the rest of the queue is dropped.
func (st *Strand) drain() {
	for {
		st.mu.Lock()
		if len(st.queue) == 0 {
			st.running = false
			st.mu.Unlock()

			return
		}

		if st.svc.Stopped() {
			dropped := st.queue
			st.queue = nil
			st.running = false
			st.mu.Unlock()

			for _, p := range dropped {
				if p.onDrop != nil {
					p.onDrop()
				}
			}

			return
		}

		p := st.queue[0]
		st.queue[0] = posted{}
		st.queue = st.queue[1:]
		st.mu.Unlock()

		p.work()
	}
}

package resolve

import (
	"fmt"
	"net/netip"
	"strconv"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/ameshkov/goconnect/internal/proto"
)

// Flags control how a Backend resolves a host and a service.
type Flags uint8

// Flags values.
const (
	// FlagPassive requests wildcard addresses suitable for binding when the
	// host is empty.
	FlagPassive Flags = 1 << iota

	// FlagNumericHost requires the host to be an IP address literal.
	FlagNumericHost

	// FlagNumericService requires the service to be a port number.
	FlagNumericService
)

// Hint tells a Backend what kind of addresses the caller is going to use.
type Hint struct {
	// Family restricts the addresses to one family unless it is
	// proto.FamilyUnspec.
	Family proto.Family

	// Kind is the socket kind the service is looked up for.
	Kind proto.SocketKind
}

// Backend is the name resolution mechanism queries are resolved with.
type Backend interface {
	// Resolve turns host and service into a list of candidate addresses in
	// the order they should be tried.
	Resolve(hint Hint, host, service string, flags Flags) (addrs []netip.AddrPort, err error)
}

// Query is the user input that can be turned into a sequence of candidate
// endpoints.
type Query interface {
	// Params returns the host and the service to resolve and the flags to
	// resolve them with.
	Params() (host, service string, flags Flags)
}

// PassivePort is a query for wildcard addresses to bind to the port.
type PassivePort struct {
	Port uint16
}

// type check
var _ Query = PassivePort{}

// Params implements the Query interface for PassivePort.
func (q PassivePort) Params() (host, service string, flags Flags) {
	return "", strconv.Itoa(int(q.Port)), FlagPassive | FlagNumericService
}

// PassiveService is a query for wildcard addresses to bind to the port of the
// named service.
type PassiveService struct {
	Service string
}

// type check
var _ Query = PassiveService{}

// Params implements the Query interface for PassiveService.
func (q PassiveService) Params() (host, service string, flags Flags) {
	return "", q.Service, FlagPassive
}

// HostService is a query for the addresses of the host and the port of the
// service.
type HostService struct {
	Host    string
	Service string
}

// type check
var _ Query = HostService{}

// Params implements the Query interface for HostService.
func (q HostService) Params() (host, service string, flags Flags) {
	return q.Host, q.Service, 0
}

// ResolutionError is returned when the backend fails to resolve a query.
type ResolutionError struct {
	Err     error
	Host    string
	Service string
}

// type check
var _ errors.Wrapper = (*ResolutionError)(nil)

// Error implements the error interface for *ResolutionError.
func (e *ResolutionError) Error() (msg string) {
	return fmt.Sprintf("resolving host %q service %q: %s", e.Host, e.Service, e.Err)
}

// Unwrap implements the errors.Wrapper interface for *ResolutionError.
func (e *ResolutionError) Unwrap() (unwrapped error) { return e.Err }

// Iter resolves q with b and returns the candidates for the protocol P.  The
// backend is asked for addresses of any family, the family of every candidate
// selects the protocol variant it is tried with.
func Iter[P proto.Protocol[P]](b Backend, q Query) (c *Candidates[P], err error) {
	var p P
	hint := Hint{
		Family: proto.FamilyUnspec,
		Kind:   p.SocketKind(),
	}

	host, service, flags := q.Params()
	addrs, err := b.Resolve(hint, host, service, flags)
	if err != nil {
		return nil, &ResolutionError{
			Err:     err,
			Host:    host,
			Service: service,
		}
	}

	return NewCandidates[P](addrs), nil
}

// Candidates is a single-pass sequence of candidate endpoints.  It must not be
// used by more than one goroutine at a time.
type Candidates[P proto.Protocol[P]] struct {
	addrs []netip.AddrPort
	pos   int
}

// NewCandidates returns a sequence over a copy of addrs.
func NewCandidates[P proto.Protocol[P]](addrs []netip.AddrPort) (c *Candidates[P]) {
	return &Candidates[P]{
		addrs: append([]netip.AddrPort(nil), addrs...),
	}
}

// Next returns the next candidate.  ok is false when the sequence is
// exhausted.
func (c *Candidates[P]) Next() (ep proto.Endpoint[P], ok bool) {
	if c.pos >= len(c.addrs) {
		return ep, false
	}

	ap := c.addrs[c.pos]
	c.pos++

	return proto.EndpointFrom[P](ap), true
}

// Len returns the number of the remaining candidates.
func (c *Candidates[P]) Len() (n int) { return len(c.addrs) - c.pos }

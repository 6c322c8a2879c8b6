package proto

import (
	"fmt"
	"net/netip"
)

// Endpoint is an address and a port that belong to the protocol P.  The
// protocol is not stored, it is derived from the family of the address.
type Endpoint[P Protocol[P]] struct {
	addrPort netip.AddrPort
}

// NewEndpoint creates an endpoint from addr and port.  IPv4-mapped IPv6
// addresses are unmapped so that their family is IPv4.
func NewEndpoint[P Protocol[P]](addr netip.Addr, port uint16) (ep Endpoint[P]) {
	return EndpointFrom[P](netip.AddrPortFrom(addr, port))
}

// EndpointFrom creates an endpoint from ap.
func EndpointFrom[P Protocol[P]](ap netip.AddrPort) (ep Endpoint[P]) {
	if ap.Addr().Is4In6() {
		ap = netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
	}

	return Endpoint[P]{addrPort: ap}
}

// Addr returns the address of the endpoint.
func (e Endpoint[P]) Addr() (addr netip.Addr) { return e.addrPort.Addr() }

// Port returns the port of the endpoint.
func (e Endpoint[P]) Port() (port uint16) { return e.addrPort.Port() }

// AddrPort returns the address and the port of the endpoint.
func (e Endpoint[P]) AddrPort() (ap netip.AddrPort) { return e.addrPort }

// Family returns the address family stored in the endpoint.
func (e Endpoint[P]) Family() (f Family) {
	addr := e.addrPort.Addr()
	switch {
	case addr.Is4():
		return FamilyIPv4
	case addr.Is6():
		return FamilyIPv6
	default:
		return FamilyUnspec
	}
}

// Protocol returns the protocol the endpoint belongs to.  It panics if the
// family of the address matches none of the variants declared by P: that
// means the resolver returned data inconsistent with the protocol it was asked
// to resolve for.
func (e Endpoint[P]) Protocol() (p P) {
	p, ok := p.WithFamily(e.Family())
	if !ok {
		panic(fmt.Errorf("proto: invalid family %s of endpoint %q", e.Family(), e.addrPort))
	}

	return p
}

// String implements fmt.Stringer for Endpoint.
func (e Endpoint[P]) String() (s string) { return e.addrPort.String() }

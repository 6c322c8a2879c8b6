// Package proto describes transport protocols and the endpoints that belong
// to them.  It is the contract that makes the connection logic independent of
// a concrete protocol.
package proto

import (
	"fmt"
)

// Family is an address family.
type Family uint8

// Family values.
const (
	// FamilyUnspec means that any address family is acceptable.  It is used
	// as a resolution hint and is never the family of an endpoint.
	FamilyUnspec Family = iota
	FamilyIPv4
	FamilyIPv6
)

// String implements fmt.Stringer for Family.
func (f Family) String() (s string) {
	switch f {
	case FamilyUnspec:
		return "unspec"
	case FamilyIPv4:
		return "ipv4"
	case FamilyIPv6:
		return "ipv6"
	default:
		return fmt.Sprintf("family(%d)", uint8(f))
	}
}

// SocketKind is the kind of the socket a protocol runs on.
type SocketKind uint8

// SocketKind values.
const (
	KindDatagram SocketKind = iota
	KindStream
)

// String implements fmt.Stringer for SocketKind.
func (k SocketKind) String() (s string) {
	switch k {
	case KindDatagram:
		return "datagram"
	case KindStream:
		return "stream"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Protocol is the capability set every transport protocol implements.  P is
// the implementing type itself, so that a protocol can produce its own
// family variants.
type Protocol[P any] interface {
	comparable

	// Family returns the address family of the protocol.
	Family() (f Family)

	// SocketKind returns the kind of the socket the protocol runs on.
	SocketKind() (k SocketKind)

	// ProtocolNumber returns the protocol number passed to the OS when
	// creating a socket.  Zero lets the OS choose.
	ProtocolNumber() (n int)

	// WithFamily returns the declared variant of the protocol for f.  ok is
	// false if the protocol has no such variant.
	WithFamily(f Family) (p P, ok bool)
}

// Descriptor is the plain family / socket kind / protocol number triple.  Two
// descriptors are equal iff all three fields match.
type Descriptor struct {
	Family Family
	Kind   SocketKind
	Number int
}

// DescriptorOf returns the descriptor of p.
func DescriptorOf[P Protocol[P]](p P) (d Descriptor) {
	return Descriptor{
		Family: p.Family(),
		Kind:   p.SocketKind(),
		Number: p.ProtocolNumber(),
	}
}

// String implements fmt.Stringer for Descriptor.
func (d Descriptor) String() (s string) {
	return fmt.Sprintf("%s/%s/%d", d.Family, d.Kind, d.Number)
}

// Network returns the name of the network in terms of the net package, e.g.
// "udp4" or "tcp6".  It returns an empty string for unknown combinations.
func (d Descriptor) Network() (network string) {
	switch d.Kind {
	case KindDatagram:
		network = "udp"
	case KindStream:
		network = "tcp"
	default:
		return ""
	}

	switch d.Family {
	case FamilyIPv4:
		network += "4"
	case FamilyIPv6:
		network += "6"
	}

	return network
}

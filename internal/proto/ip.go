package proto

// UDP is the User Datagram Protocol.  The zero value is UDP with an
// unspecified family, which is only suitable as a resolution hint.
type UDP struct {
	family Family
}

// type check
var _ = DescriptorOf(UDP{})

// UDPv4 returns UDP over IPv4.
func UDPv4() (p UDP) { return UDP{family: FamilyIPv4} }

// UDPv6 returns UDP over IPv6.
func UDPv6() (p UDP) { return UDP{family: FamilyIPv6} }

// Family implements the Protocol interface for UDP.
func (p UDP) Family() (f Family) { return p.family }

// SocketKind implements the Protocol interface for UDP.
func (UDP) SocketKind() (k SocketKind) { return KindDatagram }

// ProtocolNumber implements the Protocol interface for UDP.
func (UDP) ProtocolNumber() (n int) { return 0 }

// WithFamily implements the Protocol interface for UDP.
func (UDP) WithFamily(f Family) (p UDP, ok bool) {
	switch f {
	case FamilyIPv4:
		return UDPv4(), true
	case FamilyIPv6:
		return UDPv6(), true
	default:
		return UDP{}, false
	}
}

// String implements fmt.Stringer for UDP.
func (p UDP) String() (s string) { return DescriptorOf(p).Network() }

// TCP is the Transmission Control Protocol.  The zero value is TCP with an
// unspecified family, which is only suitable as a resolution hint.
type TCP struct {
	family Family
}

// type check
var _ = DescriptorOf(TCP{})

// TCPv4 returns TCP over IPv4.
func TCPv4() (p TCP) { return TCP{family: FamilyIPv4} }

// TCPv6 returns TCP over IPv6.
func TCPv6() (p TCP) { return TCP{family: FamilyIPv6} }

// Family implements the Protocol interface for TCP.
func (p TCP) Family() (f Family) { return p.family }

// SocketKind implements the Protocol interface for TCP.
func (TCP) SocketKind() (k SocketKind) { return KindStream }

// ProtocolNumber implements the Protocol interface for TCP.
func (TCP) ProtocolNumber() (n int) { return 0 }

// WithFamily implements the Protocol interface for TCP.
func (TCP) WithFamily(f Family) (p TCP, ok bool) {
	switch f {
	case FamilyIPv4:
		return TCPv4(), true
	case FamilyIPv6:
		return TCPv6(), true
	default:
		return TCP{}, false
	}
}

// String implements fmt.Stringer for TCP.
func (p TCP) String() (s string) { return DescriptorOf(p).Network() }

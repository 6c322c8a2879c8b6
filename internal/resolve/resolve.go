// Package resolve is responsible for turning user input into candidate
// endpoints: the queries, the candidate sequences and everything DNS-related.
package resolve

import (
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/ameshkov/goconnect/internal/config"
	"github.com/ameshkov/goconnect/internal/output"
	"github.com/ameshkov/goconnect/internal/proto"
	"github.com/miekg/dns"
)

// ErrEmptyResponse means that the response does not contain necessary RRs.
const ErrEmptyResponse = errors.Error("empty response")

// ErrNoResolvers means that system resolvers couldn't be discovered.
const ErrNoResolvers = errors.Error("no resolvers")

// ErrNonNumericHost is returned when a host name is used while only IP
// addresses are allowed.
const ErrNonNumericHost = errors.Error("host is not an ip address")

// ErrNonNumericService is returned when a service name is used while only
// port numbers are allowed.
const ErrNonNumericService = errors.Error("service is not a port number")

// resolvConfPath is the path to the system resolver configuration.
const resolvConfPath = "/etc/resolv.conf"

// exchanger sends DNS queries to a single DNS server.  upstream.Upstream
// implements it.
type exchanger interface {
	Exchange(m *dns.Msg) (resp *dns.Msg, err error)
	Address() (addr string)
}

// plainExchanger sends DNS queries over plain DNS with miekg/dns.
type plainExchanger struct {
	addr string
}

// type check
var _ exchanger = plainExchanger{}

// Exchange implements the exchanger interface for plainExchanger.
func (e plainExchanger) Exchange(m *dns.Msg) (resp *dns.Msg, err error) {
	return dns.Exchange(m, e.addr)
}

// Address implements the exchanger interface for plainExchanger.
func (e plainExchanger) Address() (addr string) { return e.addr }

// Resolver is the Backend that is used whenever name resolution is required.
type Resolver struct {
	cfg *config.Config
	out *output.Output

	// servers is the list of DNS servers to use.
	servers []exchanger
}

// type check
var _ Backend = (*Resolver)(nil)

// NewResolver creates a new instance of *Resolver.  It uses the DNS servers
// from the configuration or, if there are none, the system ones.
func NewResolver(cfg *config.Config, out *output.Output) (r *Resolver) {
	r = &Resolver{
		cfg: cfg,
		out: out,
	}

	for _, u := range cfg.DNSServers {
		r.servers = append(r.servers, u)
	}

	if len(r.servers) > 0 {
		return r
	}

	conf, err := dns.ClientConfigFromFile(resolvConfPath)
	if err != nil {
		// Not fatal since most lookups don't need DNS at all.
		out.Debug("Failed to read system resolvers: %v", err)

		return r
	}

	for _, s := range conf.Servers {
		r.servers = append(r.servers, plainExchanger{addr: net.JoinHostPort(s, conf.Port)})
	}

	return r
}

// Resolve implements the Backend interface for *Resolver.
func (r *Resolver) Resolve(
	hint Hint,
	host string,
	service string,
	flags Flags,
) (addrs []netip.AddrPort, err error) {
	if r.cfg.Numeric {
		flags |= FlagNumericHost
	}

	port, err := lookupPort(hint.Kind, service, flags)
	if err != nil {
		return nil, err
	}

	ipAddrs, err := r.lookupAddrs(host, flags)
	if err != nil {
		return nil, err
	}

	family := hint.Family
	if family == proto.FamilyUnspec {
		family = r.familyFromCfg()
	}

	for _, ip := range ipAddrs {
		if !matchFamily(ip, family) {
			r.out.Debug("Skipping %s: %s addresses only", ip, family)

			continue
		}

		addrs = append(addrs, netip.AddrPortFrom(ip, port))
	}

	return addrs, nil
}

// familyFromCfg returns the family the configuration restricts addresses to.
func (r *Resolver) familyFromCfg() (f proto.Family) {
	switch {
	case r.cfg.IPv4:
		return proto.FamilyIPv4
	case r.cfg.IPv6:
		return proto.FamilyIPv6
	default:
		return proto.FamilyUnspec
	}
}

// matchFamily returns true if ip belongs to f.
func matchFamily(ip netip.Addr, f proto.Family) (ok bool) {
	switch f {
	case proto.FamilyIPv4:
		return ip.Is4()
	case proto.FamilyIPv6:
		return ip.Is6()
	default:
		return true
	}
}

// lookupPort returns the port number of service.
func lookupPort(kind proto.SocketKind, service string, flags Flags) (port uint16, err error) {
	if service == "" {
		return 0, nil
	}

	p, err := strconv.ParseUint(service, 10, 16)
	if err == nil {
		return uint16(p), nil
	}

	if flags&FlagNumericService != 0 {
		return 0, fmt.Errorf("%q: %w", service, ErrNonNumericService)
	}

	network := "udp"
	if kind == proto.KindStream {
		network = "tcp"
	}

	n, err := net.LookupPort(network, service)
	if err != nil {
		return 0, err
	}

	return uint16(n), nil
}

// lookupAddrs returns all IP addresses of host.
func (r *Resolver) lookupAddrs(host string, flags Flags) (ipAddrs []netip.Addr, err error) {
	if host == "" {
		if flags&FlagPassive != 0 {
			return []netip.Addr{netip.IPv4Unspecified(), netip.IPv6Unspecified()}, nil
		}

		return loopbackAddrs(), nil
	}

	ip, err := netip.ParseAddr(host)
	if err == nil {
		return []netip.Addr{ip.Unmap()}, nil
	}

	if flags&FlagNumericHost != 0 {
		return nil, fmt.Errorf("%q: %w", host, ErrNonNumericHost)
	}

	return r.LookupHost(host)
}

// loopbackAddrs returns the loopback addresses of both families.
func loopbackAddrs() (ipAddrs []netip.Addr) {
	return []netip.Addr{netip.AddrFrom4([4]byte{127, 0, 0, 1}), netip.IPv6Loopback()}
}

// LookupHost looks up all IP addresses of the hostname.
func (r *Resolver) LookupHost(hostname string) (ipAddresses []netip.Addr, err error) {
	r.out.Debug("Resolving IP addresses of %s", hostname)

	if addrs, ok := r.lookupFromCfg(hostname); ok {
		r.out.Debug("Resolved IP addresses for %s from the configuration", hostname)

		return addrs, nil
	}

	name := strings.ToLower(strings.TrimSuffix(hostname, "."))
	if name == "localhost" || strings.HasSuffix(name, ".localhost") {
		return loopbackAddrs(), nil
	}

	if len(r.servers) == 0 {
		return nil, ErrNoResolvers
	}

	var errs []error

	for _, qType := range []uint16{dns.TypeA, dns.TypeAAAA} {
		msg := newMsg(hostname, qType)

		resp, dnsErr := dnsLookupAll(msg, r.servers)
		if dnsErr != nil {
			errs = append(errs, dnsErr)

			// try another qType now.
			continue
		}

		for _, rr := range resp.Answer {
			var ip netip.Addr
			switch v := rr.(type) {
			case *dns.A:
				ip, _ = netip.AddrFromSlice(v.A.To4())
			case *dns.AAAA:
				ip, _ = netip.AddrFromSlice(v.AAAA.To16())
			default:
				continue
			}

			ipAddresses = append(ipAddresses, ip)
		}
	}

	if len(ipAddresses) == 0 {
		return nil, errors.Join(ErrEmptyResponse, errors.Join(errs...))
	}

	r.out.Debug("Found the following IP addresses for %s", hostname)
	for _, ipAddr := range ipAddresses {
		r.out.Debug("IP: %s", ipAddr)
	}

	return ipAddresses, nil
}

// lookupFromCfg checks if IP address for hostname are specified in the
// configuration.
func (r *Resolver) lookupFromCfg(hostname string) (addrs []netip.Addr, ok bool) {
	if len(r.cfg.Resolve) == 0 {
		return nil, false
	}

	if addrs, ok = r.cfg.Resolve[hostname]; ok {
		return addrs, ok
	}

	if addrs, ok = r.cfg.Resolve["*"]; ok {
		return addrs, ok
	}

	return nil, false
}

// dnsLookupAll sends the query m to each DNS server until it gets a
// successful non-empty response.  If all attempts are unsuccessful, returns an
// error.
func dnsLookupAll(m *dns.Msg, servers []exchanger) (resp *dns.Msg, err error) {
	var errs []error

	for _, s := range servers {
		var dnsErr error
		resp, dnsErr = dnsLookup(m, s)
		if dnsErr != nil {
			errs = append(errs, dnsErr)
		} else {
			return resp, nil
		}
	}

	return nil, errors.List("dns lookup", errs...)
}

// dnsLookup sends the query m over to the DNS server s and returns the
// response.  Adds additional logic on top of it: returns an error when the
// response code is not success or when there're no resource records.
func dnsLookup(m *dns.Msg, s exchanger) (resp *dns.Msg, err error) {
	resp, err = s.Exchange(m)
	qTypeStr := dns.Type(m.Question[0].Qtype).String()

	if err != nil {
		return nil, err
	}

	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf(
			"dns response %s code from %s: %s",
			qTypeStr,
			s.Address(),
			rCodeToString(resp.Rcode),
		)
	}

	if len(resp.Answer) == 0 {
		return nil, errors.Annotate(ErrEmptyResponse, "no %s resource records from %s: %w", qTypeStr, s.Address())
	}

	return resp, nil
}

// newMsg creates new *dns.Msg of the specified type for hostname.
func newMsg(hostname string, qType uint16) (m *dns.Msg) {
	m = &dns.Msg{}
	m.Id = dns.Id()
	m.RecursionDesired = true
	m.Question = []dns.Question{{
		Name:   dns.Fqdn(hostname),
		Qtype:  qType,
		Qclass: dns.ClassINET,
	}}

	return m
}

// rCodeToString is a helper function to convert DNS message response code to
// string.
func rCodeToString(rCode int) (str string) {
	if v, ok := dns.RcodeToString[rCode]; ok {
		return v
	}

	return fmt.Sprintf("TYPE_%d", rCode)
}

// Package config is responsible for parsing and validating cmd arguments.
package config

import (
	"fmt"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/AdguardTeam/dnsproxy/upstream"
	"github.com/AdguardTeam/golibs/errors"
)

// DefaultMaxTime is the default time to wait for incoming data.
const DefaultMaxTime = 5 * time.Second

// Config is a strictly-typed and validated configuration structure which is
// created from Options (command-line arguments).
type Config struct {
	// Host is the host to connect to.  Empty in the listen mode.
	Host string

	// Service is the service name or the port number.
	Service string

	// Listen enables the passive mode.
	Listen bool

	// TCP makes the tool use stream sockets instead of datagram ones.
	TCP bool

	// IPv4 if configured forces usage of IPv4 addresses only when doing DNS
	// resolution.
	IPv4 bool

	// IPv6 if configured forces usage of IPv6 addresses only when doing DNS
	// resolution.
	IPv6 bool

	// Numeric forbids name lookups, every host must be an IP address.
	Numeric bool

	// Resolve is a map of host:ips pairs.  It allows specifying custom IP
	// addresses for a specific host or all hosts (if '*' is used instead of
	// the host name).
	Resolve map[string][]netip.Addr

	// DNSServers is a list of upstream DNS servers that will be used for
	// resolving hostnames.
	DNSServers []upstream.Upstream

	// ConnectTo is a mapping of "host1:port1" to "host2:port2" pairs that
	// allows retargeting the connection.
	ConnectTo map[string]string

	// ProxyURL is a URL of a proxy to use with this connection.
	ProxyURL *url.URL

	// Async enables the asynchronous connection procedure.
	Async bool

	// Data is sent to the peer once the connection is established.
	Data string

	// MaxTime is the time to wait for incoming data.
	MaxTime time.Duration

	// OutputJSON enables writing output in JSON format.
	OutputJSON bool

	// OutputPath defines where to write the received data. If not set, the
	// received data will be written to stdout.
	OutputPath string

	// Verbose defines whether we should write the DEBUG-level log or not.
	Verbose bool

	// RawOptions is the raw command-line arguments struct (for logging only).
	RawOptions *Options
}

// Network returns the name of the network in terms of the net package.
func (c *Config) Network() (network string) {
	if c.TCP {
		return "tcp"
	}

	return "udp"
}

// ParseConfig parses and validates args and returns the final *Config object.
//
// nolint:gocyclo
func ParseConfig(args []string) (cfg *Config, err error) {
	opts, positional, err := parseOptions(args)
	if err != nil {
		return nil, err
	}

	cfg = &Config{
		Listen:     opts.Listen,
		TCP:        opts.TCP,
		IPv4:       opts.IPv4,
		IPv6:       opts.IPv6,
		Numeric:    opts.Numeric,
		Async:      opts.Async,
		Data:       opts.Data,
		MaxTime:    DefaultMaxTime,
		OutputJSON: opts.OutputJSON,
		OutputPath: opts.OutputPath,
		Verbose:    opts.Verbose,
		RawOptions: opts,
	}

	err = cfg.setTarget(positional)
	if err != nil {
		return nil, err
	}

	if opts.IPv4 && opts.IPv6 {
		return nil, errors.Error("--ipv4 and --ipv6 are mutually exclusive")
	}

	if opts.MaxTime < 0 {
		return nil, fmt.Errorf("invalid max-time %d", opts.MaxTime)
	} else if opts.MaxTime > 0 {
		cfg.MaxTime = time.Duration(opts.MaxTime) * time.Second
	}

	if opts.ProxyURL != "" {
		cfg.ProxyURL, err = url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL specified %s: %w", opts.ProxyURL, err)
		}
	}

	if len(opts.ConnectTo) > 0 {
		cfg.ConnectTo, err = parseConnectTo(opts.ConnectTo)
		if err != nil {
			return nil, fmt.Errorf("invalid connect-to specified %v: %w", opts.ConnectTo, err)
		}
	}

	if cfg.Listen && (cfg.ProxyURL != nil || cfg.ConnectTo != nil) {
		return nil, errors.Error("--proxy and --connect-to cannot be used with --listen")
	}

	if len(opts.Resolve) > 0 {
		cfg.Resolve, err = parseResolve(opts.Resolve)
		if err != nil {
			return nil, fmt.Errorf("invalid resolve specified %v: %w", opts.Resolve, err)
		}
	}

	if opts.DNSServers != "" {
		cfg.DNSServers, err = parseDNSServers(opts.DNSServers)
		if err != nil {
			return nil, fmt.Errorf("invalid dns-servers specified %s: %w", opts.DNSServers, err)
		}
	}

	return cfg, nil
}

// setTarget sets the host and the service from the positional arguments.
func (c *Config) setTarget(positional []string) (err error) {
	if c.Listen {
		if len(positional) != 1 {
			return fmt.Errorf("expected <service> in the listen mode, got %v", positional)
		}

		c.Service = positional[0]

		return nil
	}

	if len(positional) != 2 {
		return fmt.Errorf("expected <host> <service>, got %v", positional)
	}

	c.Host, c.Service = positional[0], positional[1]

	return nil
}

// parseConnectTo creates a "connect-to" map from the string representation.
// IPv6 addresses must be enclosed in square brackets.
func parseConnectTo(connectTo []string) (m map[string]string, err error) {
	m = map[string]string{}
	for _, ct := range connectTo {
		parts := splitHostPorts(ct)
		if len(parts) != 4 {
			return nil, fmt.Errorf("invalid connect-to format %s, expected HOST1:PORT1:HOST2:PORT2", ct)
		}

		oldHost := parts[0] + ":" + parts[1]
		newHost := parts[2] + ":" + parts[3]
		m[oldHost] = newHost
	}

	return m, nil
}

// splitHostPorts splits s by colons that are not enclosed in square brackets.
func splitHostPorts(s string) (parts []string) {
	depth, start := 0, 0
	for i, c := range s {
		switch c {
		case '[':
			depth++
		case ']':
			depth--
		case ':':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}

	return append(parts, s[start:])
}

// parseResolve creates a "resolve" map from the string representation.
func parseResolve(resolve []string) (m map[string][]netip.Addr, err error) {
	m = map[string][]netip.Addr{}

	for _, r := range resolve {
		parts := strings.SplitN(r, ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid resolve format %s, expected HOST:PORT:ADDRS", r)
		}

		host := parts[0]
		addrs := parts[2]
		var ipAddresses []netip.Addr

		for _, a := range strings.Split(addrs, ",") {
			a = strings.TrimSuffix(strings.TrimPrefix(a, "["), "]")
			ipAddr, pErr := netip.ParseAddr(a)
			if pErr != nil {
				return nil, fmt.Errorf("invalid addr %s: %w", a, pErr)
			}

			ipAddresses = append(ipAddresses, ipAddr.Unmap())
		}

		m[host] = ipAddresses
	}

	return m, nil
}

// parseDNSServers parses --dns-servers command-line argument and returns the
// list of upstream.Upstream created from them.
func parseDNSServers(dnsServers string) (upstreams []upstream.Upstream, err error) {
	addrs := strings.Split(dnsServers, ",")
	for _, addr := range addrs {
		u, uErr := upstream.AddressToUpstream(addr, nil)
		if uErr != nil {
			return nil, fmt.Errorf("invalid DNS server %s: %w", addr, uErr)
		}

		upstreams = append(upstreams, u)
	}

	return upstreams, nil
}

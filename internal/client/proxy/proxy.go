// Package proxy implements the proxy logic (--proxy argument of the
// command-line tool).
package proxy

import (
	"net"
	"net/url"

	"github.com/ameshkov/goconnect/internal/client/dialer"
	"github.com/ameshkov/goconnect/internal/output"
	"golang.org/x/net/proxy"
)

// Dialer implements dialer.Dialer interface and opens connections through the
// specified proxy.
type Dialer struct {
	proxyDialer proxy.Dialer
	out         *output.Output
}

// type check
var _ dialer.Dialer = (*Dialer)(nil)

// NewProxyDialer creates a new instance of *Dialer.  forward is used to
// connect to the proxy itself, except for SOCKS5 which connects on its own to
// be able to associate UDP.
func NewProxyDialer(proxyURL *url.URL, forward dialer.Dialer, out *output.Output) (d *Dialer, err error) {
	d = &Dialer{out: out}
	d.proxyDialer, err = createProxyDialer(proxyURL, forward)
	if err != nil {
		return nil, err
	}

	out.Debug("Using proxy %s", proxyURL.Redacted())

	return d, nil
}

// Dial implements the dialer.Dialer interface for *Dialer.
func (d *Dialer) Dial(network, addr string) (conn net.Conn, err error) {
	d.out.Debug("Connecting through proxy to %s://%s", network, addr)

	return d.proxyDialer.Dial(network, addr)
}

// createProxyDialer creates a proxy dialer from the specified URL.
func createProxyDialer(proxyURL *url.URL, f proxy.Dialer) (d proxy.Dialer, err error) {
	switch proxyURL.Scheme {
	case "socks5", "socks5h":
		return createSOCKS5ProxyDialer(proxyURL)
	case "http", "https":
		return createHTTPProxyDialer(proxyURL, f), nil
	default:
		return proxy.FromURL(proxyURL, f)
	}
}

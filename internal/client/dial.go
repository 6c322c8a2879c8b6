// Package client establishes the connections the tool works with: it builds
// the dialer chain for the connect mode and binds the sockets for the listen
// mode.
package client

import (
	"net"

	"github.com/ameshkov/goconnect/internal/client/connectto"
	"github.com/ameshkov/goconnect/internal/client/dialer"
	"github.com/ameshkov/goconnect/internal/client/proxy"
	"github.com/ameshkov/goconnect/internal/config"
	"github.com/ameshkov/goconnect/internal/output"
	"github.com/ameshkov/goconnect/internal/resolve"
)

// NewDialer creates the dialer that implements all the connection logic
// configured by cfg: direct connections, --proxy and --connect-to.
func NewDialer(cfg *config.Config, out *output.Output) (d dialer.Dialer, err error) {
	resolver := resolve.NewResolver(cfg, out)

	dial := dialer.DialFunc(dialer.NewDirect(resolver, out, cfg.Async).Dial)

	if cfg.ProxyURL != nil {
		var proxyDialer *proxy.Dialer
		proxyDialer, err = proxy.NewProxyDialer(cfg.ProxyURL, dial, out)
		if err != nil {
			return nil, err
		}

		dial = proxyDialer.Dial
	}

	if len(cfg.ConnectTo) > 0 {
		dial = connectto.CreateDialFunc(cfg.ConnectTo, dial, out)
	}

	return dial, nil
}

// Connect connects to the host and the service from cfg.
func Connect(cfg *config.Config, out *output.Output) (conn net.Conn, err error) {
	d, err := NewDialer(cfg, out)
	if err != nil {
		return nil, err
	}

	return d.Dial(cfg.Network(), net.JoinHostPort(cfg.Host, cfg.Service))
}

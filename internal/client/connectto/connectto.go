// Package connectto implements the --connect-to command-line argument logic
// that allows "redirecting" connections to hosts.
package connectto

import (
	"net"

	"github.com/ameshkov/goconnect/internal/client/dialer"
	"github.com/ameshkov/goconnect/internal/output"
)

// CreateDialFunc creates a dialer.DialFunc that overrides the remote endpoint
// if the address matches an entry in the connectTo map.  The keys and the
// values of the map are "host:port" pairs.
func CreateDialFunc(
	connectTo map[string]string,
	baseDial dialer.DialFunc,
	out *output.Output,
) (f dialer.DialFunc) {
	out.Debug("Some connections will be redirected due to --connect-to")

	return func(network, addr string) (net.Conn, error) {
		if v, ok := connectTo[addr]; ok {
			out.Debug("Redirecting %s://%s to %s", network, addr, v)
			addr = v
		}

		return baseDial(network, addr)
	}
}

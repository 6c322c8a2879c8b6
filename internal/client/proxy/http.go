package proxy

import (
	"bufio"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/AdguardTeam/golibs/log"
	"github.com/ameshkov/goconnect/internal/client/dialer"
	"github.com/ameshkov/goconnect/internal/version"
	"golang.org/x/net/proxy"
)

// tlsHandshakeTimeout is the time allowed for the TLS handshake with an HTTPS
// proxy.
const tlsHandshakeTimeout = 30 * time.Second

// httpProxyDialer implements proxy.Dialer for HTTP and HTTPS proxies.  Only
// stream connections can be tunneled with CONNECT.
type httpProxyDialer struct {
	proxyURL  *url.URL
	forward   proxy.Dialer
	tlsConfig *tls.Config
}

// type check
var _ proxy.Dialer = (*httpProxyDialer)(nil)

// Dial implements the proxy.Dialer interface for *httpProxyDialer.
func (d *httpProxyDialer) Dial(network, addr string) (net.Conn, error) {
	if network != "tcp" && network != "tcp4" && network != "tcp6" {
		return nil, fmt.Errorf("http proxy: %q: %w", network, dialer.ErrUnsupportedNetwork)
	}

	proxyAddr := net.JoinHostPort(d.proxyURL.Hostname(), d.proxyURL.Port())
	proxyConn, err := d.forward.Dial("tcp", proxyAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to proxy: %w", err)
	}

	if d.proxyURL.Scheme == "https" {
		tlsConn := tls.Client(proxyConn, d.tlsConfig)
		if err = tlsConn.SetDeadline(time.Now().Add(tlsHandshakeTimeout)); err != nil {
			log.OnCloserError(proxyConn, log.DEBUG)

			return nil, fmt.Errorf("failed to set TLS handshake deadline: %w", err)
		}
		if err = tlsConn.Handshake(); err != nil {
			log.OnCloserError(proxyConn, log.DEBUG)

			return nil, fmt.Errorf("TLS handshake with HTTPS proxy failed: %w", err)
		}
		if err = tlsConn.SetDeadline(time.Time{}); err != nil {
			log.OnCloserError(tlsConn, log.DEBUG)

			return nil, fmt.Errorf("failed to reset TLS connection deadline: %w", err)
		}
		proxyConn = tlsConn
	}

	req := &http.Request{
		Method: http.MethodConnect,
		URL:    &url.URL{Opaque: addr},
		Host:   addr,
		Header: make(http.Header),
	}

	req.Header.Set("User-Agent", fmt.Sprintf("goconnect/%s", version.Version()))

	if d.proxyURL.User != nil {
		username := d.proxyURL.User.Username()
		password, _ := d.proxyURL.User.Password()
		req.SetBasicAuth(username, password)
		req.Header.Set("Proxy-Authorization", req.Header.Get("Authorization"))
	}

	if err = req.Write(proxyConn); err != nil {
		log.OnCloserError(proxyConn, log.DEBUG)

		return nil, fmt.Errorf("failed to write CONNECT request to proxy: %w", err)
	}

	r := bufio.NewReader(proxyConn)
	resp, err := http.ReadResponse(r, req)
	if err != nil {
		log.OnCloserError(proxyConn, log.DEBUG)

		return nil, fmt.Errorf("failed to read response from proxy: %w", err)
	}
	defer log.OnCloserError(resp.Body, log.DEBUG)

	if resp.StatusCode != http.StatusOK {
		log.OnCloserError(proxyConn, log.DEBUG)

		return nil, fmt.Errorf("proxy connection failed: %s", resp.Status)
	}

	if r.Buffered() > 0 {
		return &bufferedConn{Conn: proxyConn, r: r}, nil
	}

	return proxyConn, nil
}

// bufferedConn is a net.Conn that first returns the data that was read ahead
// while reading the proxy response.
type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

// Read implements the net.Conn interface for *bufferedConn.
func (c *bufferedConn) Read(b []byte) (n int, err error) {
	if c.r.Buffered() > 0 {
		return c.r.Read(b)
	}

	return c.Conn.Read(b)
}

// createHTTPProxyDialer creates a proxy.Dialer for HTTP or HTTPS proxies.
func createHTTPProxyDialer(proxyURL *url.URL, forward proxy.Dialer) (d proxy.Dialer) {
	u := *proxyURL
	if u.Port() == "" {
		switch u.Scheme {
		case "http":
			u.Host = net.JoinHostPort(u.Hostname(), "80")
		case "https":
			u.Host = net.JoinHostPort(u.Hostname(), "443")
		}
	}

	var tlsConfig *tls.Config
	if u.Scheme == "https" {
		tlsConfig = &tls.Config{
			ServerName: u.Hostname(),
		}
	}

	return &httpProxyDialer{
		proxyURL:  &u,
		forward:   forward,
		tlsConfig: tlsConfig,
	}
}

package client

import (
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/ameshkov/goconnect/internal/output"
)

// maxDatagramSize is the size of the buffer a single datagram is read into.
const maxDatagramSize = 65535

// Exchange sends data over conn and waits for the reply for at most timeout.
// A datagram connection reads a single datagram, a stream one reads until the
// peer closes the connection or the timeout expires.  conn is not closed.
func Exchange(conn net.Conn, data []byte, timeout time.Duration) (res *output.Result, err error) {
	res = &output.Result{
		Mode:     "connect",
		Network:  conn.RemoteAddr().Network(),
		Endpoint: conn.RemoteAddr().String(),
		Local:    conn.LocalAddr().String(),
	}

	if len(data) == 0 {
		return res, nil
	}

	_, err = conn.Write(data)
	if err != nil {
		return nil, errors.Annotate(err, "writing data: %w")
	}

	err = conn.SetReadDeadline(time.Now().Add(timeout))
	if err != nil {
		return nil, errors.Annotate(err, "setting read deadline: %w")
	}

	if strings.HasPrefix(res.Network, "udp") {
		res.Received, err = readDatagram(conn)
	} else {
		res.Received, err = readStream(conn)
	}

	if err != nil {
		return nil, errors.Annotate(err, "reading reply: %w")
	}

	res.Peer = conn.RemoteAddr().String()

	return res, nil
}

// readDatagram reads a single datagram from r.
func readDatagram(r io.Reader) (b []byte, err error) {
	buf := make([]byte, maxDatagramSize)
	n, err := r.Read(buf)
	if err != nil {
		return nil, err
	}

	return buf[:n], nil
}

// readStream reads from r until EOF.  Reaching the deadline after some data
// has been received is not an error.
func readStream(r io.Reader) (b []byte, err error) {
	b, err = io.ReadAll(r)
	if errors.Is(err, os.ErrDeadlineExceeded) && len(b) > 0 {
		return b, nil
	}

	return b, err
}

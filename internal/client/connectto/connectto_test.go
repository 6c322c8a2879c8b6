package connectto_test

import (
	"bytes"
	"net"
	"testing"

	"github.com/ameshkov/goconnect/internal/client/connectto"
	"github.com/ameshkov/goconnect/internal/output"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDialFunc(t *testing.T) {
	var dialed []string
	base := func(network, addr string) (conn net.Conn, err error) {
		dialed = append(dialed, network+"://"+addr)

		return nil, nil
	}

	out := output.NewOutputWithWriters(&bytes.Buffer{}, &bytes.Buffer{}, false, false)
	dial := connectto.CreateDialFunc(map[string]string{"example.org:53": "[::1]:5353"}, base, out)

	_, err := dial("udp", "example.org:53")
	require.NoError(t, err)

	_, err = dial("tcp", "example.org:80")
	require.NoError(t, err)

	assert.Equal(t, []string{"udp://[::1]:5353", "tcp://example.org:80"}, dialed)
}

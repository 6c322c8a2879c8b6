package resolve_test

import (
	"net/netip"
	"testing"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/ameshkov/goconnect/internal/proto"
	"github.com/ameshkov/goconnect/internal/resolve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backendFunc is a function that implements resolve.Backend.
type backendFunc func(hint resolve.Hint, host, service string, flags resolve.Flags) ([]netip.AddrPort, error)

// Resolve implements the resolve.Backend interface for backendFunc.
func (f backendFunc) Resolve(
	hint resolve.Hint,
	host string,
	service string,
	flags resolve.Flags,
) (addrs []netip.AddrPort, err error) {
	return f(hint, host, service, flags)
}

func TestQuery_Params(t *testing.T) {
	testCases := []struct {
		q           resolve.Query
		name        string
		wantHost    string
		wantService string
		wantFlags   resolve.Flags
	}{{
		q:           resolve.PassivePort{Port: 12345},
		name:        "passive_port",
		wantHost:    "",
		wantService: "12345",
		wantFlags:   resolve.FlagPassive | resolve.FlagNumericService,
	}, {
		q:           resolve.PassiveService{Service: "domain"},
		name:        "passive_service",
		wantHost:    "",
		wantService: "domain",
		wantFlags:   resolve.FlagPassive,
	}, {
		q:           resolve.HostService{Host: "example.org", Service: "https"},
		name:        "host_service",
		wantHost:    "example.org",
		wantService: "https",
		wantFlags:   0,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			host, service, flags := tc.q.Params()
			assert.Equal(t, tc.wantHost, host)
			assert.Equal(t, tc.wantService, service)
			assert.Equal(t, tc.wantFlags, flags)
		})
	}
}

func TestIter(t *testing.T) {
	v4 := netip.MustParseAddrPort("127.0.0.1:53")
	v6 := netip.MustParseAddrPort("[::1]:53")

	var gotHint resolve.Hint
	b := backendFunc(func(hint resolve.Hint, _, _ string, _ resolve.Flags) ([]netip.AddrPort, error) {
		gotHint = hint

		return []netip.AddrPort{v4, v6}, nil
	})

	c, err := resolve.Iter[proto.TCP](b, resolve.HostService{Host: "localhost", Service: "53"})
	require.NoError(t, err)

	assert.Equal(t, resolve.Hint{Family: proto.FamilyUnspec, Kind: proto.KindStream}, gotHint)
	assert.Equal(t, 2, c.Len())

	ep, ok := c.Next()
	require.True(t, ok)
	assert.Equal(t, v4, ep.AddrPort())
	assert.Equal(t, proto.TCPv4(), ep.Protocol())

	ep, ok = c.Next()
	require.True(t, ok)
	assert.Equal(t, v6, ep.AddrPort())
	assert.Equal(t, proto.TCPv6(), ep.Protocol())

	_, ok = c.Next()
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestIter_error(t *testing.T) {
	const errNoHost errors.Error = "no such host"

	b := backendFunc(func(_ resolve.Hint, _, _ string, _ resolve.Flags) ([]netip.AddrPort, error) {
		return nil, errNoHost
	})

	c, err := resolve.Iter[proto.UDP](b, resolve.HostService{Host: "unknown.example", Service: "53"})
	assert.Nil(t, c)

	resErr := &resolve.ResolutionError{}
	require.ErrorAs(t, err, &resErr)
	assert.ErrorIs(t, err, errNoHost)
	assert.Equal(t, "unknown.example", resErr.Host)
	assert.Equal(t, "53", resErr.Service)
	assert.Equal(t, `resolving host "unknown.example" service "53": no such host`, err.Error())
}

func TestNewCandidates_copy(t *testing.T) {
	addrs := []netip.AddrPort{netip.MustParseAddrPort("127.0.0.1:1")}
	c := resolve.NewCandidates[proto.UDP](addrs)

	addrs[0] = netip.MustParseAddrPort("127.0.0.2:2")

	ep, ok := c.Next()
	require.True(t, ok)
	assert.Equal(t, "127.0.0.1:1", ep.String())
}

package handlers

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPublicAddr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		addr string
		want bool
	}{
		{addr: "93.184.216.34", want: true},
		{addr: "2606:2800:220:1:248:1893:25c8:1946", want: true},
		{addr: "127.0.0.1"},
		{addr: "::1"},
		{addr: "10.1.2.3"},
		{addr: "172.16.0.1"},
		{addr: "192.168.1.10"},
		{addr: "169.254.169.254"},
		{addr: "fe80::1"},
		{addr: "fd00::1"},
		{addr: "100.64.0.1"},
		{addr: "0.0.0.0"},
		{addr: "::"},
		{addr: "224.0.0.1"},
		{addr: "::ffff:10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, isPublicAddr(netip.MustParseAddr(tt.addr)))
		})
	}
}

func TestDialPublicOnly(t *testing.T) {
	t.Parallel()

	require.NoError(t, dialPublicOnly("tcp4", "93.184.216.34:443", nil))
	require.ErrorIs(t, dialPublicOnly("tcp4", "127.0.0.1:8080", nil), ErrForbiddenAddress)
	require.ErrorIs(t, dialPublicOnly("tcp6", "[fe80::1]:80", nil), ErrForbiddenAddress)
	require.Error(t, dialPublicOnly("tcp4", "not-an-address", nil))
}

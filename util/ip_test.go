package util

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ipNet(s string) *net.IPNet {
	ip, n, err := net.ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	n.IP = ip
	return n
}

func TestFirstNonLoopback(t *testing.T) {
	ifaces := []net.Interface{{Index: 1, Name: "lo"}, {Index: 2, Name: "eth0"}, {Index: 3, Name: "eth1"}}

	tests := []struct {
		name    string
		addrs   map[string][]net.Addr
		want    string
		wantErr error
	}{
		{
			name: "skips loopback and ipv6",
			addrs: map[string][]net.Addr{
				"lo":   {ipNet("127.0.0.1/8"), ipNet("::1/128")},
				"eth0": {ipNet("fe80::1/64"), ipNet("192.168.56.10/24")},
				"eth1": {ipNet("10.0.0.2/8")},
			},
			want: "192.168.56.10",
		},
		{
			name: "ipaddr values",
			addrs: map[string][]net.Addr{
				"eth1": {&net.IPAddr{IP: net.ParseIP("10.1.2.3")}},
			},
			want: "10.1.2.3",
		},
		{
			name: "loopback only",
			addrs: map[string][]net.Addr{
				"lo": {ipNet("127.0.0.1/8"), ipNet("127.0.1.1/8")},
			},
			wantErr: ErrNoAddress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &Host{
				Interfaces: func() ([]net.Interface, error) { return ifaces, nil },
				Addrs: func(iface *net.Interface) ([]net.Addr, error) {
					return tt.addrs[iface.Name], nil
				},
			}
			got, err := h.FirstNonLoopback()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestFirstNonLoopback_InterfacesError(t *testing.T) {
	expected := errors.New("no netlink")
	h := &Host{Interfaces: func() ([]net.Interface, error) { return nil, expected }}
	_, err := h.FirstNonLoopback()
	require.ErrorIs(t, err, expected)
}

func TestHostAddress(t *testing.T) {
	lookupErr := errors.New("no such host")

	tests := []struct {
		name     string
		hostname func() (string, error)
		lookup   func(ctx context.Context, host string) ([]netip.Addr, error)
		want     string
		wantErr  error
	}{
		{
			name:     "first ipv4",
			hostname: func() (string, error) { return "sandbox", nil },
			lookup: func(_ context.Context, host string) ([]netip.Addr, error) {
				if host != "sandbox" {
					return nil, lookupErr
				}
				return []netip.Addr{netip.MustParseAddr("2001:db8::5"), netip.MustParseAddr("::ffff:192.0.2.5")}, nil
			},
			want: "192.0.2.5",
		},
		{
			name:     "lookup failure",
			hostname: func() (string, error) { return "sandbox", nil },
			lookup: func(context.Context, string) ([]netip.Addr, error) {
				return nil, lookupErr
			},
			wantErr: lookupErr,
		},
		{
			name:     "no ipv4",
			hostname: func() (string, error) { return "sandbox", nil },
			lookup: func(context.Context, string) ([]netip.Addr, error) {
				return []netip.Addr{netip.MustParseAddr("2001:db8::5")}, nil
			},
			wantErr: ErrNoAddress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &Host{Hostname: tt.hostname, LookupIP: tt.lookup}
			got, err := h.HostAddress()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

package pool

import (
	"fmt"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		first   string
		hosts   int
		wantErr bool
	}{
		{name: "/24", prefix: "192.0.2.0/24", first: "192.0.2.1", hosts: 254},
		{name: "unmasked", prefix: "192.0.2.77/24", first: "192.0.2.1", hosts: 254},
		{name: "/30", prefix: "10.0.0.4/30", first: "10.0.0.5", hosts: 2},
		{name: "/31", prefix: "10.0.0.4/31", first: "10.0.0.4", hosts: 2},
		{name: "/32", prefix: "10.0.0.9/32", first: "10.0.0.9", hosts: 1},
		{name: "ipv6", prefix: "2001:db8::/120", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(netip.MustParsePrefix(tt.prefix))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			seen := make(map[netip.Addr]struct{})
			for i := 0; i < tt.hosts; i++ {
				addr, fresh, err := p.Next(fmt.Sprintf("host%d.example", i))
				require.NoError(t, err)
				require.True(t, fresh)
				if i == 0 {
					assert.Equal(t, tt.first, addr.String())
				}
				require.True(t, p.Prefix().Contains(addr))
				seen[addr] = struct{}{}
			}
			assert.Len(t, seen, tt.hosts)

			_, _, err = p.Next("one.too.many")
			require.ErrorIs(t, err, ErrExhausted)
		})
	}
}

func TestNew_InvalidPrefix(t *testing.T) {
	_, err := New(netip.Prefix{})
	require.Error(t, err)
}

func TestNext_Memo(t *testing.T) {
	p, err := New(netip.MustParsePrefix("192.0.2.0/29"))
	require.NoError(t, err)

	a1, fresh, err := p.Next("a.example")
	require.NoError(t, err)
	assert.True(t, fresh)

	b1, fresh, err := p.Next("b.example")
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.NotEqual(t, a1, b1)

	a2, fresh, err := p.Next("a.example")
	require.NoError(t, err)
	assert.False(t, fresh)
	assert.Equal(t, a1, a2)

	// names are case sensitive keys
	upper, fresh, err := p.Next("A.example")
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.NotEqual(t, a1, upper)

	assert.Equal(t, 3, p.Len())
}

func TestNext_ExhaustedKeepsMemo(t *testing.T) {
	p, err := New(netip.MustParsePrefix("198.51.100.0/30"))
	require.NoError(t, err)

	first, _, err := p.Next("one")
	require.NoError(t, err)
	_, _, err = p.Next("two")
	require.NoError(t, err)

	_, _, err = p.Next("three")
	require.ErrorIs(t, err, ErrExhausted)
	_, _, err = p.Next("four")
	require.ErrorIs(t, err, ErrExhausted)

	again, fresh, err := p.Next("one")
	require.NoError(t, err)
	assert.False(t, fresh)
	assert.Equal(t, first, again)
	assert.Equal(t, 2, p.Len())
}

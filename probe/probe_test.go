package probe

import (
	"context"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/treemana/fakedns/listener"
	"github.com/treemana/fakedns/policy"
)

func startListener(t *testing.T, protocol string, config policy.Config) string {
	t.Helper()

	l := listener.New(listener.Config{Protocol: protocol, Address: "127.0.0.1", Config: config}, nil)
	require.NoError(t, l.Start())
	t.Cleanup(func() { _ = l.Stop() })
	return l.Addr().String()
}

func TestNew(t *testing.T) {
	_, err := New("sctp", "127.0.0.1:53", nil)
	require.Error(t, err)

	_, err = New("udp", "127.0.0.1", nil)
	require.Error(t, err)

	p, err := New("TCP", "127.0.0.1:53", nil)
	require.NoError(t, err)
	assert.Equal(t, "tcp", p.network)
}

func TestProber_Run(t *testing.T) {
	for _, network := range []string{"udp", "tcp"} {
		t.Run(network, func(t *testing.T) {
			addr := startListener(t, network, policy.Config{ResponseA: "192.0.2.7", ResponseTXT: "probe me"})

			p, err := New(network, addr, nil)
			require.NoError(t, err)

			results := p.Run(context.Background(), "google.com")
			require.Len(t, results, len(Types))

			for i, result := range results {
				require.NoError(t, result.Err)
				assert.Equal(t, Types[i], result.Type)
				assert.Equal(t, dns.RcodeSuccess, result.Rcode)
				require.Len(t, result.Answers, 1)
				assert.Contains(t, result.String(), dns.TypeToString[result.Type])
			}

			a := results[0].Answers[0].(*dns.A)
			assert.Equal(t, netip.MustParseAddr("192.0.2.7").AsSlice(), []byte(a.A.To4()))
			assert.Equal(t, "mail.evil.com.", results[1].Answers[0].(*dns.MX).Mx)
			assert.Equal(t, []string{"probe me"}, results[2].Answers[0].(*dns.TXT).Txt)
		})
	}
}

func TestProber_Timeout(t *testing.T) {
	// a bound socket that never answers
	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	p, err := New("udp", conn.LocalAddr().String(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	result := p.Query(ctx, "google.com", dns.TypeA)
	require.Error(t, result.Err)
	assert.Less(t, result.Elapsed, time.Second)
	assert.Contains(t, result.String(), "error=")
}

package policy

import (
	"fmt"
	"net/netip"
	"strings"
)

// keywords accepted by Config.ResponseA instead of an address
const (
	KeywordFirstNonLoopback = "GetFirstNonLoopback"
	KeywordHostByName       = "GetHostByName"
)

const (
	DefaultResponseMX  = "mail.evil.com"
	DefaultResponseTXT = "FAKENET"
	mxPreference       = 10

	// some Windows versions probe this name to decide whether the network is online
	ncsiDomain  = "dns.msftncsi.com"
	ncsiAddress = "131.107.255.225"
)

type Config struct {
	ResponseA   string `json:"responsea" yaml:"responsea" toml:"responsea"`       // literal, CIDR, or one of the keywords
	ResponseMX  string `json:"responsemx" yaml:"responsemx" toml:"responsemx"`    // MX exchange
	ResponseTXT string `json:"responsetxt" yaml:"responsetxt" toml:"responsetxt"` // TXT payload
	NXDomains   int    `json:"nxdomains" yaml:"nxdomains" toml:"nxdomains"`       // A queries to fail before answering
	FailOnce    bool   `json:"failonce" yaml:"failonce" toml:"failonce"`          // pool mode: fail the first lookup of every name
	TTL         uint32 `json:"ttl" yaml:"ttl" toml:"ttl"`
}

type addressMode int

const (
	modeHostByName addressMode = iota
	modeFirstNonLoopback
	modeLiteral
	modePool
)

func (m addressMode) String() string {
	switch m {
	case modeHostByName:
		return KeywordHostByName
	case modeFirstNonLoopback:
		return KeywordFirstNonLoopback
	case modeLiteral:
		return "literal"
	case modePool:
		return "pool"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// parseResponseA classifies the A record setting once, at engine construction.
func parseResponseA(s string) (addressMode, netip.Addr, netip.Prefix, error) {
	switch {
	case s == "" || s == KeywordHostByName:
		return modeHostByName, netip.Addr{}, netip.Prefix{}, nil

	case s == KeywordFirstNonLoopback:
		return modeFirstNonLoopback, netip.Addr{}, netip.Prefix{}, nil

	case strings.Contains(s, "/"):
		prefix, err := netip.ParsePrefix(s)
		if err != nil {
			return 0, netip.Addr{}, netip.Prefix{}, fmt.Errorf("responsea %q: %w", s, err)
		}
		return modePool, netip.Addr{}, prefix, nil

	default:
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return 0, netip.Addr{}, netip.Prefix{}, fmt.Errorf("responsea %q: %w", s, err)
		}
		if addr = addr.Unmap(); !addr.Is4() {
			return 0, netip.Addr{}, netip.Prefix{}, fmt.Errorf("responsea %q: not an ipv4 address", s)
		}
		return modeLiteral, addr, netip.Prefix{}, nil
	}
}

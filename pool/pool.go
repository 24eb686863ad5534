// Package pool hands out IPv4 host addresses from a network range, one per domain name.
package pool

import (
	"errors"
	"fmt"
	"net/netip"
)

// ErrExhausted is returned by Next when every host address has been issued.
var ErrExhausted = errors.New("pool: address range exhausted")

// Pool is an in-order iterator over the usable hosts of a prefix with a
// memo from name to issued address.
//
// Pool is not safe for concurrent use. The memo lookup and the draw must run inside the
// same critical section owned by the caller.
type Pool struct {
	prefix netip.Prefix
	next   netip.Addr
	last   netip.Addr
	done   bool
	memo   map[string]netip.Addr
}

// New returns a pool over the hosts of prefix. The prefix is masked first, so
// 10.0.0.7/24 iterates 10.0.0.1 .. 10.0.0.254. For /31 and /32 every address is a host.
func New(prefix netip.Prefix) (*Pool, error) {
	if !prefix.IsValid() || !prefix.Addr().Is4() {
		return nil, fmt.Errorf("pool: %s is not an IPv4 prefix", prefix)
	}
	prefix = prefix.Masked()

	first := prefix.Addr()
	last := broadcast(prefix)
	if prefix.Bits() < 31 {
		first = first.Next()
		last = last.Prev()
	}

	return &Pool{
		prefix: prefix,
		next:   first,
		last:   last,
		memo:   make(map[string]netip.Addr),
	}, nil
}

// Next returns the address memoized for name, or draws, memoizes and returns a new one.
// fresh is true only when the address was drawn by this call.
func (p *Pool) Next(name string) (addr netip.Addr, fresh bool, err error) {
	if addr, ok := p.memo[name]; ok {
		return addr, false, nil
	}

	if p.done {
		return netip.Addr{}, false, fmt.Errorf("%w: %s", ErrExhausted, p.prefix)
	}

	addr = p.next
	if addr == p.last {
		p.done = true
	} else {
		p.next = addr.Next()
	}
	p.memo[name] = addr

	return addr, true, nil
}

// Len returns the number of memoized names.
func (p *Pool) Len() int { return len(p.memo) }

func (p *Pool) Prefix() netip.Prefix { return p.prefix }

func broadcast(prefix netip.Prefix) netip.Addr {
	a := prefix.Addr().As4()
	host := uint32(0xFFFFFFFF) >> prefix.Bits()
	v := uint32(a[0])<<24 | uint32(a[1])<<16 | uint32(a[2])<<8 | uint32(a[3])
	v |= host
	return netip.AddrFrom4([4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}

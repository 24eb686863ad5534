package util

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"time"
)

const lookupTimeout = 2 * time.Second

var ErrNoAddress = errors.New("no usable ipv4 address")

// Host answers questions about the machine fakedns runs on.
//
// The zero value inspects the real interfaces and resolver. Tests replace the
// function fields.
type Host struct {
	Interfaces func() ([]net.Interface, error)
	Addrs      func(iface *net.Interface) ([]net.Addr, error)
	Hostname   func() (string, error)
	LookupIP   func(ctx context.Context, host string) ([]netip.Addr, error)
}

// FirstNonLoopback returns the first IPv4 address outside 127.0.0.0/8 found while
// walking the interfaces in system order.
func (h *Host) FirstNonLoopback() (netip.Addr, error) {
	interfaces := net.Interfaces
	if h.Interfaces != nil {
		interfaces = h.Interfaces
	}
	addrsOf := func(iface *net.Interface) ([]net.Addr, error) { return iface.Addrs() }
	if h.Addrs != nil {
		addrsOf = h.Addrs
	}

	ifaces, err := interfaces()
	if err != nil {
		return netip.Addr{}, fmt.Errorf("list interfaces error=[%w]", err)
	}

	for i := range ifaces {
		addrs, err := addrsOf(&ifaces[i])
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ip, ok := addrIP(addr)
			if !ok || !ip.Is4() || ip.IsLoopback() {
				continue
			}
			return ip, nil
		}
	}

	return netip.Addr{}, ErrNoAddress
}

// HostAddress resolves the local host name to its first IPv4 address, like
// gethostbyname(gethostname()).
func (h *Host) HostAddress() (netip.Addr, error) {
	hostname := os.Hostname
	if h.Hostname != nil {
		hostname = h.Hostname
	}
	lookup := func(ctx context.Context, host string) ([]netip.Addr, error) {
		return net.DefaultResolver.LookupNetIP(ctx, "ip4", host)
	}
	if h.LookupIP != nil {
		lookup = h.LookupIP
	}

	name, err := hostname()
	if err != nil {
		return netip.Addr{}, fmt.Errorf("hostname error=[%w]", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	ips, err := lookup(ctx, name)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("lookup %s error=[%w]", name, err)
	}
	for _, ip := range ips {
		if ip = ip.Unmap(); ip.Is4() {
			return ip, nil
		}
	}

	return netip.Addr{}, fmt.Errorf("%w for %s", ErrNoAddress, name)
}

func addrIP(addr net.Addr) (netip.Addr, bool) {
	switch a := addr.(type) {
	case *net.IPNet:
		ip, ok := netip.AddrFromSlice(a.IP)
		return ip.Unmap(), ok
	case *net.IPAddr:
		ip, ok := netip.AddrFromSlice(a.IP)
		return ip.Unmap(), ok
	default:
		return netip.Addr{}, false
	}
}

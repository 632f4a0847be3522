// Package netaddr reports the externally reachable addresses of the local host
// over HTTP.
package netaddr

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"os"
)

// Interface is a network interface with bound addresses
type Interface interface {
	Name() string
	Addrs() ([]net.Addr, error)
}

// Host enumerates interfaces and resolves the default host address
type Host interface {
	Interfaces() ([]Interface, error)
	LocalHost(ctx context.Context) (netip.Addr, error)
}

type systemInterface struct {
	iface net.Interface
}

func (i systemInterface) Name() string { return i.iface.Name }

func (i systemInterface) Addrs() ([]net.Addr, error) { return i.iface.Addrs() }

type systemHost struct {
	resolver *net.Resolver
}

// SystemHost returns the Host backed by the operating system
func SystemHost() Host {
	return systemHost{resolver: net.DefaultResolver}
}

func (h systemHost) Interfaces() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	out := make([]Interface, 0, len(ifaces))
	for _, iface := range ifaces {
		out = append(out, systemInterface{iface: iface})
	}
	return out, nil
}

// LocalHost resolves the host name and returns its first address
func (h systemHost) LocalHost(ctx context.Context) (netip.Addr, error) {
	name, err := os.Hostname()
	if err != nil {
		return netip.Addr{}, fmt.Errorf("hostname: %w", err)
	}
	addrs, err := h.resolver.LookupNetIP(ctx, "ip", name)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("resolve %s: %w", name, err)
	}
	if len(addrs) == 0 {
		return netip.Addr{}, fmt.Errorf("resolve %s: no addresses", name)
	}
	return addrs[0].Unmap(), nil
}

// addrOf extracts the IP of an interface address
func addrOf(a net.Addr) (netip.Addr, bool) {
	var ip net.IP
	switch v := a.(type) {
	case *net.IPNet:
		ip = v.IP
	case *net.IPAddr:
		ip = v.IP
	default:
		if p, err := netip.ParsePrefix(a.String()); err == nil {
			return p.Addr().Unmap(), true
		}
		addr, err := netip.ParseAddr(a.String())
		return addr.Unmap(), err == nil
	}
	addr, ok := netip.AddrFromSlice(ip)
	return addr.Unmap(), ok
}

// qualifies reports whether addr is reachable from outside the host
func qualifies(addr netip.Addr) bool {
	return addr.IsValid() && !addr.IsLoopback() && !addr.IsLinkLocalUnicast()
}

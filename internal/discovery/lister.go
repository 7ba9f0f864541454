// Package discovery guesses where the mixer lives on the local network.
//
// The first global IPv4 address of an up interface is taken and the mixer is
// assumed to sit on the same /24 at a fixed host octet. A configured static
// host always wins.
package discovery

import (
	"context"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"
)

// Address is one usable local IPv4 address.
type Address struct {
	Iface string `json:"iface"` // e.g. "en0"
	IP    string `json:"ip"`    // e.g. "192.168.1.10"
}

// InterfacesFunc enumerates local addresses; net.Interfaces in production.
type InterfacesFunc func() ([]Address, error)

type LocalAddrOptions struct {
	TTL        time.Duration  // Cache TTL, default 15s
	Interfaces InterfacesFunc // Default: up, non-loopback, non-link-local IPv4
}

func (o *LocalAddrOptions) setDefaults() {
	if o.TTL <= 0 {
		o.TTL = 15 * time.Second
	}
	if o.Interfaces == nil {
		o.Interfaces = globalIPv4
	}
}

// LocalAddrLister caches the local address list for TTL.
type LocalAddrLister struct {
	mu      sync.RWMutex
	cache   []Address
	expires time.Time
	opts    LocalAddrOptions
	now     func() time.Time
}

func NewLocalAddrLister(opts LocalAddrOptions) *LocalAddrLister {
	opts.setDefaults()
	return &LocalAddrLister{
		opts: opts,
		now:  time.Now,
	}
}

// Invalidate clears the cache so the next call refetches immediately.
func (s *LocalAddrLister) Invalidate() {
	s.mu.Lock()
	s.cache = nil
	s.expires = time.Time{}
	s.mu.Unlock()
}

// Addrs returns local addresses sorted by interface then IP (cached).
func (s *LocalAddrLister) Addrs(ctx context.Context) ([]Address, error) {
	s.mu.RLock()
	if s.cache != nil && s.now().Before(s.expires) {
		out := append([]Address(nil), s.cache...)
		s.mu.RUnlock()
		return out, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine could have already refreshed; re-check
	if s.cache != nil && s.now().Before(s.expires) {
		return append([]Address(nil), s.cache...), nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	addrs, err := s.opts.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}
	sort.Slice(addrs, func(i, j int) bool {
		if addrs[i].Iface == addrs[j].Iface {
			return addrs[i].IP < addrs[j].IP
		}
		return addrs[i].Iface < addrs[j].Iface
	})

	s.cache = addrs
	if s.cache == nil {
		s.cache = []Address{}
	}
	s.expires = s.now().Add(s.opts.TTL)
	return append([]Address(nil), s.cache...), nil
}

// globalIPv4 lists IPv4 addresses of up interfaces, skipping loopback and
// link-local (169.254.0.0/16) ranges.
func globalIPv4() ([]Address, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var out []Address
	for _, ifc := range ifaces {
		if ifc.Flags&net.FlagUp == 0 || ifc.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, _ := ifc.Addrs()
		for _, a := range addrs {
			var ip net.IP
			switch v := a.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			default:
				continue
			}
			if v4 := ip.To4(); v4 != nil && isGlobal(v4) {
				out = append(out, Address{Iface: ifc.Name, IP: v4.String()})
			}
		}
	}
	return out, nil
}

func isGlobal(ip net.IP) bool {
	return !ip.IsLoopback() && !ip.IsLinkLocalUnicast() && !ip.IsUnspecified()
}

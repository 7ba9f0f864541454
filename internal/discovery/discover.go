package discovery

import (
	"context"
	"net"

	"go.uber.org/zap"
)

type Options struct {
	StaticHost string // Used as-is when set
	HostOctet  uint8  // Last octet on the local /24, default 20
}

// Discoverer implements the host discovery contract used by the mixer link.
type Discoverer struct {
	log    *zap.Logger
	lister *LocalAddrLister
	opts   Options
}

func New(log *zap.Logger, lister *LocalAddrLister, opts Options) *Discoverer {
	if opts.HostOctet == 0 {
		opts.HostOctet = 20
	}
	return &Discoverer{
		log:    log.Named("discovery"),
		lister: lister,
		opts:   opts,
	}
}

// DiscoverHost returns the mixer host, or false when no local network is
// detected.
func (d *Discoverer) DiscoverHost(ctx context.Context) (string, bool) {
	if d.opts.StaticHost != "" {
		return d.opts.StaticHost, true
	}

	addrs, err := d.lister.Addrs(ctx)
	if err != nil {
		d.log.Warn("listing local addresses failed", zap.Error(err))
		return "", false
	}

	for _, a := range addrs {
		if host, ok := GuessHost(a.IP, d.opts.HostOctet); ok {
			d.log.Debug("guessed mixer host", zap.String("iface", a.Iface), zap.String("local", a.IP), zap.String("host", host))
			return host, true
		}
	}
	return "", false
}

// Rediscover drops cached addresses and runs DiscoverHost again.
func (d *Discoverer) Rediscover(ctx context.Context) (string, bool) {
	d.lister.Invalidate()
	return d.DiscoverHost(ctx)
}

// GuessHost replaces the last octet of an IPv4 address.
func GuessHost(local string, octet uint8) (string, bool) {
	ip := net.ParseIP(local).To4()
	if ip == nil {
		return "", false
	}
	guess := net.IPv4(ip[0], ip[1], ip[2], octet)
	return guess.String(), true
}

// Addrs exposes the cached local address list.
func (d *Discoverer) Addrs(ctx context.Context) ([]Address, error) {
	return d.lister.Addrs(ctx)
}

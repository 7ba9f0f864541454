package mixer

import (
	"context"

	"go.uber.org/zap"
)

// DiscoverFunc supplies the mixer host, or false when no local network is
// detected.
type DiscoverFunc func(ctx context.Context) (string, bool)

// Monitor drives Reconnect whenever the link has gone stale, so hotkey
// callers more often find a live socket. It adds no states of its own.
type Monitor struct {
	log      *zap.Logger
	link     *Link
	discover DiscoverFunc
}

// NewMonitor creates a monitor. discover may be nil, in which case a link in
// NoNetwork stays there until someone calls SetEndpoint.
func NewMonitor(log *zap.Logger, link *Link, discover DiscoverFunc) *Monitor {
	return &Monitor{
		log:      log.Named("monitor"),
		link:     link,
		discover: discover,
	}
}

// Tick runs one monitor iteration. It is meant to be scheduled at a fixed
// interval; the caller owns the sleeping.
func (m *Monitor) Tick(ctx context.Context) {
	switch m.link.Status() {
	case StatusDisconnected:
		m.reconnect()

	case StatusNoNetwork:
		if m.discover == nil {
			return
		}
		host, ok := m.discover(ctx)
		if !ok {
			m.log.Debug("still no network")
			return
		}
		ep := m.link.Endpoint()
		ep.Host = host
		m.link.SetEndpoint(ep)
		m.reconnect()
	}
}

func (m *Monitor) reconnect() {
	m.log.Info("connection lost, attempting to reconnect")
	if m.link.Reconnect() {
		m.log.Info("reconnection successful")
		return
	}
	m.log.Warn("reconnection failed, will retry", zap.Stringer("status", m.link.Status()))
}

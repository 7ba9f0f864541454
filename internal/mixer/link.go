package mixer

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/edirooss/logickeys/pkg/osc"
	"go.uber.org/zap"
)

var (
	ErrSocketCreate = errors.New("socket create failure")
	ErrSend         = errors.New("send failure")
	ErrNoNetwork    = errors.New("no network detected")
)

// ProbePath is the address used by Probe. The XR18 answers /info queries,
// but the reply is never read; the value argument is ignored by convention.
const ProbePath = "/info"

var probePayload = osc.Encode(ProbePath, 0)

// Conn is the part of net.PacketConn the Link writes through.
type Conn interface {
	WriteTo(b []byte, addr net.Addr) (int, error)
	SetWriteDeadline(t time.Time) error
	Close() error
}

// ListenFunc opens a UDP socket bound to no particular local address.
type ListenFunc func() (Conn, error)

func listenUDP() (Conn, error) {
	return net.ListenPacket("udp", ":0")
}

// SendFunc observes the outcome of every Send call and the status it left
// the link in.
type SendFunc func(path string, value int32, ok bool, status Status)

type LinkOptions struct {
	Endpoint Endpoint      // May be unset; see SetEndpoint
	Timeout  time.Duration // Per-write deadline, default 5s
	Listen   ListenFunc    // Socket factory, default unbound UDP
	OnSend   SendFunc      // Optional; called outside the lock
}

func (o *LinkOptions) setDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	if o.Listen == nil {
		o.Listen = listenUDP
	}
}

// Link owns the single UDP socket to the mixer and its liveness Status.
// It is safe for concurrent use.
//
// CreateSocket, Probe and Send hold mu for the socket syscall plus the status
// update and nothing else. Status, Endpoint and LastError never block on mu,
// so a stalled write cannot freeze a status display.
type Link struct {
	log     *zap.Logger
	listen  ListenFunc
	timeout time.Duration
	onSend  SendFunc

	mu   sync.Mutex
	conn Conn         // Protected by mu
	addr *net.UDPAddr // Resolved endpoint; protected by mu

	status atomic.Uint32 // Written only while holding mu

	infoMu   sync.RWMutex
	endpoint Endpoint
	lastErr  error
}

// NewLink constructs a Link in the Disconnected state. No socket is opened
// until the first CreateSocket, Send or Reconnect.
func NewLink(log *zap.Logger, opts LinkOptions) *Link {
	opts.setDefaults()
	l := &Link{
		log:      log.Named("link"),
		listen:   opts.Listen,
		timeout:  opts.Timeout,
		onSend:   opts.OnSend,
		endpoint: opts.Endpoint,
	}
	l.status.Store(uint32(StatusDisconnected))
	return l
}

// Status returns the current liveness status.
func (l *Link) Status() Status { return Status(l.status.Load()) }

// Endpoint returns the configured mixer address.
func (l *Link) Endpoint() Endpoint {
	l.infoMu.RLock()
	defer l.infoMu.RUnlock()
	return l.endpoint
}

// LastError returns the error behind the most recent failure, or nil after a
// success.
func (l *Link) LastError() error {
	l.infoMu.RLock()
	defer l.infoMu.RUnlock()
	return l.lastErr
}

// SetEndpoint replaces the mixer address. The socket is unconnected UDP, so it
// survives the change; only the resolved destination is dropped. Clearing the
// host moves the link to NoNetwork, setting one lifts it back to Disconnected
// for the reconnect monitor to pick up.
func (l *Link) SetEndpoint(ep Endpoint) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.infoMu.Lock()
	old := l.endpoint
	l.endpoint = ep
	l.infoMu.Unlock()

	if old == ep {
		return
	}
	l.addr = nil
	l.log.Info("endpoint changed", zap.Stringer("from", old), zap.Stringer("to", ep))

	switch {
	case !ep.IsSet():
		l.setStatus(StatusNoNetwork)
	case l.Status() == StatusNoNetwork:
		l.setStatus(StatusDisconnected)
	}
}

// CreateSocket closes any existing socket and opens a new one. It never
// returns an error: failures become a false return plus a status change
// (NoNetwork when no host is known, Disconnected on OS errors).
func (l *Link) CreateSocket() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn != nil {
		if err := l.conn.Close(); err != nil {
			l.log.Debug("closing previous socket failed", zap.Error(err))
		}
		l.conn = nil
	}

	ep := l.Endpoint()
	if !ep.IsSet() {
		l.fail(fmt.Errorf("create socket: %w", ErrNoNetwork))
		return false
	}

	conn, err := l.listen()
	if err != nil {
		l.fail(fmt.Errorf("%w: %w", ErrSocketCreate, err))
		return false
	}

	l.conn = conn
	l.addr = nil
	l.succeed()
	l.log.Info("socket created and configured", zap.Stringer("endpoint", ep), zap.Duration("timeout", l.timeout))
	return true
}

// Probe sends a harmless /info message. Success only proves the local send
// path is healthy; the mixer may still be unreachable.
func (l *Link) Probe() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn == nil {
		return false
	}

	if err := l.write(probePayload); err != nil {
		l.fail(fmt.Errorf("probe: %w", err))
		return false
	}
	l.succeed()
	return true
}

// EnsureConnection recreates the socket when there is none or the status is
// Disconnected, and probes it otherwise.
func (l *Link) EnsureConnection() bool {
	l.mu.Lock()
	hasSocket := l.conn != nil
	l.mu.Unlock()

	if !hasSocket || l.Status() == StatusDisconnected {
		return l.CreateSocket()
	}
	return l.Probe()
}

// Send encodes path/value and writes it to the mixer. Errors never escape:
// callers only learn whether the datagram left the host. A failed send is
// not queued or retried.
func (l *Link) Send(path string, value int32) bool {
	ok := l.send(path, value)
	if l.onSend != nil {
		l.onSend(path, value, ok, l.Status())
	}
	return ok
}

func (l *Link) send(path string, value int32) bool {
	msg := osc.NewMessage(path, value)
	payload, err := msg.MarshalBinary()
	if err != nil {
		l.log.Warn("refusing to send invalid message", zap.Error(err))
		return false
	}

	if !l.EnsureConnection() {
		l.log.Warn("no connection available for OSC message", zap.Stringer("msg", msg), zap.Stringer("status", l.Status()))
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn == nil {
		// Closed between EnsureConnection and here (shutdown).
		l.fail(fmt.Errorf("send %s: socket closed: %w", msg, ErrSend))
		return false
	}

	if err := l.write(payload); err != nil {
		l.fail(fmt.Errorf("send %s: %w", msg, err))
		return false
	}

	l.succeed()
	l.log.Info("osc sent", zap.String("path", path), zap.Int32("value", value))
	return true
}

// Reconnect marks the link Connecting and recreates the socket.
func (l *Link) Reconnect() bool {
	l.mu.Lock()
	l.setStatus(StatusConnecting)
	l.mu.Unlock()

	return l.CreateSocket()
}

// Close releases the socket at process shutdown.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.setStatus(StatusDisconnected)
	if l.conn == nil {
		return nil
	}
	err := l.conn.Close()
	l.conn = nil
	l.addr = nil
	return err
}

// write sends payload to the endpoint. Caller holds mu.
func (l *Link) write(payload []byte) error {
	if l.addr == nil {
		addr, err := l.Endpoint().resolve()
		if err != nil {
			if errors.Is(err, ErrNoNetwork) {
				return err
			}
			return fmt.Errorf("%w: %w", ErrSend, err)
		}
		l.addr = addr
	}

	if err := l.conn.SetWriteDeadline(time.Now().Add(l.timeout)); err != nil {
		return fmt.Errorf("%w: set deadline: %w", ErrSend, err)
	}
	if _, err := l.conn.WriteTo(payload, l.addr); err != nil {
		return fmt.Errorf("%w: %w", ErrSend, err)
	}
	return nil
}

// fail records err and moves to NoNetwork or Disconnected. Caller holds mu.
func (l *Link) fail(err error) {
	if errors.Is(err, ErrNoNetwork) {
		l.setStatus(StatusNoNetwork)
	} else {
		l.setStatus(StatusDisconnected)
	}

	l.infoMu.Lock()
	l.lastErr = err
	l.infoMu.Unlock()

	l.log.Warn("link failure", zap.Error(err))
}

// succeed clears the last error and marks the link Connected. Caller holds mu.
func (l *Link) succeed() {
	l.setStatus(StatusConnected)

	l.infoMu.Lock()
	l.lastErr = nil
	l.infoMu.Unlock()
}

// setStatus stores s and logs transitions. Caller holds mu.
func (l *Link) setStatus(s Status) {
	if old := Status(l.status.Swap(uint32(s))); old != s {
		l.log.Debug("status changed", zap.Stringer("from", old), zap.Stringer("to", s))
	}
}

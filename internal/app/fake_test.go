package app

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/edirooss/logickeys/internal/config"
	"github.com/edirooss/logickeys/internal/discovery"
	"github.com/edirooss/logickeys/internal/mixer"
	"github.com/edirooss/logickeys/internal/store"
	"github.com/edirooss/logickeys/pkg/osc"
	"go.uber.org/zap"
	"gotest.tools/v3/assert"
)

var errWrite = errors.New("write failed")

// wire records every datagram written through any socket it opened.
type wire struct {
	mu       sync.Mutex
	opened   int
	failPath string // writes of this OSC path fail
	sent     []osc.Message
	to       []string
}

func (w *wire) listen() (mixer.Conn, error) {
	w.mu.Lock()
	w.opened++
	w.mu.Unlock()
	return &wireConn{w: w}, nil
}

func (w *wire) messages() []osc.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]osc.Message(nil), w.sent...)
}

// withoutProbes drops /info keepalives.
func withoutProbes(msgs []osc.Message) []osc.Message {
	var out []osc.Message
	for _, m := range msgs {
		if m.Address != mixer.ProbePath {
			out = append(out, m)
		}
	}
	return out
}

type wireConn struct{ w *wire }

func (c *wireConn) WriteTo(b []byte, addr net.Addr) (int, error) {
	msg, err := osc.Decode(b)
	if err != nil {
		return 0, err
	}
	c.w.mu.Lock()
	defer c.w.mu.Unlock()
	if msg.Address == c.w.failPath {
		return 0, errWrite
	}
	c.w.sent = append(c.w.sent, msg)
	c.w.to = append(c.w.to, addr.String())
	return len(b), nil
}

func (c *wireConn) SetWriteDeadline(time.Time) error { return nil }
func (c *wireConn) Close() error                     { return nil }

func staticIfaces(addrs ...discovery.Address) discovery.InterfacesFunc {
	return func() ([]discovery.Address, error) { return addrs, nil }
}

func newTestController(t *testing.T, w *wire, mutate func(*config.Config), st store.Store) *Controller {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	assert.NilError(t, cfg.Validate())

	if st == nil {
		st = store.NewMemoryStore()
	}
	return New(context.Background(), zap.NewNop(), cfg, Options{
		Listen:     w.listen,
		Interfaces: staticIfaces(discovery.Address{Iface: "en0", IP: "192.168.1.10"}),
		Store:      st,
	})
}

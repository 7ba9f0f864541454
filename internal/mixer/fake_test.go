package mixer

import (
	"errors"
	"net"
	"sync"
	"time"
)

var errFake = errors.New("fake socket error")

type datagram struct {
	to      string
	payload []byte
}

// fakeNet hands out fakeConns and counts their lifecycle.
type fakeNet struct {
	mu         sync.Mutex
	opened     int
	closed     int
	listenErr  error
	writeErr   error
	sent       []datagram
	maxOpen    int
	deadlineOK bool
}

func (n *fakeNet) listen() (Conn, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.listenErr != nil {
		return nil, n.listenErr
	}
	n.opened++
	if live := n.opened - n.closed; live > n.maxOpen {
		n.maxOpen = live
	}
	return &fakeConn{n: n}, nil
}

func (n *fakeNet) live() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.opened - n.closed
}

func (n *fakeNet) datagrams() []datagram {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]datagram(nil), n.sent...)
}

func (n *fakeNet) setWriteErr(err error) {
	n.mu.Lock()
	n.writeErr = err
	n.mu.Unlock()
}

type fakeConn struct {
	n      *fakeNet
	closed bool
}

func (c *fakeConn) WriteTo(b []byte, addr net.Addr) (int, error) {
	c.n.mu.Lock()
	defer c.n.mu.Unlock()
	if c.closed {
		return 0, net.ErrClosed
	}
	if c.n.writeErr != nil {
		return 0, c.n.writeErr
	}
	c.n.sent = append(c.n.sent, datagram{to: addr.String(), payload: append([]byte(nil), b...)})
	return len(b), nil
}

func (c *fakeConn) SetWriteDeadline(t time.Time) error {
	c.n.mu.Lock()
	c.n.deadlineOK = !t.IsZero()
	c.n.mu.Unlock()
	return nil
}

func (c *fakeConn) Close() error {
	c.n.mu.Lock()
	defer c.n.mu.Unlock()
	if c.closed {
		return net.ErrClosed
	}
	c.closed = true
	c.n.closed++
	return nil
}

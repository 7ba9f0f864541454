package hotkey

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/term"
)

// ErrInterrupted is reported by Err after Ctrl-C or Ctrl-D in raw mode.
var ErrInterrupted = errors.New("interrupted from keyboard")

const (
	ctrlC = 0x03
	ctrlD = 0x04
)

// Listener delivers key events until stopped or its input ends.
type Listener interface {
	// Start begins capturing key events. The channel is closed when the
	// listener stops.
	Start(ctx context.Context) (<-chan KeyEvent, error)

	// Stop releases the input and restores any terminal state.
	Stop() error
}

type fdReader interface {
	io.Reader
	Fd() uintptr
}

// TerminalListener reads keys from stdin. An interactive terminal is put
// into raw mode and read byte by byte; anything else is read line by line.
type TerminalListener struct {
	log *zap.Logger
	in  io.Reader

	mu      sync.Mutex
	state   *term.State
	fd      int
	started bool
	err     error
	done    chan struct{}
	stop    sync.Once
}

func NewTerminalListener(log *zap.Logger, in io.Reader) *TerminalListener {
	return &TerminalListener{
		log:  log.Named("hotkey"),
		in:   in,
		done: make(chan struct{}),
	}
}

func (l *TerminalListener) Start(ctx context.Context) (<-chan KeyEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		return nil, errors.New("listener already started")
	}
	l.started = true

	out := make(chan KeyEvent, 16)

	if f, ok := l.in.(fdReader); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		state, err := term.MakeRaw(fd)
		if err != nil {
			return nil, err
		}
		l.state, l.fd = state, fd
		l.log.Info("listening for keys", zap.String("mode", "raw"))
		go l.readRaw(ctx, out)
		return out, nil
	}

	l.log.Info("listening for keys", zap.String("mode", "line"))
	go l.readLines(ctx, out)
	return out, nil
}

// Stop restores the terminal. A read already blocked on stdin returns with
// the next byte.
func (l *TerminalListener) Stop() error {
	var err error
	l.stop.Do(func() {
		close(l.done)

		l.mu.Lock()
		defer l.mu.Unlock()
		if l.state != nil {
			err = term.Restore(l.fd, l.state)
			l.state = nil
		}
	})
	return err
}

// Err reports why the stream ended: ErrInterrupted, a read error, or nil on
// EOF or Stop.
func (l *TerminalListener) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

func (l *TerminalListener) readRaw(ctx context.Context, out chan<- KeyEvent) {
	defer close(out)
	defer l.Stop()

	buf := make([]byte, 64)
	for {
		n, err := l.in.Read(buf)
		for _, b := range buf[:n] {
			if b == ctrlC || b == ctrlD {
				l.setErr(ErrInterrupted)
				return
			}
			ev, ok := FromByte(b)
			if !ok {
				continue
			}
			if !l.emit(ctx, out, ev) {
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				l.setErr(err)
			}
			return
		}
	}
}

func (l *TerminalListener) readLines(ctx context.Context, out chan<- KeyEvent) {
	defer close(out)

	sc := bufio.NewScanner(l.in)
	for sc.Scan() {
		// a bare " " line is the space key
		line := sc.Text()
		if t := strings.TrimSpace(line); t != "" {
			line = t
		}
		if line == "" {
			continue
		}

		ev, err := Parse(line)
		if err != nil {
			l.log.Debug("ignoring input line", zap.String("line", line))
			continue
		}
		if !l.emit(ctx, out, ev) {
			return
		}
	}
	if err := sc.Err(); err != nil {
		l.setErr(err)
	}
}

func (l *TerminalListener) emit(ctx context.Context, out chan<- KeyEvent, ev KeyEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	case <-l.done:
		return false
	}
}

func (l *TerminalListener) setErr(err error) {
	l.mu.Lock()
	if l.err == nil {
		l.err = err
	}
	l.mu.Unlock()
}

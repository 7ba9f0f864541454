package mixer

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// MidiMode is the mixer's MIDI routing configuration as last requested by us.
type MidiMode uint8

const (
	MidiDinRx          MidiMode = iota // DIN CC/PC receive
	MidiUsbDinPassthru                 // DIN <-> USB passthrough
)

func (m MidiMode) String() string {
	switch m {
	case MidiDinRx:
		return "din_rx"
	case MidiUsbDinPassthru:
		return "usb_din_passthru"
	default:
		return fmt.Sprintf("MidiMode(%d)", uint8(m))
	}
}

// Label is the human readable form used by the status display.
func (m MidiMode) Label() string {
	if m == MidiUsbDinPassthru {
		return "USB-DIN Passthrough"
	}
	return "DIN RX"
}

// Other returns the mode a toggle switches to.
func (m MidiMode) Other() MidiMode {
	if m == MidiDinRx {
		return MidiUsbDinPassthru
	}
	return MidiDinRx
}

// MarshalText implements encoding.TextMarshaler.
func (m MidiMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *MidiMode) UnmarshalText(b []byte) error {
	mode, err := ParseMidiMode(string(b))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// ParseMidiMode is the inverse of MidiMode.String.
func ParseMidiMode(s string) (MidiMode, error) {
	switch s {
	case "din_rx":
		return MidiDinRx, nil
	case "usb_din_passthru":
		return MidiUsbDinPassthru, nil
	}
	return 0, fmt.Errorf("unknown midi mode %q", s)
}

// Sender is what the toggle needs from a Link.
type Sender interface {
	Send(path string, value int32) bool
}

type MidiOptions struct {
	Path                string
	DinRxValue          int32
	UsbDinPassthruValue int32
	Initial             MidiMode
	Unconfirmed         bool // Initial mode came from a cache, not from a send
}

// MidiToggle flips the mixer between the two MIDI modes. The cached mode is
// optimistic: it changes only when the send succeeded and is never confirmed
// by the mixer, so another controller can make it diverge.
type MidiToggle struct {
	log    *zap.Logger
	sender Sender
	path   string
	values [2]int32

	toggleMu sync.Mutex // Serializes Toggle; held across the send

	mu          sync.RWMutex
	mode        MidiMode
	unconfirmed bool
}

func NewMidiToggle(log *zap.Logger, sender Sender, opts MidiOptions) *MidiToggle {
	return &MidiToggle{
		log:         log.Named("midi"),
		sender:      sender,
		path:        opts.Path,
		values:      [2]int32{MidiDinRx: opts.DinRxValue, MidiUsbDinPassthru: opts.UsbDinPassthruValue},
		mode:        opts.Initial,
		unconfirmed: opts.Unconfirmed,
	}
}

// Mode returns the cached mode and whether it is unconfirmed.
func (t *MidiToggle) Mode() (MidiMode, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mode, t.unconfirmed
}

// Toggle sends the other mode's configuration value. It returns the cached
// mode afterwards and whether the switch happened.
func (t *MidiToggle) Toggle() (MidiMode, bool) {
	t.toggleMu.Lock()
	defer t.toggleMu.Unlock()

	current, _ := t.Mode()
	target := current.Other()

	if !t.sender.Send(t.path, t.values[target]) {
		t.log.Warn("midi mode switch failed", zap.Stringer("current", current), zap.Stringer("target", target))
		return current, false
	}

	t.mu.Lock()
	t.mode = target
	t.unconfirmed = true
	t.mu.Unlock()

	t.log.Info("switched midi mode", zap.String("mode", target.Label()))
	return target, true
}

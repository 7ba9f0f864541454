package app

import (
	"fmt"
	"strings"

	"github.com/edirooss/logickeys/internal/mixer"
)

// Control describes one hotkey binding.
type Control struct {
	Key    string `json:"key"`
	Action string `json:"action"`
	Value  int32  `json:"value"`
}

// Snapshot is everything a status display needs, read without blocking on
// the link.
type Snapshot struct {
	Status          mixer.Status   `json:"status"`
	Endpoint        mixer.Endpoint `json:"endpoint"`
	MidiMode        mixer.MidiMode `json:"midi_mode"`
	MidiUnconfirmed bool           `json:"midi_unconfirmed"`
	MutePaths       []string       `json:"mute_paths"`
	Controls        []Control      `json:"controls"`
	LastError       string         `json:"last_error,omitempty"`
}

func (c *Controller) Snapshot() Snapshot {
	mode, unconfirmed := c.toggle.Mode()
	s := Snapshot{
		Status:          c.link.Status(),
		Endpoint:        c.link.Endpoint(),
		MidiMode:        mode,
		MidiUnconfirmed: unconfirmed,
		MutePaths:       append([]string(nil), c.cfg.Mute.Paths...),
		Controls: []Control{
			{Key: strings.ToUpper(c.cfg.Mute.MuteKey), Action: "Mute", Value: c.cfg.Mute.MuteValue},
			{Key: "Space", Action: "Unmute", Value: c.cfg.Mute.UnmuteValue},
		},
	}
	if err := c.link.LastError(); err != nil {
		s.LastError = err.Error()
	}
	return s
}

// MenuLines renders the snapshot as menu bar item titles.
func (s Snapshot) MenuLines() []string {
	lines := []string{
		"Status: " + statusTitle(s.Status),
		"Reconnect",
		"MIDI Mode: " + midiTitle(s.MidiMode, s.MidiUnconfirmed),
		"Target: " + s.Endpoint.String(),
		"Controls:",
	}
	for _, ctl := range s.Controls {
		lines = append(lines, fmt.Sprintf("  %s = %s (%d)", ctl.Key, ctl.Action, ctl.Value))
	}
	return lines
}

func statusTitle(s mixer.Status) string {
	switch s {
	case mixer.StatusConnected:
		return "✅ Connected"
	case mixer.StatusConnecting:
		return "🔄 Connecting..."
	case mixer.StatusNoNetwork:
		return "📡 No Network"
	default:
		return "❌ Disconnected"
	}
}

func midiTitle(m mixer.MidiMode, unconfirmed bool) string {
	if unconfirmed {
		return m.Label() + " (unconfirmed)"
	}
	return m.Label()
}

// Package hotkey turns keyboard input into key events for the controller.
package hotkey

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

var ErrUnknownKey = errors.New("unknown key")

// KeyEvent is either a Character or a SpecialKey.
type KeyEvent interface {
	fmt.Stringer
	isKeyEvent()
}

// Character is a printable key.
type Character rune

func (Character) isKeyEvent() {}

func (c Character) String() string { return string(rune(c)) }

// SpecialKey is a non-printable key.
type SpecialKey uint8

const (
	Space SpecialKey = iota + 1
	Enter
	Escape
)

func (SpecialKey) isKeyEvent() {}

func (k SpecialKey) String() string {
	switch k {
	case Space:
		return "space"
	case Enter:
		return "enter"
	case Escape:
		return "escape"
	default:
		return fmt.Sprintf("special(%d)", uint8(k))
	}
}

// Parse maps a key name ("space", "enter", "escape"/"esc") or a single
// printable character to an event.
func Parse(s string) (KeyEvent, error) {
	switch strings.ToLower(s) {
	case "space", " ":
		return Space, nil
	case "enter", "return":
		return Enter, nil
	case "escape", "esc":
		return Escape, nil
	}

	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || size != len(s) || r == utf8.RuneError || !unicode.IsPrint(r) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, s)
	}
	return Character(r), nil
}

// FromByte maps one raw terminal byte. Control bytes other than CR/LF/ESC
// yield false.
func FromByte(b byte) (KeyEvent, bool) {
	switch {
	case b == ' ':
		return Space, true
	case b == '\r' || b == '\n':
		return Enter, true
	case b == 0x1b:
		return Escape, true
	case b > ' ' && b < 0x7f:
		return Character(b), true
	default:
		return nil, false
	}
}

// Package osc encodes the OSC 1.0 messages sent to the mixer: an address
// pattern followed by exactly one int32 argument.
//
// See http://opensoundcontrol.org/spec-1_0.html for the wire format. Bundles,
// time tags and every type tag other than 'i' are deliberately absent.
package osc

import (
	"encoding"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	bit32Size = 4

	// TypeTags is the type tag string of every message this package builds.
	TypeTags = ",i"
)

var (
	ErrEmptyAddress = errors.New("empty address")
	ErrMalformed    = errors.New("malformed message")
)

// Message is a single OSC message carrying one int32 argument.
type Message struct {
	Address string
	Value   int32
}

// Verify that Message implements encoding.BinaryMarshaler.
var _ encoding.BinaryMarshaler = Message{}

// NewMessage returns a new Message. The address parameter is the OSC address.
func NewMessage(addr string, value int32) Message {
	return Message{Address: addr, Value: value}
}

// Encode returns the wire bytes for addr with a single int32 argument.
// Addresses not starting with '/' are written literally.
func Encode(addr string, value int32) []byte {
	return Message{Address: addr, Value: value}.appendBinary(nil)
}

// MarshalBinary serializes the message:
// 1. OSC Address Pattern
// 2. OSC Type Tag String (",i")
// 3. int32 argument, big-endian
func (m Message) MarshalBinary() ([]byte, error) {
	if m.Address == "" {
		return nil, fmt.Errorf("MarshalBinary: %w", ErrEmptyAddress)
	}
	return m.appendBinary(nil), nil
}

// String implements the fmt.Stringer interface.
func (m Message) String() string {
	return fmt.Sprintf("%s %s %d", m.Address, TypeTags, m.Value)
}

func (m Message) appendBinary(b []byte) []byte {
	if b == nil {
		b = make([]byte, 0, paddedLen(len(m.Address))+paddedLen(len(TypeTags))+bit32Size)
	}
	b = appendPaddedString(b, m.Address)
	b = appendPaddedString(b, TypeTags)
	return binary.BigEndian.AppendUint32(b, uint32(m.Value))
}

// Decode parses a message produced by Encode. Anything other than a single
// int32 argument is rejected.
func Decode(data []byte) (Message, error) {
	if len(data) == 0 || len(data)%bit32Size != 0 {
		return Message{}, fmt.Errorf("Decode: length %d: %w", len(data), ErrMalformed)
	}

	addr, n, err := parsePaddedString(data)
	if err != nil {
		return Message{}, fmt.Errorf("Decode: address: %w", err)
	}
	data = data[n:]

	tags, n, err := parsePaddedString(data)
	if err != nil {
		return Message{}, fmt.Errorf("Decode: type tags: %w", err)
	}
	if tags != TypeTags {
		return Message{}, fmt.Errorf("Decode: unsupported type tags %q: %w", tags, ErrMalformed)
	}
	data = data[n:]

	if len(data) != bit32Size {
		return Message{}, fmt.Errorf("Decode: argument of %d bytes: %w", len(data), ErrMalformed)
	}

	return Message{Address: addr, Value: int32(binary.BigEndian.Uint32(data))}, nil
}

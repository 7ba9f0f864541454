// Package store persists the last MIDI mode across restarts.
package store

import (
	"context"
	"errors"
	"sync"

	"github.com/edirooss/logickeys/internal/mixer"
)

// ErrNotFound is returned when no mode was ever saved.
var ErrNotFound = errors.New("midi mode not found")

type Store interface {
	LoadMidiMode(ctx context.Context) (mixer.MidiMode, error)
	SaveMidiMode(ctx context.Context, mode mixer.MidiMode) error
	Close() error
}

// MemoryStore keeps state for the lifetime of the process only.
type MemoryStore struct {
	mu   sync.Mutex
	mode mixer.MidiMode
	set  bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) LoadMidiMode(context.Context) (mixer.MidiMode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		return 0, ErrNotFound
	}
	return s.mode, nil
}

func (s *MemoryStore) SaveMidiMode(_ context.Context, mode mixer.MidiMode) error {
	s.mu.Lock()
	s.mode, s.set = mode, true
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/edirooss/logickeys/internal/mixer"
	"github.com/redis/go-redis/v9"
)

const midiModeKey = "logickeys:midi_mode"

// RedisStore keeps the MIDI mode under a single string key.
type RedisStore struct {
	client *Client
}

func NewRedisStore(client *Client) *RedisStore {
	return &RedisStore{client: client}
}

// LoadMidiMode returns ErrNotFound if the key does not exist.
func (s *RedisStore) LoadMidiMode(ctx context.Context) (mixer.MidiMode, error) {
	raw, err := s.client.Get(ctx, midiModeKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("get: %w", err)
	}

	mode, err := mixer.ParseMidiMode(raw)
	if err != nil {
		return 0, fmt.Errorf("decode %q: %w", raw, err)
	}
	return mode, nil
}

func (s *RedisStore) SaveMidiMode(ctx context.Context, mode mixer.MidiMode) error {
	if err := s.client.Set(ctx, midiModeKey, mode.String(), 0).Err(); err != nil {
		return fmt.Errorf("set: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"nyx-chat/internal/domain/ports/repository"
)

const slotPrefix = "nyx:slot:"

var _ repository.SlotStore = (*SlotStore)(nil)

// SlotStore keeps each slot as one redis string without expiry.
type SlotStore struct {
	client RedisClient
}

func NewSlotStore(client RedisClient) *SlotStore {
	return &SlotStore{client: client}
}

func (s *SlotStore) Load(ctx context.Context, key string) ([]byte, error) {
	b, err := s.client.Fetch(ctx, slotPrefix+key)
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return b, nil
}

func (s *SlotStore) Store(ctx context.Context, key string, value []byte) error {
	if err := s.client.Put(ctx, slotPrefix+key, value); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *SlotStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Remove(ctx, slotPrefix+key); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

func (s *SlotStore) Close() error { return s.client.Close() }

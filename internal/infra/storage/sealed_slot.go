package storage

import (
	"context"
	"fmt"

	"nyx-chat/internal/domain/ports/repository"
	"nyx-chat/internal/infra/security"
)

var _ repository.SlotStore = (*SealedSlot)(nil)

// SealedSlot encrypts values at rest. A value that cannot be opened surfaces as an
// error wrapping security.ErrCiphertext; the session store treats it as malformed.
type SealedSlot struct {
	inner repository.SlotStore
	enc   *security.EncryptionService
}

func NewSealedSlot(inner repository.SlotStore, enc *security.EncryptionService) *SealedSlot {
	return &SealedSlot{inner: inner, enc: enc}
}

func (s *SealedSlot) Load(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.inner.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	pt, err := s.enc.Decrypt(string(raw))
	if err != nil {
		return nil, fmt.Errorf("open slot %s: %w", key, err)
	}
	return []byte(pt), nil
}

func (s *SealedSlot) Store(ctx context.Context, key string, value []byte) error {
	ct, err := s.enc.Encrypt(string(value))
	if err != nil {
		return fmt.Errorf("seal slot %s: %w", key, err)
	}
	return s.inner.Store(ctx, key, []byte(ct))
}

func (s *SealedSlot) Delete(ctx context.Context, key string) error { return s.inner.Delete(ctx, key) }

func (s *SealedSlot) Close() error { return s.inner.Close() }

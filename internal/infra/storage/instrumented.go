package storage

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"nyx-chat/internal/domain/ports/repository"
	"nyx-chat/internal/infra/metrics"
)

var _ repository.SlotStore = (*instrumentedSlot)(nil)

type instrumentedSlot struct {
	inner  repository.SlotStore
	driver string
	log    *zerolog.Logger
}

func newInstrumented(inner repository.SlotStore, driver string, logger *zerolog.Logger) *instrumentedSlot {
	return &instrumentedSlot{inner: inner, driver: driver, log: logger}
}

func (s *instrumentedSlot) observe(op, key string, err error) {
	switch {
	case err == nil:
		metrics.IncStorageOp(s.driver, op, "ok")
	case errors.Is(err, repository.ErrSlotEmpty):
		metrics.IncStorageOp(s.driver, op, "empty")
	default:
		metrics.IncStorageOp(s.driver, op, "error")
		s.log.Debug().Err(err).Str("driver", s.driver).Str("op", op).Str("key", key).Msg("slot operation failed")
	}
}

func (s *instrumentedSlot) Load(ctx context.Context, key string) ([]byte, error) {
	b, err := s.inner.Load(ctx, key)
	s.observe("load", key, err)
	return b, err
}

func (s *instrumentedSlot) Store(ctx context.Context, key string, value []byte) error {
	err := s.inner.Store(ctx, key, value)
	s.observe("store", key, err)
	return err
}

func (s *instrumentedSlot) Delete(ctx context.Context, key string) error {
	err := s.inner.Delete(ctx, key)
	s.observe("delete", key, err)
	return err
}

func (s *instrumentedSlot) Close() error { return s.inner.Close() }

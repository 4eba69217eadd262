package metrics

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/xgacha/internal/kv"
)

// InstrumentedStore 在账本上叠加提交计数与延迟统计
type InstrumentedStore struct {
	inner kv.Store
	m     *GameMetrics
}

var _ kv.Store = (*InstrumentedStore)(nil)

// InstrumentStore 包装账本
func InstrumentStore(inner kv.Store, m *GameMetrics) *InstrumentedStore {
	return &InstrumentedStore{inner: inner, m: m}
}

func (s *InstrumentedStore) Get(ctx context.Context, key string) ([]byte, kv.Version, error) {
	return s.inner.Get(ctx, key)
}

func (s *InstrumentedStore) List(ctx context.Context, prefix string) ([]kv.Entry, error) {
	return s.inner.List(ctx, prefix)
}

func (s *InstrumentedStore) Commit(ctx context.Context, tx *kv.Tx) error {
	start := time.Now()
	err := s.inner.Commit(ctx, tx)

	result := "success"
	switch {
	case errors.Is(err, kv.ErrConflict):
		result = "conflict"
		s.m.LedgerRetries.Inc()
	case err != nil:
		result = "error"
	}

	s.m.LedgerCommits.WithLabelValues(result).Inc()
	s.m.LedgerDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	return err
}

func (s *InstrumentedStore) Close() error {
	return s.inner.Close()
}

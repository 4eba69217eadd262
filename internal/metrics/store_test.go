package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/xgacha/internal/kv"
)

func TestInstrumentedStoreCommit(t *testing.T) {
	ctx := context.Background()

	m := New("test")
	require.NoError(t, m.Register(prometheus.NewRegistry()))
	store := InstrumentStore(kv.NewMemoryStore(), m)

	t.Run("counts successful commits", func(t *testing.T) {
		tx := kv.NewTx()
		tx.Set("k", []byte("v"))
		require.NoError(t, store.Commit(ctx, tx))

		assert.Equal(t, float64(1),
			testutil.ToFloat64(m.LedgerCommits.WithLabelValues("success")))
	})

	t.Run("counts conflicts as retries", func(t *testing.T) {
		tx := kv.NewTx()
		tx.Check("k", kv.Version("stale"))
		tx.Set("k", []byte("v2"))
		require.ErrorIs(t, store.Commit(ctx, tx), kv.ErrConflict)

		assert.Equal(t, float64(1),
			testutil.ToFloat64(m.LedgerCommits.WithLabelValues("conflict")))
		assert.Equal(t, float64(1), testutil.ToFloat64(m.LedgerRetries))
	})

	t.Run("reads pass through untouched", func(t *testing.T) {
		val, ver, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), val)
		assert.NotEqual(t, kv.None, ver)

		entries, err := store.List(ctx, "k")
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})
}

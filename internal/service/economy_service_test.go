package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/xgacha/internal/game"
	"github.com/lk2023060901/xgacha/pkg/logger"
)

func TestBuyPulls(t *testing.T) {
	ctx := context.Background()

	t.Run("spends one token per pull", func(t *testing.T) {
		f := newFixture(t, catalog()...)
		svc := NewEconomyService(logger.NewNoop(), f.core)
		f.seedPlayer(t, "alice", "guild-1")
		f.grantTokens(t, "alice", "guild-1", 5)

		snap, err := svc.BuyPulls(ctx, "alice", "guild-1", 3)
		require.NoError(t, err)
		assert.Equal(t, 2, snap.Player.AvailableTokens)
		assert.Equal(t, 13, snap.Inventory.AvailablePulls)
	})

	t.Run("rejects when tokens run short", func(t *testing.T) {
		f := newFixture(t, catalog()...)
		svc := NewEconomyService(logger.NewNoop(), f.core)
		f.seedPlayer(t, "alice", "guild-1")
		f.grantTokens(t, "alice", "guild-1", 2)

		_, err := svc.BuyPulls(ctx, "alice", "guild-1", 3)
		require.ErrorIs(t, err, game.ErrInsufficientTokens)
		assert.True(t, game.IsBusiness(err))
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		f := newFixture(t, catalog()...)
		svc := NewEconomyService(logger.NewNoop(), f.core)

		_, err := svc.BuyPulls(ctx, "alice", "guild-1", 0)
		require.Error(t, err)
	})

	t.Run("caps the purchased total", func(t *testing.T) {
		f := newFixture(t, catalog()...)
		svc := NewEconomyService(logger.NewNoop(), f.core)
		f.seedPlayer(t, "alice", "guild-1")
		f.grantTokens(t, "alice", "guild-1", 200)

		snap, err := svc.BuyPulls(ctx, "alice", "guild-1", 150)
		require.NoError(t, err)
		assert.Equal(t, 99, snap.Inventory.AvailablePulls)
	})
}

func TestBuyGuarantee(t *testing.T) {
	ctx := context.Background()

	t.Run("buys a five star ticket", func(t *testing.T) {
		f := newFixture(t, catalog()...)
		svc := NewEconomyService(logger.NewNoop(), f.core)
		f.seedPlayer(t, "alice", "guild-1")
		f.grantTokens(t, "alice", "guild-1", 30)

		snap, err := svc.BuyGuarantee(ctx, "alice", "guild-1", 5)
		require.NoError(t, err)
		assert.Equal(t, 2, snap.Player.AvailableTokens)
		assert.True(t, snap.Player.HasGuarantee(5))
	})

	t.Run("rejects when tokens run short", func(t *testing.T) {
		f := newFixture(t, catalog()...)
		svc := NewEconomyService(logger.NewNoop(), f.core)
		f.seedPlayer(t, "alice", "guild-1")
		f.grantTokens(t, "alice", "guild-1", 3)

		_, err := svc.BuyGuarantee(ctx, "alice", "guild-1", 3)
		require.ErrorIs(t, err, game.ErrInsufficientTokens)
	})

	t.Run("rejects unknown tiers", func(t *testing.T) {
		f := newFixture(t, catalog()...)
		svc := NewEconomyService(logger.NewNoop(), f.core)
		f.seedPlayer(t, "alice", "guild-1")
		f.grantTokens(t, "alice", "guild-1", 100)

		_, err := svc.BuyGuarantee(ctx, "alice", "guild-1", 2)
		require.Error(t, err)
	})
}

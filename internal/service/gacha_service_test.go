package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/xgacha/internal/content"
	"github.com/lk2023060901/xgacha/internal/game"
	"github.com/lk2023060901/xgacha/internal/game/gacha"
	"github.com/lk2023060901/xgacha/pkg/logger"
)

func TestPull(t *testing.T) {
	ctx := context.Background()

	t.Run("consumes a pull and stores the character", func(t *testing.T) {
		f := newFixture(t, catalog()...)
		svc := NewGachaService(logger.NewNoop(), f.core, f.resolver)

		result, err := svc.Pull(ctx, "alice", "guild-1")
		require.NoError(t, err)
		require.NotNil(t, result.Character)
		assert.Equal(t, result.Record.CharacterID, result.Character.CharacterID)
		assert.Equal(t, gacha.Rate(result.Record.Role, result.Record.Popularity), result.Rating)

		_, inv := f.seedPlayer(t, "alice", "guild-1")
		assert.Equal(t, 9, inv.AvailablePulls)
		require.NotNil(t, inv.LastPull)

		// 角色真的落在库存里
		chars, err := f.repo.ListCharactersByInventory(ctx, inv.ID)
		require.NoError(t, err)
		require.Len(t, chars, 1)
		assert.Equal(t, result.Character.ID, chars[0].ID)
	})

	t.Run("fails without pulls", func(t *testing.T) {
		f := newFixture(t, catalog()...)
		svc := NewGachaService(logger.NewNoop(), f.core, f.resolver)

		_, inv := f.seedPlayer(t, "alice", "guild-1")
		f.drainPulls(t, inv)

		_, err := svc.Pull(ctx, "alice", "guild-1")
		require.ErrorIs(t, err, game.ErrNoPulls)
		assert.True(t, game.IsBusiness(err))
	})

	t.Run("never repeats a character within a guild", func(t *testing.T) {
		f := newFixture(t, catalog()...)
		svc := NewGachaService(logger.NewNoop(), f.core, f.resolver)

		// 窄池掷空不消耗抽数，跳过继续
		seen := map[string]struct{}{}
		for i := 0; i < 10; i++ {
			result, err := svc.Pull(ctx, "alice", "guild-1")
			if err != nil {
				require.ErrorIs(t, err, game.ErrPoolExhausted)
				continue
			}
			_, dup := seen[result.Record.CharacterID]
			require.False(t, dup, "character %s pulled twice", result.Record.CharacterID)
			seen[result.Record.CharacterID] = struct{}{}
		}
		assert.NotEmpty(t, seen)
	})

	t.Run("exhausted pool does not consume the pull", func(t *testing.T) {
		// 目录里只有一个非主角低热度角色：权重表的任何一掷
		// 都落不到它所在的池子之外的非空池
		f := newFixture(t, content.Record{
			CharacterID: "only-one", MediaID: "media-1",
			Role: content.RoleBackground, Popularity: 70_000,
		})
		svc := NewGachaService(logger.NewNoop(), f.core, f.resolver)

		var sawExhausted bool
		for i := 0; i < 5; i++ {
			result, err := svc.Pull(ctx, "alice", "guild-1")
			if err != nil {
				require.ErrorIs(t, err, game.ErrPoolExhausted)
				sawExhausted = true
				continue
			}
			require.Equal(t, "only-one", result.Record.CharacterID)
		}
		assert.True(t, sawExhausted)

		// 掷空的尝试不计入抽数
		_, inv := f.seedPlayer(t, "alice", "guild-1")
		assert.GreaterOrEqual(t, inv.AvailablePulls, 5)
	})

	t.Run("skips disabled entries", func(t *testing.T) {
		f := newFixture(t, catalog()...)
		f.resolver.Disable("media-high")
		svc := NewGachaService(logger.NewNoop(), f.core, f.resolver)

		for i := 0; i < 10; i++ {
			result, err := svc.Pull(ctx, "alice", "guild-1")
			if err != nil {
				require.ErrorIs(t, err, game.ErrPoolExhausted)
				continue
			}
			assert.NotEqual(t, "media-high", result.Record.MediaID)
		}
	})
}

func TestGuaranteedPull(t *testing.T) {
	ctx := context.Background()

	t.Run("redeems a ticket for the exact tier", func(t *testing.T) {
		f := newFixture(t, catalog()...)
		economy := NewEconomyService(logger.NewNoop(), f.core)
		svc := NewGachaService(logger.NewNoop(), f.core, f.resolver)

		f.seedPlayer(t, "alice", "guild-1")
		f.grantTokens(t, "alice", "guild-1", 28)
		_, err := economy.BuyGuarantee(ctx, "alice", "guild-1", 5)
		require.NoError(t, err)

		result, err := svc.GuaranteedPull(ctx, "alice", "guild-1", 5)
		require.NoError(t, err)
		assert.Equal(t, 5, result.Rating)
		assert.True(t, result.ViaGuarantee)

		// 券已消费，抽数没动
		snap, err := economy.Refresh(ctx, "alice", "guild-1")
		require.NoError(t, err)
		assert.False(t, snap.Player.HasGuarantee(5))
		assert.Equal(t, 10, snap.Inventory.AvailablePulls)
	})

	t.Run("fails without a ticket", func(t *testing.T) {
		f := newFixture(t, catalog()...)
		svc := NewGachaService(logger.NewNoop(), f.core, f.resolver)

		_, err := svc.GuaranteedPull(ctx, "alice", "guild-1", 4)
		require.ErrorIs(t, err, game.ErrNoGuarantee)
	})
}

func TestSynthesize(t *testing.T) {
	ctx := context.Background()

	t.Run("burns five sacrifices for one higher tier", func(t *testing.T) {
		f := newFixture(t, catalog()...)
		svc := NewGachaService(logger.NewNoop(), f.core, f.resolver)
		_, inv := f.seedPlayer(t, "alice", "guild-1")

		for _, id := range []string{"m-1", "m-2", "m-3", "m-4", "m-5"} {
			f.addCharacter(t, inv, id, "media-m", 1)
		}

		result, err := svc.Synthesize(ctx, "alice", "guild-1", gacha.ModeTarget, 2)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Rating)
		assert.True(t, result.ViaSynthesis)

		// 五个素材没了，只剩产物
		chars, err := f.repo.ListCharactersByInventory(ctx, inv.ID)
		require.NoError(t, err)
		require.Len(t, chars, 1)
		assert.Equal(t, result.Character.ID, chars[0].ID)
	})

	t.Run("fails with fewer than five sacrifices", func(t *testing.T) {
		f := newFixture(t, catalog()...)
		svc := NewGachaService(logger.NewNoop(), f.core, f.resolver)
		_, inv := f.seedPlayer(t, "alice", "guild-1")

		f.addCharacter(t, inv, "m-1", "media-m", 1)
		f.addCharacter(t, inv, "m-2", "media-m", 1)

		_, err := svc.Synthesize(ctx, "alice", "guild-1", gacha.ModeTarget, 2)
		require.ErrorIs(t, err, game.ErrInsufficientSacrifices)
	})

	t.Run("liked characters are never burned", func(t *testing.T) {
		f := newFixture(t, catalog()...)
		svc := NewGachaService(logger.NewNoop(), f.core, f.resolver)
		players := NewPlayerService(logger.NewNoop(), f.core)
		_, inv := f.seedPlayer(t, "alice", "guild-1")

		for _, id := range []string{"m-1", "m-2", "m-3", "m-4", "m-5"} {
			f.addCharacter(t, inv, id, "media-m", 1)
		}
		_, err := players.LikeCharacter(ctx, "alice", "guild-1", "m-3")
		require.NoError(t, err)

		_, err = svc.Synthesize(ctx, "alice", "guild-1", gacha.ModeTarget, 2)
		require.ErrorIs(t, err, game.ErrInsufficientSacrifices)
	})

	t.Run("party members are never burned", func(t *testing.T) {
		f := newFixture(t, catalog()...)
		svc := NewGachaService(logger.NewNoop(), f.core, f.resolver)
		party := NewPartyService(logger.NewNoop(), f.core)
		_, inv := f.seedPlayer(t, "alice", "guild-1")

		for _, id := range []string{"m-1", "m-2", "m-3", "m-4", "m-5"} {
			f.addCharacter(t, inv, id, "media-m", 1)
		}
		_, err := party.Assign(ctx, "alice", "guild-1", "m-1", 1)
		require.NoError(t, err)

		_, err = svc.Synthesize(ctx, "alice", "guild-1", gacha.ModeTarget, 2)
		require.ErrorIs(t, err, game.ErrInsufficientSacrifices)
	})
}

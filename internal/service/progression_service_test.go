package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/xgacha/internal/game"
	"github.com/lk2023060901/xgacha/internal/model"
	"github.com/lk2023060901/xgacha/pkg/logger"
)

func TestAcquireSkill(t *testing.T) {
	ctx := context.Background()

	t.Run("learns a skill and persists it", func(t *testing.T) {
		f := newFixture(t, catalog()...)
		svc := NewProgressionService(logger.NewNoop(), f.core)
		_, inv := f.seedPlayer(t, "alice", "guild-1")
		char := f.addCharacter(t, inv, "m-1", "media-m", 3)

		// 角色初始没有技能点，先灌一点进去
		f.grantSkillPoints(t, char.ID, 2)

		updated, err := svc.AcquireSkill(ctx, "alice", "guild-1", "m-1", model.SkillCrit)
		require.NoError(t, err)
		assert.Equal(t, 1, updated.Combat.SkillLevel(model.SkillCrit))
		assert.Equal(t, 0, updated.Combat.SkillPoints)

		fresh, _, err := f.repo.GetCharacter(ctx, char.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, fresh.Combat.SkillLevel(model.SkillCrit))
	})

	t.Run("fails without points", func(t *testing.T) {
		f := newFixture(t, catalog()...)
		svc := NewProgressionService(logger.NewNoop(), f.core)
		_, inv := f.seedPlayer(t, "alice", "guild-1")
		f.addCharacter(t, inv, "m-1", "media-m", 3)

		_, err := svc.AcquireSkill(ctx, "alice", "guild-1", "m-1", model.SkillCrit)
		require.ErrorIs(t, err, game.ErrInsufficientPoints)
	})

	t.Run("fails on unknown skills", func(t *testing.T) {
		f := newFixture(t, catalog()...)
		svc := NewProgressionService(logger.NewNoop(), f.core)
		_, inv := f.seedPlayer(t, "alice", "guild-1")
		char := f.addCharacter(t, inv, "m-1", "media-m", 3)
		f.grantSkillPoints(t, char.ID, 5)

		_, err := svc.AcquireSkill(ctx, "alice", "guild-1", "m-1", "uppercut")
		require.ErrorIs(t, err, game.ErrUnknownSkill)
	})

	t.Run("addresses characters by source id", func(t *testing.T) {
		f := newFixture(t, catalog()...)
		svc := NewProgressionService(logger.NewNoop(), f.core)
		_, inv := f.seedPlayer(t, "alice", "guild-1")
		char := f.addCharacter(t, inv, "m-1", "media-m", 3)
		f.grantSkillPoints(t, char.ID, 2)

		// 记录主键不是对外的寻址方式
		_, err := svc.AcquireSkill(ctx, "alice", "guild-1", char.ID, model.SkillCrit)
		require.ErrorIs(t, err, game.ErrCharacterNotFound)
	})

	t.Run("fails on someone else's character", func(t *testing.T) {
		f := newFixture(t, catalog()...)
		svc := NewProgressionService(logger.NewNoop(), f.core)
		_, bobInv := f.seedPlayer(t, "bob", "guild-1")
		f.addCharacter(t, bobInv, "m-1", "media-m", 3)
		f.seedPlayer(t, "alice", "guild-1")

		_, err := svc.AcquireSkill(ctx, "alice", "guild-1", "m-1", model.SkillCrit)
		require.ErrorIs(t, err, game.ErrCharacterNotOwned)
	})
}

func TestGrantExp(t *testing.T) {
	ctx := context.Background()

	t.Run("levels up across the threshold", func(t *testing.T) {
		f := newFixture(t, catalog()...)
		svc := NewProgressionService(logger.NewNoop(), f.core)
		_, inv := f.seedPlayer(t, "alice", "guild-1")
		char := f.addCharacter(t, inv, "m-1", "media-m", 3)

		statuses, err := svc.GrantExp(ctx, "alice", "guild-1", map[string]int{"m-1": 10})
		require.NoError(t, err)
		require.Len(t, statuses, 1)
		assert.Equal(t, 1, statuses[0].LevelUp)
		assert.Equal(t, 1, statuses[0].SkillPoints)
		assert.Equal(t, 3, statuses[0].StatPoints)

		fresh, _, err := f.repo.GetCharacter(ctx, char.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, fresh.Combat.Level)
	})

	t.Run("stages every grant in one transaction", func(t *testing.T) {
		f := newFixture(t, catalog()...)
		svc := NewProgressionService(logger.NewNoop(), f.core)
		_, inv := f.seedPlayer(t, "alice", "guild-1")
		f.addCharacter(t, inv, "m-1", "media-m", 3)
		f.addCharacter(t, inv, "m-2", "media-m", 3)

		before := f.store.commits.Load()
		statuses, err := svc.GrantExp(ctx, "alice", "guild-1", map[string]int{"m-1": 4, "m-2": 6})
		require.NoError(t, err)
		assert.Len(t, statuses, 2)
		assert.Equal(t, before+1, f.store.commits.Load())
	})
}

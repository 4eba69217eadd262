package service

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/xgacha/internal/game"
	"github.com/lk2023060901/xgacha/internal/game/progression"
	"github.com/lk2023060901/xgacha/internal/kv"
	"github.com/lk2023060901/xgacha/internal/model"
	"github.com/lk2023060901/xgacha/internal/repository"
	"github.com/lk2023060901/xgacha/pkg/logger"
)

// ProgressionService 角色成长：技能习得与经验结算
type ProgressionService struct {
	logger logger.Logger
	core   *Core
}

// NewProgressionService 创建成长服务
func NewProgressionService(l logger.Logger, core *Core) *ProgressionService {
	return &ProgressionService{
		logger: l.Named("service.progression"),
		core:   core,
	}
}

// AcquireSkill 为自己的角色习得或升级技能
// 技能点扣减与等级提升在同一个条件事务里生效
func (s *ProgressionService) AcquireSkill(ctx context.Context, discordID, guildID, characterID, skillKey string) (*model.Character, error) {
	now := s.core.clock.Now()

	var updated *model.Character
	err := kv.Retry(ctx, kv.DefaultAttempts, func(ctx context.Context) error {
		sess, err := s.core.load(ctx, discordID, guildID, now)
		if err != nil {
			return err
		}

		char, ver, err := s.ownedCharacter(ctx, sess, characterID)
		if err != nil {
			return err
		}

		if err := progression.AcquireSkill(&char.Combat, skillKey); err != nil {
			return err
		}

		tx := kv.NewTx()
		if err := s.core.repo.StageCharacter(tx, char, ver); err != nil {
			return err
		}
		if err := s.core.commit(ctx, tx, sess); err != nil {
			return err
		}

		updated = char
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("skill acquired",
		"discordId", discordID, "characterId", characterID,
		"skill", skillKey, "level", updated.Combat.SkillLevel(skillKey))
	return updated, nil
}

// GrantExp 给一组自己的角色结算经验，键为源角色 ID
// 所有角色的升级在同一个事务里落盘
func (s *ProgressionService) GrantExp(ctx context.Context, discordID, guildID string, grants map[string]int) ([]progression.Status, error) {
	now := s.core.clock.Now()

	var statuses []progression.Status
	err := kv.Retry(ctx, kv.DefaultAttempts, func(ctx context.Context) error {
		sess, err := s.core.load(ctx, discordID, guildID, now)
		if err != nil {
			return err
		}

		tx := kv.NewTx()
		statuses = statuses[:0]

		for characterID, amount := range grants {
			char, ver, err := s.ownedCharacter(ctx, sess, characterID)
			if err != nil {
				return err
			}

			status := progression.GainExp(&char.Combat, amount)
			status.CharacterID = char.CharacterID
			statuses = append(statuses, status)

			if err := s.core.repo.StageCharacter(tx, char, ver); err != nil {
				return err
			}
		}

		return s.core.commit(ctx, tx, sess)
	})
	if err != nil {
		return nil, err
	}
	return statuses, nil
}

// ownedCharacter 按 (服务器, 源角色) 取角色并校验归属
func (s *ProgressionService) ownedCharacter(ctx context.Context, sess *session, characterID string) (*model.Character, kv.Version, error) {
	char, ver, err := s.core.repo.GetCharacterByGuildSource(ctx, sess.guildID, characterID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, kv.None, errors.Wrapf(game.ErrCharacterNotFound, "character %s", characterID)
		}
		return nil, kv.None, err
	}
	if char.InventoryID != sess.inv.ID {
		return nil, kv.None, errors.Wrapf(game.ErrCharacterNotOwned, "character %s", characterID)
	}
	return char, ver, nil
}

package service

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/xgacha/internal/game"
	"github.com/lk2023060901/xgacha/internal/kv"
	"github.com/lk2023060901/xgacha/internal/model"
	"github.com/lk2023060901/xgacha/internal/repository"
	"github.com/lk2023060901/xgacha/pkg/logger"
)

// PartyService 队伍编组
type PartyService struct {
	logger logger.Logger
	core   *Core
}

// NewPartyService 创建队伍服务
func NewPartyService(l logger.Logger, core *Core) *PartyService {
	return &PartyService{
		logger: l.Named("service.party"),
		core:   core,
	}
}

// Assign 把自己拥有的角色放进指定槽位（1 起始）
// 角色已在别的槽位时先移出，保证全队不重复
func (s *PartyService) Assign(ctx context.Context, discordID, guildID, characterID string, slot int) (*model.Inventory, error) {
	if slot < 1 || slot > model.PartySize {
		return nil, errors.Wrapf(game.ErrPartySlotInvalid, "slot %d", slot)
	}
	now := s.core.clock.Now()

	var snapshot *model.Inventory
	err := kv.Retry(ctx, kv.DefaultAttempts, func(ctx context.Context) error {
		sess, err := s.core.load(ctx, discordID, guildID, now)
		if err != nil {
			return err
		}

		char, _, err := s.core.repo.GetCharacterByGuildSource(ctx, guildID, characterID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errors.Wrap(game.ErrCharacterNotFound, characterID)
			}
			return err
		}
		if char.InventoryID != sess.inv.ID {
			return errors.Wrap(game.ErrCharacterNotOwned, characterID)
		}

		sess.inv.RemoveFromParty(char.ID)
		sess.inv.Party[slot-1] = char.ID
		sess.invDirty = true

		if err := s.core.commit(ctx, kv.NewTx(), sess); err != nil {
			return err
		}
		snapshot = sess.inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("party member assigned",
		"discordId", discordID, "guildId", guildID,
		"characterId", characterID, "slot", slot)
	return snapshot, nil
}

// Remove 把角色移出队伍；角色不在队里时报未找到
func (s *PartyService) Remove(ctx context.Context, discordID, guildID, characterID string) (*model.Inventory, error) {
	now := s.core.clock.Now()

	var snapshot *model.Inventory
	err := kv.Retry(ctx, kv.DefaultAttempts, func(ctx context.Context) error {
		sess, err := s.core.load(ctx, discordID, guildID, now)
		if err != nil {
			return err
		}

		char, _, err := s.core.repo.GetCharacterByGuildSource(ctx, guildID, characterID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errors.Wrap(game.ErrCharacterNotFound, characterID)
			}
			return err
		}
		if !sess.inv.RemoveFromParty(char.ID) {
			return errors.Wrap(game.ErrCharacterNotFound, characterID)
		}
		sess.invDirty = true

		if err := s.core.commit(ctx, kv.NewTx(), sess); err != nil {
			return err
		}
		snapshot = sess.inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("party member removed",
		"discordId", discordID, "guildId", guildID, "characterId", characterID)
	return snapshot, nil
}

// Clear 清空全部槽位
func (s *PartyService) Clear(ctx context.Context, discordID, guildID string) (*model.Inventory, error) {
	now := s.core.clock.Now()

	var snapshot *model.Inventory
	err := kv.Retry(ctx, kv.DefaultAttempts, func(ctx context.Context) error {
		sess, err := s.core.load(ctx, discordID, guildID, now)
		if err != nil {
			return err
		}

		changed := false
		for i := range sess.inv.Party {
			if sess.inv.Party[i] != "" {
				sess.inv.Party[i] = ""
				changed = true
			}
		}
		if changed {
			sess.invDirty = true
		}

		if err := s.core.commit(ctx, kv.NewTx(), sess); err != nil {
			return err
		}
		snapshot = sess.inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("party cleared", "discordId", discordID, "guildId", guildID)
	return snapshot, nil
}

package service

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/xgacha/internal/game"
	"github.com/lk2023060901/xgacha/internal/kv"
	"github.com/lk2023060901/xgacha/internal/model"
	"github.com/lk2023060901/xgacha/internal/repository"
	"github.com/lk2023060901/xgacha/pkg/logger"
)

// 偷取成功率：基础概率按星级，外加目标不活跃天数的加成，封顶 90%
const (
	stealChanceCap = 90

	inactivityHuge   = 30 // 超过一个月
	inactivityLong   = 14
	inactivityShort  = 7
	inactivityBonus3 = 90
	inactivityBonus2 = 50
	inactivityBonus1 = 25

	// partyProtectionDays 活跃玩家的队伍成员受保护的天数
	partyProtectionDays = 4
)

var stealBaseChance = map[int]int{
	1: 50,
	2: 25,
	3: 15,
	4: 3,
	5: 1,
}

// TradeService 玩家间的角色流转：赠送、交换、偷取
type TradeService struct {
	logger logger.Logger
	core   *Core
}

// NewTradeService 创建交易服务
func NewTradeService(l logger.Logger, core *Core) *TradeService {
	return &TradeService{
		logger: l.Named("service.trade"),
		core:   core,
	}
}

// StealResult 偷取结果
type StealResult struct {
	Won       bool             `json:"won"`
	Chance    int              `json:"chance"`
	Character *model.Character `json:"character,omitempty"`
}

// Trade 在两名玩家之间交换角色，整笔在一个事务里完成
// give 是发起方付出的角色，take 是对方付出的角色（都是内容源 ID）
// 任意一个角色归属不符整笔失败；转移的角色自动移出各自的队伍
func (s *TradeService) Trade(ctx context.Context, discordID, targetDiscordID, guildID string, give, take []string) error {
	if discordID == targetDiscordID {
		return errors.New("cannot trade with yourself")
	}
	if len(give) == 0 && len(take) == 0 {
		return errors.New("nothing to trade")
	}
	now := s.core.clock.Now()

	err := kv.Retry(ctx, kv.DefaultAttempts, func(ctx context.Context) error {
		from, err := s.core.load(ctx, discordID, guildID, now)
		if err != nil {
			return err
		}
		to, err := s.core.load(ctx, targetDiscordID, guildID, now)
		if err != nil {
			return err
		}

		tx := kv.NewTx()
		if err := s.stageTransfers(ctx, tx, from, to, give); err != nil {
			return err
		}
		if err := s.stageTransfers(ctx, tx, to, from, take); err != nil {
			return err
		}

		return s.core.commitAll(ctx, tx, from, to)
	})
	if err != nil {
		return err
	}

	s.logger.Info("trade completed",
		"discordId", discordID, "targetDiscordId", targetDiscordID,
		"guildId", guildID, "gave", len(give), "took", len(take))
	return nil
}

// Give 单方向赠送，语义上是只有一边有筹码的交易
func (s *TradeService) Give(ctx context.Context, discordID, targetDiscordID, guildID string, characterIDs []string) error {
	return s.Trade(ctx, discordID, targetDiscordID, guildID, characterIDs, nil)
}

// Steal 尝试偷取服务器里任意玩家的角色
//
// 成功率由角色星级决定，目标越久没抽卡加成越高；活跃玩家的
// 队伍成员在保护期内不可偷。无论成败都进入冷却
func (s *TradeService) Steal(ctx context.Context, discordID, guildID, characterID string) (*StealResult, error) {
	now := s.core.clock.Now()

	var result *StealResult
	err := kv.Retry(ctx, kv.DefaultAttempts, func(ctx context.Context) error {
		thief, err := s.core.load(ctx, discordID, guildID, now)
		if err != nil {
			return err
		}

		if thief.inv.StealTimestamp != nil {
			ready := thief.inv.StealTimestamp.Add(model.StealCooldownHours * time.Hour)
			return errors.Wrapf(game.ErrOnCooldown, "until %s", ready.Format(time.RFC3339))
		}

		char, cver, err := s.core.repo.GetCharacterByGuildSource(ctx, guildID, characterID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errors.Wrap(game.ErrCharacterNotFound, characterID)
			}
			return err
		}
		if char.InventoryID == thief.inv.ID {
			return errors.Wrap(game.ErrStealProtected, "cannot steal your own character")
		}

		victimInv, victimVer, err := s.core.repo.GetInventoryByID(ctx, char.InventoryID)
		if err != nil {
			return err
		}

		inactive := inactiveDays(victimInv.LastPull, now)
		if victimInv.InParty(char.ID) && inactive < partyProtectionDays {
			return errors.Wrap(game.ErrStealProtected, "character is in an active party")
		}

		chance := stealChance(char.Rating, inactive)

		var won bool
		s.core.withRand(func(r *rand.Rand) {
			won = r.Intn(100) < chance
		})

		// 成败都烧掉这次机会
		ts := now
		thief.inv.StealTimestamp = &ts
		thief.invDirty = true

		tx := kv.NewTx()
		sessions := []*session{thief}

		if won {
			fromInventoryID := char.InventoryID
			char.InventoryID = thief.inv.ID
			if err := s.core.repo.StageCharacterTransfer(tx, char, cver, fromInventoryID); err != nil {
				return err
			}
			victimInv.RemoveFromParty(char.ID)
			// 失主库存始终带版本检查写回，防止保护判断基于过期的队伍
			if err := s.core.repo.StageInventory(tx, victimInv, victimVer); err != nil {
				return err
			}
		}

		if err := s.core.commitAll(ctx, tx, sessions...); err != nil {
			return err
		}

		result = &StealResult{Won: won, Chance: chance}
		if won {
			result.Character = char
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("steal attempted",
		"discordId", discordID, "guildId", guildID,
		"characterId", characterID, "won", result.Won, "chance", result.Chance)
	return result, nil
}

// stageTransfers 校验归属并把角色从 from 转给 to
func (s *TradeService) stageTransfers(ctx context.Context, tx *kv.Tx, from, to *session, characterIDs []string) error {
	for _, id := range characterIDs {
		char, ver, err := s.core.repo.GetCharacterByGuildSource(ctx, from.guildID, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errors.Wrap(game.ErrCharacterNotFound, id)
			}
			return err
		}
		if char.InventoryID != from.inv.ID {
			return errors.Wrap(game.ErrCharacterNotOwned, id)
		}

		if from.inv.RemoveFromParty(char.ID) {
			from.invDirty = true
		}
		if to.inv.RemoveFromParty(char.ID) {
			to.invDirty = true
		}

		fromInventoryID := char.InventoryID
		char.InventoryID = to.inv.ID
		if err := s.core.repo.StageCharacterTransfer(tx, char, ver, fromInventoryID); err != nil {
			return err
		}
	}
	return nil
}

// stealChance 按星级查基础概率并叠加不活跃加成
func stealChance(rating, inactive int) int {
	chance := stealBaseChance[rating]
	switch {
	case inactive > inactivityHuge:
		chance += inactivityBonus3
	case inactive >= inactivityLong:
		chance += inactivityBonus2
	case inactive >= inactivityShort:
		chance += inactivityBonus1
	}
	if chance > stealChanceCap {
		chance = stealChanceCap
	}
	return chance
}

// inactiveDays 距离上次抽卡过去了多少天；从未抽过视为无限久
func inactiveDays(lastPull *time.Time, now time.Time) int {
	if lastPull == nil {
		return math.MaxInt
	}
	return int(now.Sub(*lastPull).Hours() / 24)
}

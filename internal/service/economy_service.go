package service

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/xgacha/internal/game"
	"github.com/lk2023060901/xgacha/internal/kv"
	"github.com/lk2023060901/xgacha/internal/model"
	"github.com/lk2023060901/xgacha/pkg/logger"
)

// EconomyService 资源与商店：回充快照、代币买抽数、保底券
type EconomyService struct {
	logger logger.Logger
	core   *Core
}

// NewEconomyService 创建资源服务
func NewEconomyService(l logger.Logger, core *Core) *EconomyService {
	return &EconomyService{
		logger: l.Named("service.economy"),
		core:   core,
	}
}

// InventorySnapshot 回充结算后的库存视图
type InventorySnapshot struct {
	Inventory *model.Inventory `json:"inventory"`
	Player    *model.Player    `json:"player"`
}

// Refresh 结算回充并返回库存快照
// 没有任何变化时不产生账本写入
func (s *EconomyService) Refresh(ctx context.Context, discordID, guildID string) (*InventorySnapshot, error) {
	now := s.core.clock.Now()

	var snap *InventorySnapshot
	err := kv.Retry(ctx, kv.DefaultAttempts, func(ctx context.Context) error {
		sess, err := s.core.load(ctx, discordID, guildID, now)
		if err != nil {
			return err
		}

		if err := s.core.commit(ctx, kv.NewTx(), sess); err != nil {
			return err
		}

		snap = &InventorySnapshot{Inventory: sess.inv, Player: sess.player}
		return nil
	})
	return snap, err
}

// BuyPulls 用代币购买抽数，一枚代币一抽
// 购买后的总数封顶 99，达到或超过回充上限时清除回充计时
func (s *EconomyService) BuyPulls(ctx context.Context, discordID, guildID string, amount int) (*InventorySnapshot, error) {
	if amount <= 0 {
		return nil, errors.Wrapf(game.ErrInsufficientTokens, "invalid amount %d", amount)
	}

	now := s.core.clock.Now()

	var snap *InventorySnapshot
	err := kv.Retry(ctx, kv.DefaultAttempts, func(ctx context.Context) error {
		sess, err := s.core.load(ctx, discordID, guildID, now)
		if err != nil {
			return err
		}

		if sess.player.AvailableTokens < amount {
			return errors.Wrapf(game.ErrInsufficientTokens,
				"need %d, have %d", amount, sess.player.AvailableTokens)
		}

		sess.player.AvailableTokens -= amount
		sess.inv.AvailablePulls = min(model.PurchasedPullsCap, sess.inv.AvailablePulls+amount)
		if sess.inv.AvailablePulls >= model.MaxPulls {
			sess.inv.PullsTimestamp = nil
		}
		sess.playerDirty = true
		sess.invDirty = true

		if err := s.core.commit(ctx, kv.NewTx(), sess); err != nil {
			return err
		}

		snap = &InventorySnapshot{Inventory: sess.inv, Player: sess.player}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("pulls purchased",
		"discordId", discordID, "guildId", guildID, "amount", amount)
	return snap, nil
}

// guaranteeCosts 保底券价格表
var guaranteeCosts = map[int]int{
	3: model.GuaranteeCost3,
	4: model.GuaranteeCost4,
	5: model.GuaranteeCost5,
}

// BuyGuarantee 用代币购买指定星级的保底券
func (s *EconomyService) BuyGuarantee(ctx context.Context, discordID, guildID string, rating int) (*InventorySnapshot, error) {
	cost, ok := guaranteeCosts[rating]
	if !ok {
		return nil, errors.Wrapf(game.ErrNoGuarantee, "no guarantee sold for rating %d", rating)
	}

	now := s.core.clock.Now()

	var snap *InventorySnapshot
	err := kv.Retry(ctx, kv.DefaultAttempts, func(ctx context.Context) error {
		sess, err := s.core.load(ctx, discordID, guildID, now)
		if err != nil {
			return err
		}

		if sess.player.AvailableTokens < cost {
			return errors.Wrapf(game.ErrInsufficientTokens,
				"need %d, have %d", cost, sess.player.AvailableTokens)
		}

		sess.player.AvailableTokens -= cost
		sess.player.Guarantees = append(sess.player.Guarantees, rating)
		sess.playerDirty = true

		if err := s.core.commit(ctx, kv.NewTx(), sess); err != nil {
			return err
		}

		snap = &InventorySnapshot{Inventory: sess.inv, Player: sess.player}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("guarantee purchased",
		"discordId", discordID, "guildId", guildID, "rating", rating, "cost", cost)
	return snap, nil
}

// Package service 把纯玩法逻辑编排成账本上的原子操作
//
// 每个对外操作遵循同一个模式：入口取一次时间，闭包内从账本读取
// 玩家与库存（顺带惰性创建与回充结算）、执行玩法计算、把所有变更
// 排进同一个事务提交；版本冲突时整个闭包从头重跑，最多五次
package service

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/lk2023060901/xgacha/internal/game"
	"github.com/lk2023060901/xgacha/internal/game/regen"
	"github.com/lk2023060901/xgacha/internal/kv"
	"github.com/lk2023060901/xgacha/internal/metrics"
	"github.com/lk2023060901/xgacha/internal/model"
	"github.com/lk2023060901/xgacha/internal/repository"
	"github.com/lk2023060901/xgacha/pkg/logger"
)

// Core 服务层共享的依赖与读改写骨架
type Core struct {
	log     logger.Logger
	repo    *repository.Repository
	store   kv.Store
	clock   game.Clock
	metrics *metrics.GameMetrics

	// mu 保护 rng：math/rand 的 Rand 不是并发安全的
	mu  sync.Mutex
	rng *rand.Rand
}

// NewCore 创建服务层核心
func NewCore(l logger.Logger, repo *repository.Repository, clock game.Clock, m *metrics.GameMetrics) *Core {
	return &Core{
		log:     l.Named("service"),
		repo:    repo,
		store:   repo.Store(),
		clock:   clock,
		metrics: m,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// withRand 在持锁状态下使用随机源
func (c *Core) withRand(fn func(r *rand.Rand)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.rng)
}

// session 一次操作内加载的玩家上下文
type session struct {
	player  *model.Player
	pver    kv.Version
	inv     *model.Inventory
	iver    kv.Version
	regen   regen.Result
	now     time.Time
	guildID string

	// 操作过程中标脏，提交时决定要不要把记录写回
	playerDirty bool
	invDirty    bool
}

// load 读取（或创建）玩家与库存并结算回充
// 回充结果先留在内存里，和后续的业务变更一起落盘
func (c *Core) load(ctx context.Context, discordID, guildID string, now time.Time) (*session, error) {
	player, pver, err := c.repo.GetPlayerByDiscord(ctx, discordID, func() *model.Player {
		return model.NewPlayer(discordID, now)
	})
	if err != nil {
		return nil, err
	}

	inv, iver, err := c.repo.GetInventory(ctx, player.ID, guildID)
	if err != nil {
		return nil, err
	}

	res := regen.Recharge(inv, player, now)

	return &session{
		player:  player,
		pver:    pver,
		inv:     inv,
		iver:    iver,
		regen:   res,
		now:     now,
		guildID: guildID,
	}, nil
}

// commit 把会话里的脏记录连同调用方追加的写入一并提交
// 没有任何东西要写时直接返回，不触碰账本
func (c *Core) commit(ctx context.Context, tx *kv.Tx, s *session) error {
	return c.commitAll(ctx, tx, s)
}

// commitAll 跨多个会话提交同一个事务（交易、偷取会同时动两边的库存）
func (c *Core) commitAll(ctx context.Context, tx *kv.Tx, sessions ...*session) error {
	regenFlushed := false
	for _, s := range sessions {
		if s.invDirty || s.regen.InventoryChanged {
			if err := c.repo.StageInventory(tx, s.inv, s.iver); err != nil {
				return err
			}
		}
		if s.playerDirty || s.regen.PlayerChanged {
			if err := c.repo.StagePlayer(tx, s.player, s.pver); err != nil {
				return err
			}
		}
		if s.regen.Changed() {
			regenFlushed = true
		}
	}

	if tx.Empty() {
		if c.metrics != nil {
			c.metrics.RegenSkipped.Inc()
		}
		return nil
	}

	if err := c.store.Commit(ctx, tx); err != nil {
		return err
	}
	if c.metrics != nil && regenFlushed {
		c.metrics.RegenWrites.Inc()
	}
	return nil
}

package service

import (
	"context"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/xgacha/internal/content"
	"github.com/lk2023060901/xgacha/internal/game"
	"github.com/lk2023060901/xgacha/internal/kv"
	"github.com/lk2023060901/xgacha/internal/model"
	"github.com/lk2023060901/xgacha/internal/repository"
	"github.com/lk2023060901/xgacha/pkg/logger"
)

// countingStore 统计提交次数，用来验证空操作不落盘
type countingStore struct {
	kv.Store
	commits atomic.Int64
}

func (s *countingStore) Commit(ctx context.Context, tx *kv.Tx) error {
	s.commits.Add(1)
	return s.Store.Commit(ctx, tx)
}

type fixture struct {
	core     *Core
	repo     *repository.Repository
	store    *countingStore
	resolver *content.StaticResolver
	clock    *game.FixedClock
}

func newFixture(t *testing.T, records ...content.Record) *fixture {
	t.Helper()

	codec, err := kv.NewCodec("json", false)
	require.NoError(t, err)

	store := &countingStore{Store: kv.NewMemoryStore()}
	repo := repository.New(store, codec, logger.NewNoop())
	clock := &game.FixedClock{T: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}

	core := NewCore(logger.NewNoop(), repo, clock, nil)
	// 固定随机源，保证用例可复现
	core.rng = rand.New(rand.NewSource(42))

	return &fixture{
		core:     core,
		repo:     repo,
		store:    store,
		resolver: content.NewStaticResolver(records...),
		clock:    clock,
	}
}

func (f *fixture) advance(d time.Duration) {
	f.clock.T = f.clock.T.Add(d)
}

// catalog 覆盖所有身份与热度档的内容目录，每档多个候选，
// 保证任何一次权重掷骰都能落到非空的候选池
func catalog() []content.Record {
	popularities := []int{10_000, 60_000, 150_000, 250_000, 500_000}
	labels := []string{"low", "mid", "high", "top", "peak"}
	variants := []string{"a", "b", "c"}

	var records []content.Record
	for _, role := range []content.Role{content.RoleMain, content.RoleSupporting, content.RoleBackground} {
		for i, pop := range popularities {
			for _, v := range variants {
				records = append(records, content.Record{
					CharacterID: "char-" + string(role) + "-" + labels[i] + "-" + v,
					MediaID:     "media-" + labels[i],
					Name:        string(role) + " " + labels[i] + " " + v,
					MediaTitle:  "series " + labels[i],
					Role:        role,
					Popularity:  pop,
				})
			}
		}
	}
	return records
}

// seedPlayer 触发玩家与库存的惰性创建并返回两者
func (f *fixture) seedPlayer(t *testing.T, discordID, guildID string) (*model.Player, *model.Inventory) {
	t.Helper()
	ctx := context.Background()

	player, _, err := f.repo.GetPlayerByDiscord(ctx, discordID, func() *model.Player {
		return model.NewPlayer(discordID, f.clock.T)
	})
	require.NoError(t, err)

	inv, _, err := f.repo.GetInventory(ctx, player.ID, guildID)
	require.NoError(t, err)
	return player, inv
}

// grantTokens 直接往账本里加代币
func (f *fixture) grantTokens(t *testing.T, discordID, guildID string, amount int) {
	t.Helper()
	ctx := context.Background()

	player, ver, err := f.repo.GetPlayerByDiscord(ctx, discordID, func() *model.Player {
		return model.NewPlayer(discordID, f.clock.T)
	})
	require.NoError(t, err)

	player.AvailableTokens += amount
	tx := kv.NewTx()
	require.NoError(t, f.repo.StagePlayer(tx, player, ver))
	require.NoError(t, f.store.Commit(ctx, tx))
}

// mutateInventory 直接改写账本里的库存记录
func (f *fixture) mutateInventory(t *testing.T, inv *model.Inventory, mutate func(*model.Inventory)) {
	t.Helper()
	ctx := context.Background()

	fresh, ver, err := f.repo.GetInventoryByID(ctx, inv.ID)
	require.NoError(t, err)

	mutate(fresh)
	tx := kv.NewTx()
	require.NoError(t, f.repo.StageInventory(tx, fresh, ver))
	require.NoError(t, f.store.Commit(ctx, tx))
}

// drainPulls 清零可用抽数
func (f *fixture) drainPulls(t *testing.T, inv *model.Inventory) {
	t.Helper()
	f.mutateInventory(t, inv, func(i *model.Inventory) { i.AvailablePulls = 0 })
}

// grantSkillPoints 直接给角色灌技能点
func (f *fixture) grantSkillPoints(t *testing.T, characterID string, points int) {
	t.Helper()
	ctx := context.Background()

	char, ver, err := f.repo.GetCharacter(ctx, characterID)
	require.NoError(t, err)

	char.Combat.SkillPoints += points
	tx := kv.NewTx()
	require.NoError(t, f.repo.StageCharacter(tx, char, ver))
	require.NoError(t, f.store.Commit(ctx, tx))
}

// addCharacter 直接往库存里塞一个角色
func (f *fixture) addCharacter(t *testing.T, inv *model.Inventory, sourceID, mediaID string, rating int) *model.Character {
	t.Helper()
	ctx := context.Background()

	char := model.NewCharacter(sourceID, mediaID, inv.ID, inv.GuildID, rating)
	tx := kv.NewTx()
	require.NoError(t, f.repo.StageNewCharacter(tx, char))
	require.NoError(t, f.store.Commit(ctx, tx))
	return char
}

func TestRefreshSkipsLedgerWhenNothingChanged(t *testing.T) {
	f := newFixture(t, catalog()...)
	svc := NewEconomyService(logger.NewNoop(), f.core)
	ctx := context.Background()

	// 第一次访问会创建玩家与库存
	snap, err := svc.Refresh(ctx, "alice", "guild-1")
	require.NoError(t, err)
	require.Equal(t, model.NewInventoryPulls, snap.Inventory.AvailablePulls)

	// 时间没动，第二次刷新不应产生任何提交
	before := f.store.commits.Load()
	_, err = svc.Refresh(ctx, "alice", "guild-1")
	require.NoError(t, err)
	require.Equal(t, before, f.store.commits.Load())
}

func TestRefreshFlushesRegen(t *testing.T) {
	f := newFixture(t, catalog()...)
	economy := NewEconomyService(logger.NewNoop(), f.core)
	gachaSvc := NewGachaService(logger.NewNoop(), f.core, f.resolver)
	ctx := context.Background()

	_, err := economy.Refresh(ctx, "alice", "guild-1")
	require.NoError(t, err)

	// 抽一次，开局赠送仍然高于回充上限
	_, err = gachaSvc.Pull(ctx, "alice", "guild-1")
	require.NoError(t, err)

	snap, err := economy.Refresh(ctx, "alice", "guild-1")
	require.NoError(t, err)
	require.Equal(t, model.NewInventoryPulls-1, snap.Inventory.AvailablePulls)

	// 开局赠送超过回充上限，时间流逝不应回充
	f.advance(2 * time.Hour)
	snap, err = economy.Refresh(ctx, "alice", "guild-1")
	require.NoError(t, err)
	require.Equal(t, model.NewInventoryPulls-1, snap.Inventory.AvailablePulls)
}

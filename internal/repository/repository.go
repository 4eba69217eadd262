// Package repository 把领域记录映射到资源账本的键空间
//
// 读取返回记录与主键版本，服务层把版本带进事务检查里，
// 由账本的乐观并发保证读改写的一致性
package repository

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/xgacha/internal/kv"
	"github.com/lk2023060901/xgacha/internal/model"
	"github.com/lk2023060901/xgacha/pkg/logger"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("repository: record not found")

// Repository 记录访问层
type Repository struct {
	store kv.Store
	codec kv.Codec
	log   logger.Logger
}

// New 创建记录访问层
func New(store kv.Store, codec kv.Codec, log logger.Logger) *Repository {
	return &Repository{
		store: store,
		codec: codec,
		log:   log.Named("repository"),
	}
}

// Store 暴露底层账本，供服务层提交事务
func (r *Repository) Store() kv.Store {
	return r.store
}

// --- 玩家 ---

// GetPlayer 按主键取玩家
func (r *Repository) GetPlayer(ctx context.Context, id string) (*model.Player, kv.Version, error) {
	var p model.Player
	ver, err := r.get(ctx, userKey(id), &p)
	if err != nil {
		return nil, kv.None, err
	}
	return &p, ver, nil
}

// GetPlayerByDiscord 按外部账号取玩家，不存在时惰性创建
func (r *Repository) GetPlayerByDiscord(ctx context.Context, discordID string, create func() *model.Player) (*model.Player, kv.Version, error) {
	var p model.Player
	_, err := r.get(ctx, userByDiscordKey(discordID), &p)
	if err == nil {
		// 索引副本不带主键版本，回读主记录
		return r.GetPlayer(ctx, p.ID)
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, kv.None, err
	}

	fresh := create()
	tx := kv.NewTx()
	if err := r.stage(tx, fresh, kv.None, userKey(fresh.ID), userByDiscordKey(discordID)); err != nil {
		return nil, kv.None, err
	}
	tx.CheckAbsent(userByDiscordKey(discordID))

	if err := r.store.Commit(ctx, tx); err != nil {
		if errors.Is(err, kv.ErrConflict) {
			// 并发创建，重读胜者
			return r.GetPlayerByDiscord(ctx, discordID, create)
		}
		return nil, kv.None, err
	}

	r.log.Info("created player", "discordId", discordID, "playerId", fresh.ID)
	return r.GetPlayer(ctx, fresh.ID)
}

// StagePlayer 把玩家更新排入事务：检查主键版本，主键与索引一同落盘
func (r *Repository) StagePlayer(tx *kv.Tx, p *model.Player, ver kv.Version) error {
	return r.stage(tx, p, ver, userKey(p.ID), userByDiscordKey(p.DiscordID))
}

// --- 库存 ---

// GetInventoryByID 按主键取库存
func (r *Repository) GetInventoryByID(ctx context.Context, id string) (*model.Inventory, kv.Version, error) {
	var inv model.Inventory
	ver, err := r.get(ctx, inventoryKey(id), &inv)
	if err != nil {
		return nil, kv.None, err
	}
	return &inv, ver, nil
}

// GetInventory 按 (玩家, 服务器) 取库存，不存在时惰性创建
func (r *Repository) GetInventory(ctx context.Context, playerID, guildID string) (*model.Inventory, kv.Version, error) {
	var inv model.Inventory
	_, err := r.get(ctx, inventoryByUserKey(playerID, guildID), &inv)
	if err == nil {
		return r.GetInventoryByID(ctx, inv.ID)
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, kv.None, err
	}

	fresh := model.NewInventory(playerID, guildID)
	tx := kv.NewTx()
	if err := r.StageInventory(tx, fresh, kv.None); err != nil {
		return nil, kv.None, err
	}
	tx.CheckAbsent(inventoryByUserKey(playerID, guildID))

	if err := r.store.Commit(ctx, tx); err != nil {
		if errors.Is(err, kv.ErrConflict) {
			return r.GetInventory(ctx, playerID, guildID)
		}
		return nil, kv.None, err
	}

	r.log.Info("created inventory",
		"playerId", playerID, "guildId", guildID, "inventoryId", fresh.ID)
	return r.GetInventoryByID(ctx, fresh.ID)
}

// StageInventory 把库存更新排入事务
func (r *Repository) StageInventory(tx *kv.Tx, inv *model.Inventory, ver kv.Version) error {
	return r.stage(tx, inv, ver,
		inventoryKey(inv.ID), inventoryByUserKey(inv.PlayerID, inv.GuildID))
}

// --- 角色 ---

// GetCharacter 按主键取角色
func (r *Repository) GetCharacter(ctx context.Context, id string) (*model.Character, kv.Version, error) {
	var c model.Character
	ver, err := r.get(ctx, characterKey(id), &c)
	if err != nil {
		return nil, kv.None, err
	}
	return &c, ver, nil
}

// GetCharacterByGuildSource 按 (服务器, 源角色) 取角色
// 同一源角色在一个服务器里至多存在一份
func (r *Repository) GetCharacterByGuildSource(ctx context.Context, guildID, sourceID string) (*model.Character, kv.Version, error) {
	var c model.Character
	_, err := r.get(ctx, characterByGuildKey(guildID, sourceID), &c)
	if err != nil {
		return nil, kv.None, err
	}
	return r.GetCharacter(ctx, c.ID)
}

// ListCharactersByInventory 列举库存内的角色
func (r *Repository) ListCharactersByInventory(ctx context.Context, inventoryID string) ([]*model.Character, error) {
	entries, err := r.store.List(ctx, characterByInventoryPrefix(inventoryID))
	if err != nil {
		return nil, err
	}

	out := make([]*model.Character, 0, len(entries))
	for _, e := range entries {
		var c model.Character
		if err := r.codec.Unmarshal(e.Value, &c); err != nil {
			return nil, errors.Wrapf(err, "decode character at %s", e.Key)
		}
		out = append(out, &c)
	}
	return out, nil
}

// ListGuildSourceIDs 列举服务器里已被占用的源角色 ID
func (r *Repository) ListGuildSourceIDs(ctx context.Context, guildID string) (map[string]struct{}, error) {
	entries, err := r.store.List(ctx, characterByGuildPrefix(guildID))
	if err != nil {
		return nil, err
	}

	taken := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		var c model.Character
		if err := r.codec.Unmarshal(e.Value, &c); err != nil {
			return nil, errors.Wrapf(err, "decode character at %s", e.Key)
		}
		taken[c.CharacterID] = struct{}{}
	}
	return taken, nil
}

// StageNewCharacter 把新角色排入事务
// 主键与两份索引都要求不存在，同服抢到同一源角色的并发写只会成功一个
func (r *Repository) StageNewCharacter(tx *kv.Tx, c *model.Character) error {
	tx.CheckAbsent(characterByGuildKey(c.GuildID, c.CharacterID))
	return r.stage(tx, c, kv.None,
		characterKey(c.ID),
		characterByInventoryKey(c.InventoryID, c.ID),
		characterByGuildKey(c.GuildID, c.CharacterID))
}

// StageCharacter 把角色更新排入事务，索引副本同步刷新
func (r *Repository) StageCharacter(tx *kv.Tx, c *model.Character, ver kv.Version) error {
	return r.stage(tx, c, ver,
		characterKey(c.ID),
		characterByInventoryKey(c.InventoryID, c.ID),
		characterByGuildKey(c.GuildID, c.CharacterID))
}

// StageCharacterTransfer 把角色移交排入事务
// 旧库存的索引删除与新库存的索引写入在同一事务里完成
func (r *Repository) StageCharacterTransfer(tx *kv.Tx, c *model.Character, ver kv.Version, fromInventoryID string) error {
	tx.Delete(characterByInventoryKey(fromInventoryID, c.ID))
	return r.StageCharacter(tx, c, ver)
}

// StageCharacterDelete 把角色删除排入事务（合成祭品）
func (r *Repository) StageCharacterDelete(tx *kv.Tx, c *model.Character, ver kv.Version) {
	tx.Check(characterKey(c.ID), ver)
	tx.Delete(characterKey(c.ID))
	tx.Delete(characterByInventoryKey(c.InventoryID, c.ID))
	tx.Delete(characterByGuildKey(c.GuildID, c.CharacterID))
}

// --- 内部 ---

func (r *Repository) get(ctx context.Context, key string, out interface{}) (kv.Version, error) {
	value, ver, err := r.store.Get(ctx, key)
	if err != nil {
		return kv.None, err
	}
	if ver == kv.None {
		return kv.None, errors.Wrapf(ErrNotFound, "key %s", key)
	}
	if err := r.codec.Unmarshal(value, out); err != nil {
		return kv.None, errors.Wrapf(err, "decode %s", key)
	}
	return ver, nil
}

// stage 编码记录并排入：主键带版本检查，随后写主键与全部副本
func (r *Repository) stage(tx *kv.Tx, record interface{}, ver kv.Version, primary string, copies ...string) error {
	value, err := r.codec.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "encode record")
	}

	tx.Check(primary, ver)
	tx.Set(primary, value)
	for _, key := range copies {
		if key != primary {
			tx.Set(key, value)
		}
	}
	return nil
}

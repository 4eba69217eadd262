package repository

import "fmt"

// 键空间布局
//
// 主记录带一份或多份反范式化的索引副本，副本与主键在同一事务里写入：
//
//	users:{id}                                   玩家主记录
//	users_by_discord:{discordId}                 玩家副本，按外部账号查
//	inventories:{id}                             库存主记录
//	inventories_by_user:{playerId}:{guildId}     库存副本，按 (玩家, 服务器) 查
//	characters:{id}                              角色主记录
//	characters_by_inventory:{inventoryId}:{id}   角色副本，列举某库存的角色
//	characters_by_guild:{guildId}:{characterId}  角色副本，同服源角色唯一性检查
//
// 读改写只对主键做版本检查：索引副本永远与主键同事务落盘，
// 不会被单独修改
func userKey(id string) string {
	return "users:" + id
}

func userByDiscordKey(discordID string) string {
	return "users_by_discord:" + discordID
}

func inventoryKey(id string) string {
	return "inventories:" + id
}

func inventoryByUserKey(playerID, guildID string) string {
	return fmt.Sprintf("inventories_by_user:%s:%s", playerID, guildID)
}

func characterKey(id string) string {
	return "characters:" + id
}

func characterByInventoryKey(inventoryID, id string) string {
	return fmt.Sprintf("characters_by_inventory:%s:%s", inventoryID, id)
}

func characterByInventoryPrefix(inventoryID string) string {
	return fmt.Sprintf("characters_by_inventory:%s:", inventoryID)
}

func characterByGuildKey(guildID, sourceID string) string {
	return fmt.Sprintf("characters_by_guild:%s:%s", guildID, sourceID)
}

func characterByGuildPrefix(guildID string) string {
	return fmt.Sprintf("characters_by_guild:%s:", guildID)
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// Inventory 玩家在单个服务器内的库存，按 (玩家, 服务器) 惰性创建
type Inventory struct {
	ID       string `json:"id"`
	PlayerID string `json:"playerId"`
	GuildID  string `json:"guildId"`

	// AvailablePulls 可用抽卡次数
	// 回充上限 MaxPulls，购买可临时超出（硬上限 PurchasedPullsCap）
	AvailablePulls int `json:"availablePulls"`
	// PullsTimestamp 抽卡回充计时起点；满额时缺省
	PullsTimestamp *time.Time `json:"pullsTimestamp,omitempty"`

	// AvailableSweeps 可用扫荡次数
	AvailableSweeps int        `json:"availableSweeps"`
	SweepsTimestamp *time.Time `json:"sweepsTimestamp,omitempty"`

	// AvailableKeys 可用钥匙数（爬塔挑战消耗）
	AvailableKeys int        `json:"availableKeys"`
	KeysTimestamp *time.Time `json:"keysTimestamp,omitempty"`

	// FloorsCleared 已通关层数，只增不减
	FloorsCleared int `json:"floorsCleared"`

	// Party 队伍槽位，存角色记录 ID，空字符串表示空位
	Party [PartySize]string `json:"party"`

	// StealTimestamp 抢夺冷却起点；不在冷却中时缺省
	StealTimestamp *time.Time `json:"stealTimestamp,omitempty"`

	// LastPull 最近一次抽卡时间（活跃度统计用）
	LastPull *time.Time `json:"lastPull,omitempty"`
}

// NewInventory 创建库存记录，开局赠送 NewInventoryPulls 次抽卡
func NewInventory(playerID, guildID string) *Inventory {
	return &Inventory{
		ID:              uuid.NewString(),
		PlayerID:        playerID,
		GuildID:         guildID,
		AvailablePulls:  NewInventoryPulls,
		AvailableSweeps: MaxSweeps,
		AvailableKeys:   MaxKeys,
	}
}

// PartyMembers 返回非空的队伍成员 ID，保持槽位顺序
func (i *Inventory) PartyMembers() []string {
	members := make([]string, 0, PartySize)
	for _, id := range i.Party {
		if id != "" {
			members = append(members, id)
		}
	}
	return members
}

// InParty 角色是否在队伍中
func (i *Inventory) InParty(characterID string) bool {
	for _, id := range i.Party {
		if id == characterID {
			return true
		}
	}
	return false
}

// RemoveFromParty 将角色从队伍中移除（所有权变更时自动清位）
// 返回是否发生了移除
func (i *Inventory) RemoveFromParty(characterID string) bool {
	removed := false
	for slot, id := range i.Party {
		if id == characterID {
			i.Party[slot] = ""
			removed = true
		}
	}
	return removed
}

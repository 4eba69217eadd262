package model

import (
	"github.com/google/uuid"
)

// Stats 战斗三维与生命值
type Stats struct {
	Attack  int `json:"attack"`
	Defense int `json:"defense"`
	Speed   int `json:"speed"`
	HP      int `json:"hp"`
	MaxHP   int `json:"maxHp"`
}

// Sum 基础三维之和（属性分配的配额依据）
func (s Stats) Sum() int {
	return s.Attack + s.Defense + s.Speed
}

// Combat 角色的成长状态，抽取时按稀有度初始化
type Combat struct {
	// BaseStats 出厂三维，升级分配不回写此处
	BaseStats Stats `json:"baseStats"`
	// CurStats 当前三维（含升级分配与升级回血）
	CurStats Stats `json:"curStats"`

	Level int `json:"level"`
	Exp   int `json:"exp"`

	// SkillPoints 未消耗技能点
	SkillPoints int `json:"skillPoints"`
	// Skills 已习得技能等级，键为技能 key
	Skills map[string]int `json:"skills,omitempty"`
}

// SkillLevel 已习得技能的等级，未习得返回 0
func (c *Combat) SkillLevel(key string) int {
	if c.Skills == nil {
		return 0
	}
	return c.Skills[key]
}

// Character 抽取到的角色记录，归属于某个库存
type Character struct {
	ID          string `json:"id"`
	CharacterID string `json:"characterId"`
	MediaID     string `json:"mediaId"`
	InventoryID string `json:"inventoryId"`
	GuildID     string `json:"guildId"`

	// Rating 稀有度 1-5，抽取时确定后不变
	Rating int `json:"rating"`

	// Nickname / Image 玩家自定义展示项
	Nickname string `json:"nickname,omitempty"`
	Image    string `json:"image,omitempty"`

	Combat Combat `json:"combat"`
}

// NewCharacter 创建角色记录并按稀有度初始化战斗状态：
// 三维各为稀有度值，生命值为稀有度的十倍
func NewCharacter(characterID, mediaID, inventoryID, guildID string, rating int) *Character {
	base := Stats{
		Attack:  rating,
		Defense: rating,
		Speed:   rating,
		HP:      rating * 10,
		MaxHP:   rating * 10,
	}
	return &Character{
		ID:          uuid.NewString(),
		CharacterID: characterID,
		MediaID:     mediaID,
		InventoryID: inventoryID,
		GuildID:     guildID,
		Rating:      rating,
		Combat: Combat{
			BaseStats: base,
			CurStats:  base,
			Level:     1,
		},
	}
}

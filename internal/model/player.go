package model

import (
	"time"

	"github.com/google/uuid"
)

// Like 玩家收藏的角色或媒体引用
// 两个字段二选一
type Like struct {
	CharacterID string `json:"characterId,omitempty"`
	MediaID     string `json:"mediaId,omitempty"`
}

// Player 玩家账号记录，跨服务器共享
// 首次引用时创建，永不删除
type Player struct {
	ID        string `json:"id"`
	DiscordID string `json:"discordId"`

	// AvailableTokens 每日代币余额
	AvailableTokens int `json:"availableTokens"`
	// Guarantees 尚未消费的保底券（每张是 1-5 的星级）
	Guarantees []int `json:"guarantees"`
	// DailyTimestamp 上次发放每日代币的时间
	DailyTimestamp time.Time `json:"dailyTimestamp"`
	// Likes 收藏列表
	Likes []Like `json:"likes"`
}

// NewPlayer 创建玩家记录
func NewPlayer(discordID string, now time.Time) *Player {
	return &Player{
		ID:             uuid.NewString(),
		DiscordID:      discordID,
		DailyTimestamp: now,
		Guarantees:     []int{},
		Likes:          []Like{},
	}
}

// HasGuarantee 是否持有指定星级的保底券
func (p *Player) HasGuarantee(rating int) bool {
	for _, g := range p.Guarantees {
		if g == rating {
			return true
		}
	}
	return false
}

// ConsumeGuarantee 消费一张指定星级的保底券
// 不存在时返回 false
func (p *Player) ConsumeGuarantee(rating int) bool {
	for i, g := range p.Guarantees {
		if g == rating {
			p.Guarantees = append(p.Guarantees[:i], p.Guarantees[i+1:]...)
			return true
		}
	}
	return false
}

// LikesCharacter 是否收藏了指定角色
func (p *Player) LikesCharacter(characterID string) bool {
	for _, l := range p.Likes {
		if l.CharacterID == characterID {
			return true
		}
	}
	return false
}

// LikesMedia 是否收藏了指定媒体
func (p *Player) LikesMedia(mediaID string) bool {
	for _, l := range p.Likes {
		if l.MediaID != "" && l.MediaID == mediaID {
			return true
		}
	}
	return false
}

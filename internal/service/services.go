package service

import (
	"github.com/lk2023060901/xgacha/internal/content"
	"github.com/lk2023060901/xgacha/pkg/logger"
)

// Services 进程内 API 的聚合入口
// 嵌入方（机器人、命令行等）通过它访问全部玩法操作
type Services struct {
	Economy     *EconomyService
	Gacha       *GachaService
	Progression *ProgressionService
	Tower       *TowerService
	Party       *PartyService
	Trade       *TradeService
	Player      *PlayerService
}

// NewServices 在同一个核心上装配所有服务
func NewServices(l logger.Logger, core *Core, resolver content.Resolver) *Services {
	return &Services{
		Economy:     NewEconomyService(l, core),
		Gacha:       NewGachaService(l, core, resolver),
		Progression: NewProgressionService(l, core),
		Tower:       NewTowerService(l, core, resolver),
		Party:       NewPartyService(l, core),
		Trade:       NewTradeService(l, core),
		Player:      NewPlayerService(l, core),
	}
}

package model

// 资源与成长相关的全局常量
const (
	// MaxPulls 抽卡次数回充上限
	MaxPulls = 5
	// NewInventoryPulls 新建库存的初始抽卡次数（高于回充上限的开局赠送）
	NewInventoryPulls = 10
	// PurchasedPullsCap 购买抽卡次数后的硬上限
	PurchasedPullsCap = 99

	// MaxSweeps 扫荡次数回充上限
	MaxSweeps = 5
	// MaxKeys 钥匙回充上限
	MaxKeys = 5

	// RechargePullsMins 抽卡回充间隔（分钟）
	RechargePullsMins = 30
	// RechargeSweepsMins 扫荡回充间隔（分钟）
	RechargeSweepsMins = 60
	// RechargeKeysMins 钥匙回充间隔（分钟）
	RechargeKeysMins = 10

	// DailyTokensHours 每日代币发放窗口（小时）
	DailyTokensHours = 12

	// StealCooldownHours 抢夺冷却（小时）
	StealCooldownHours = 72

	// MaxLevel 角色等级上限
	MaxLevel = 10
	// MaxFloors 爬塔层数上限
	MaxFloors = 20

	// PartySize 队伍槽位数
	PartySize = 5

	// MinRating / MaxRating 星级范围
	MinRating = 1
	MaxRating = 5
)

// 保底券购买价格（代币）
const (
	GuaranteeCost3 = 4
	GuaranteeCost4 = 12
	GuaranteeCost5 = 28
)

// Package regen 实现资源回充的纯计算
//
// 回充是惰性的：任何读到库存的入口先调用 Recharge，
// 按时间差补足抽卡/扫荡/钥匙、发放每日代币、清除过期的抢夺冷却。
// 没有任何变化时 Result 全假，调用方据此跳过账本写入。
package regen

import (
	"time"

	"github.com/lk2023060901/xgacha/internal/model"
)

// Result 回充结果，指示哪些记录需要写回
type Result struct {
	InventoryChanged bool
	PlayerChanged    bool

	PullsGained  int
	SweepsGained int
	KeysGained   int
	TokensGained int
	StealReset   bool
}

// Changed 是否产生了任何变化
func (r Result) Changed() bool {
	return r.InventoryChanged || r.PlayerChanged
}

// Recharge 按 now 与各时间戳的差额就地回充库存与玩家记录
//
// 时间戳语义：低于上限时存在并指向计时起点，达到上限时清除。
// 回充只消耗整数个间隔，余下的进度通过把时间戳前移
// 已消耗间隔的整倍数保留下来
func Recharge(inv *model.Inventory, p *model.Player, now time.Time) Result {
	var res Result

	pullsTS := orNow(inv.PullsTimestamp, now)
	sweepsTS := orNow(inv.SweepsTimestamp, now)
	keysTS := orNow(inv.KeysTimestamp, now)

	newPulls := refillable(inv.AvailablePulls, model.MaxPulls, pullsTS, now, model.RechargePullsMins)
	newSweeps := refillable(inv.AvailableSweeps, model.MaxSweeps, sweepsTS, now, model.RechargeSweepsMins)
	newKeys := refillable(inv.AvailableKeys, model.MaxKeys, keysTS, now, model.RechargeKeysMins)

	grantDaily := now.Sub(p.DailyTimestamp) >= model.DailyTokensHours*time.Hour

	resetSteal := inv.StealTimestamp != nil &&
		now.Sub(*inv.StealTimestamp) >= model.StealCooldownHours*time.Hour

	if newPulls == 0 && newSweeps == 0 && newKeys == 0 && !grantDaily && !resetSteal {
		return res
	}

	// 缺失的时间戳在本次写入中补上（低于上限时必须存在）
	materialized := (inv.PullsTimestamp == nil && inv.AvailablePulls+newPulls < model.MaxPulls) ||
		(inv.SweepsTimestamp == nil && inv.AvailableSweeps+newSweeps < model.MaxSweeps) ||
		(inv.KeysTimestamp == nil && inv.AvailableKeys+newKeys < model.MaxKeys)

	if newPulls > 0 || newSweeps > 0 || newKeys > 0 || resetSteal || materialized {
		res.InventoryChanged = true
	}

	inv.AvailablePulls = min(model.PurchasedPullsCap, inv.AvailablePulls+newPulls)
	inv.AvailableSweeps = min(model.PurchasedPullsCap, inv.AvailableSweeps+newSweeps)
	inv.AvailableKeys = min(model.PurchasedPullsCap, inv.AvailableKeys+newKeys)
	res.PullsGained = newPulls
	res.SweepsGained = newSweeps
	res.KeysGained = newKeys

	inv.PullsTimestamp = advance(inv.AvailablePulls, model.MaxPulls, pullsTS, newPulls, model.RechargePullsMins)
	inv.SweepsTimestamp = advance(inv.AvailableSweeps, model.MaxSweeps, sweepsTS, newSweeps, model.RechargeSweepsMins)
	inv.KeysTimestamp = advance(inv.AvailableKeys, model.MaxKeys, keysTS, newKeys, model.RechargeKeysMins)

	if grantDaily {
		p.AvailableTokens += DailyTokens(now)
		p.DailyTimestamp = now
		res.TokensGained = DailyTokens(now)
		res.PlayerChanged = true
	}

	if resetSteal {
		inv.StealTimestamp = nil
		res.StealReset = true
	}

	return res
}

// DailyTokens 每日代币数，周五至周日（UTC）加量
func DailyTokens(now time.Time) int {
	switch now.UTC().Weekday() {
	case time.Friday, time.Saturday, time.Sunday:
		return 3
	default:
		return 2
	}
}

// refillable 按整数间隔计算可补足的数量，不超过到上限的缺口
func refillable(current, limit int, since, now time.Time, intervalMins int) int {
	if current >= limit {
		return 0
	}
	elapsed := int(now.Sub(since) / (time.Duration(intervalMins) * time.Minute))
	if elapsed < 0 {
		elapsed = 0
	}
	return min(limit-current, elapsed)
}

// advance 计算回充后的时间戳：仍低于上限时前移已消耗的整数间隔，
// 达到上限时清除
func advance(current, limit int, since time.Time, gained, intervalMins int) *time.Time {
	if current >= limit {
		return nil
	}
	t := since.Add(time.Duration(gained) * time.Duration(intervalMins) * time.Minute)
	return &t
}

func orNow(ts *time.Time, now time.Time) time.Time {
	if ts != nil {
		return *ts
	}
	return now
}

package regen

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/xgacha/internal/model"
)

// 周一 12:00 UTC
var monday = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newFixture(now time.Time) (*model.Inventory, *model.Player) {
	p := model.NewPlayer("user-1", now)
	inv := model.NewInventory(p.ID, "guild-1")
	return inv, p
}

func TestRechargePulls(t *testing.T) {
	t.Run("partial refill advances timestamp", func(t *testing.T) {
		inv, p := newFixture(monday)
		inv.AvailablePulls = 1
		ts := monday
		inv.PullsTimestamp = &ts

		now := monday.Add(75 * time.Minute) // 两个整间隔 + 15 分钟余量
		res := Recharge(inv, p, now)

		assert.True(t, res.InventoryChanged)
		assert.Equal(t, 2, res.PullsGained)
		assert.Equal(t, 3, inv.AvailablePulls)
		require.NotNil(t, inv.PullsTimestamp)
		// 时间戳只前移整间隔，余下的 15 分钟进度保留
		assert.Equal(t, monday.Add(60*time.Minute), *inv.PullsTimestamp)
	})

	t.Run("refill to cap clears timestamp", func(t *testing.T) {
		inv, p := newFixture(monday)
		inv.AvailablePulls = 3
		ts := monday
		inv.PullsTimestamp = &ts

		res := Recharge(inv, p, monday.Add(61*time.Minute))

		assert.True(t, res.InventoryChanged)
		assert.Equal(t, 2, res.PullsGained)
		assert.Equal(t, model.MaxPulls, inv.AvailablePulls)
		assert.Nil(t, inv.PullsTimestamp)
	})

	t.Run("above cap never refills", func(t *testing.T) {
		inv, p := newFixture(monday)
		inv.AvailablePulls = 10 // 新库存赠送高于回充上限

		res := Recharge(inv, p, monday.Add(10*time.Hour))

		assert.Equal(t, 0, res.PullsGained)
		assert.Equal(t, 10, inv.AvailablePulls)
	})
}

func TestRechargeKeysAndSweeps(t *testing.T) {
	inv, p := newFixture(monday)
	inv.AvailableKeys = 2
	inv.AvailableSweeps = 4
	keysTS := monday
	sweepsTS := monday
	inv.KeysTimestamp = &keysTS
	inv.SweepsTimestamp = &sweepsTS

	res := Recharge(inv, p, monday.Add(65*time.Minute))

	// 钥匙每 10 分钟一把：6 个间隔但缺口只有 3
	assert.Equal(t, 3, res.KeysGained)
	assert.Equal(t, model.MaxKeys, inv.AvailableKeys)
	assert.Nil(t, inv.KeysTimestamp)

	// 扫荡每 60 分钟一次
	assert.Equal(t, 1, res.SweepsGained)
	assert.Equal(t, model.MaxSweeps, inv.AvailableSweeps)
	assert.Nil(t, inv.SweepsTimestamp)
}

func TestRechargeNoChange(t *testing.T) {
	t.Run("full inventory inside daily window", func(t *testing.T) {
		inv, p := newFixture(monday)
		inv.AvailablePulls = model.MaxPulls

		res := Recharge(inv, p, monday.Add(5*time.Minute))

		assert.False(t, res.Changed())
		assert.False(t, res.InventoryChanged)
		assert.False(t, res.PlayerChanged)
	})

	t.Run("below cap but interval not elapsed", func(t *testing.T) {
		inv, p := newFixture(monday)
		inv.AvailablePulls = 2
		ts := monday
		inv.PullsTimestamp = &ts

		res := Recharge(inv, p, monday.Add(29*time.Minute))

		assert.False(t, res.Changed())
		assert.Equal(t, 2, inv.AvailablePulls)
		assert.Equal(t, monday, *inv.PullsTimestamp)
	})
}

func TestDailyTokens(t *testing.T) {
	tests := []struct {
		name string
		day  time.Time
		want int
	}{
		{"monday", monday, 2},
		{"thursday", monday.Add(3 * 24 * time.Hour), 2},
		{"friday", monday.Add(4 * 24 * time.Hour), 3},
		{"saturday", monday.Add(5 * 24 * time.Hour), 3},
		{"sunday", monday.Add(6 * 24 * time.Hour), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DailyTokens(tt.day))
		})
	}
}

func TestRechargeDailyGrant(t *testing.T) {
	t.Run("grants after window", func(t *testing.T) {
		inv, p := newFixture(monday)
		inv.AvailablePulls = model.MaxPulls

		now := monday.Add(12 * time.Hour)
		res := Recharge(inv, p, now)

		assert.True(t, res.PlayerChanged)
		assert.Equal(t, 2, res.TokensGained)
		assert.Equal(t, 2, p.AvailableTokens)
		assert.Equal(t, now, p.DailyTimestamp)
	})

	t.Run("weekend grant is larger", func(t *testing.T) {
		inv, p := newFixture(monday)
		inv.AvailablePulls = model.MaxPulls

		now := monday.Add(4*24*time.Hour + 12*time.Hour) // 周五
		res := Recharge(inv, p, now)

		assert.Equal(t, 3, res.TokensGained)
	})

	t.Run("no grant inside window", func(t *testing.T) {
		inv, p := newFixture(monday)
		inv.AvailablePulls = model.MaxPulls

		res := Recharge(inv, p, monday.Add(11*time.Hour))

		assert.False(t, res.PlayerChanged)
		assert.Equal(t, 0, p.AvailableTokens)
	})
}

func TestRechargeStealCooldown(t *testing.T) {
	t.Run("expired cooldown cleared", func(t *testing.T) {
		inv, p := newFixture(monday)
		inv.AvailablePulls = model.MaxPulls
		ts := monday.Add(-73 * time.Hour)
		inv.StealTimestamp = &ts

		res := Recharge(inv, p, monday)

		assert.True(t, res.StealReset)
		assert.True(t, res.InventoryChanged)
		assert.Nil(t, inv.StealTimestamp)
	})

	t.Run("active cooldown kept", func(t *testing.T) {
		inv, p := newFixture(monday)
		inv.AvailablePulls = model.MaxPulls
		ts := monday.Add(-10 * time.Hour)
		inv.StealTimestamp = &ts

		res := Recharge(inv, p, monday)

		assert.False(t, res.Changed())
		require.NotNil(t, inv.StealTimestamp)
	})
}

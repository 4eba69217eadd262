// Package gacha 实现抽卡核心：权重表、星级判定、候选池选取与合成
package gacha

import (
	"math/rand"

	"github.com/lk2023060901/xgacha/internal/content"
)

// PopularityRange 热度区间，Max<=0 表示无上限
type PopularityRange struct {
	Min int
	Max int
}

// 抽签表：定位 10/70/20，热度区间 6/50/40/3/1
var (
	roleTable = MustWeightedTable(map[int]content.Role{
		10: content.RoleMain,
		70: content.RoleSupporting,
		20: content.RoleBackground,
	})

	rangeTable = MustWeightedTable(map[int]PopularityRange{
		6:  {Min: 0, Max: 50_000},
		50: {Min: 50_000, Max: 100_000},
		40: {Min: 100_000, Max: 200_000},
		3:  {Min: 200_000, Max: 400_000},
		1:  {Min: 400_000, Max: 0},
	})
)

// Variables 一次抽取的池参数
type Variables struct {
	Role  content.Role
	Range PopularityRange
}

// Roll 抽取池参数
//
// 低热度区间强制取 MAIN：该区间的媒体大多只录入主角，
// 其他定位会导致空池
func Roll(r *rand.Rand) Variables {
	role := roleTable.Draw(r)
	rng := rangeTable.Draw(r)

	if rng.Min == 0 {
		role = content.RoleMain
	}

	return Variables{Role: role, Range: rng}
}

// Rate 按定位与热度判定星级
func Rate(role content.Role, popularity int) int {
	if role == content.RoleBackground || popularity < 50_000 {
		return 1
	}

	if popularity < 200_000 {
		if role == content.RoleMain {
			return 3
		}
		return 2
	}

	if popularity < 400_000 {
		if role == content.RoleMain {
			return 4
		}
		return 3
	}

	if role == content.RoleMain {
		return 5
	}
	return 4
}

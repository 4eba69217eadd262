// Package tower 实现爬塔：确定性敌方生成、层数经验与战斗推演
package tower

import (
	"math"

	"github.com/lk2023060901/xgacha/internal/model"
)

// FloorExp 层数的基础经验值
// 每十层为一个循环，循环内 1-4 层 1 点、第 5 层 2 点、
// 6-9 层 1.5 点、第 10 层 3 点，整体乘以所在十层段的序号
func FloorExp(floor int) float64 {
	base := float64(tierMultiplier(floor))

	switch floor % 10 {
	case 1, 2, 3, 4:
		return 1 * base
	case 5:
		return 2 * base
	case 6, 7, 8, 9:
		return 1.5 * base
	default: // 0
		return 3 * base
	}
}

// 经验分配倍率：队长拿全额，其余成员减半；扫荡再减半
const (
	ExpLeadMultiplier     = 1.0
	ExpMemberMultiplier   = 0.5
	SweepLeadMultiplier   = 0.5
	SweepMemberMultiplier = 0.25
)

// ExpGain 按倍率换算为整数经验
func ExpGain(floor int, multiplier float64) int {
	return int(math.Round(FloorExp(floor) * multiplier))
}

// EnemyRating 层数对应的敌方星级，每十层循环一次
func EnemyRating(floor int) int {
	switch floor % 10 {
	case 1, 2, 3:
		return 1
	case 4, 6:
		return 2
	case 7, 8, 9:
		return 3
	case 5:
		return 4
	default: // 0
		return 5
	}
}

// EnemySkillSlots 敌方技能槽数量，每五层加一
func EnemySkillSlots(floor int) int {
	return floor / 5
}

// EnemyMaxSkillLevel 敌方技能等级上限，最低为 1
func EnemyMaxSkillLevel(floor int) int {
	return max(1, floor/5)
}

func tierMultiplier(floor int) int {
	if floor <= 0 {
		return 1
	}
	if floor%10 == 0 {
		return floor / 10
	}
	return floor/10 + 1
}

// Enemy 生成的敌方单位
type Enemy struct {
	Rating int            `json:"rating"`
	Stats  model.Stats    `json:"stats"`
	Skills map[string]int `json:"skills,omitempty"`
}

// GenerateEnemy 生成楼层敌人，同一 (floor, 种子序列) 的结果逐字节一致
//
// 属性池为星级的三倍，逐点按种子化的 0-2 抽签落在攻击/防御/速度上，
// 再按 √floor 放大取整；防御与生命共用同一个放大值，下限 1。
// 调用方可以用同一个 r 继续做敌方形象选取，保持整条序列可复现
func GenerateEnemy(floor int, r *Rand) Enemy {
	rating := EnemyRating(floor)

	var attack, defense, speed int
	for i := 0; i < rating*3; i++ {
		switch r.Intn(3) {
		case 0:
			attack++
		case 1:
			defense++
		default:
			speed++
		}
	}

	scale := math.Sqrt(float64(floor))
	attack = int(math.Round(float64(attack) * scale))
	speed = int(math.Round(float64(speed) * scale))
	defense = max(1, int(math.Round(float64(defense)*scale)))

	enemy := Enemy{
		Rating: rating,
		Stats: model.Stats{
			Attack:  attack,
			Defense: defense,
			Speed:   speed,
			HP:      defense,
			MaxHP:   defense,
		},
	}

	slots := EnemySkillSlots(floor)
	if slots > 0 {
		maxLevel := EnemyMaxSkillLevel(floor)
		keys := model.SkillKeys()
		enemy.Skills = make(map[string]int, slots)
		for i := 0; i < slots; i++ {
			key := keys[r.Intn(len(keys))]
			if _, taken := enemy.Skills[key]; taken {
				continue
			}
			enemy.Skills[key] = 1 + r.Intn(maxLevel)
		}
	}

	return enemy
}

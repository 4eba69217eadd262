// Package progression 实现角色成长：经验曲线、属性分配与技能习得
package progression

import (
	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/xgacha/internal/game"
	"github.com/lk2023060901/xgacha/internal/model"
)

// Status 一次经验结算的汇总，供展示层直接使用
type Status struct {
	CharacterID string `json:"characterId"`
	LevelUp     int    `json:"levelUp"`
	SkillPoints int    `json:"skillPoints"`
	StatPoints  int    `json:"statPoints"`
	Exp         int    `json:"exp"`
	ExpToLevel  int    `json:"expToLevel"`
	ExpGained   int    `json:"expGained"`
}

// ExperienceToNextLevel 升到下一级所需经验
func ExperienceToNextLevel(level int) int {
	if level < 0 {
		return 0
	}
	return level * 10
}

// GainExp 结算经验并就地升级
//
// 每升一级固定获得 1 技能点与 3 属性点，随后按当前等级套用一次
// 阶段加成（首个命中的分支生效）。属性点按基础三维占比立即分配
func GainExp(c *model.Combat, amount int) Status {
	status := Status{ExpGained: amount}

	c.Exp += amount

	for c.Exp >= ExperienceToNextLevel(c.Level) && c.Level < model.MaxLevel {
		c.Exp -= ExperienceToNextLevel(c.Level)

		c.Level++
		c.SkillPoints++
		status.LevelUp++
		status.SkillPoints++
		status.StatPoints += 3

		// 阶段加成
		if c.Level >= 10 {
			c.SkillPoints++
			status.SkillPoints++
			status.StatPoints += 3 * 2
		} else if c.Level >= 20 {
			c.SkillPoints += 2
			status.SkillPoints += 2
			status.StatPoints += 3 * 3
		} else if c.Level >= 40 {
			c.SkillPoints += 3
			status.SkillPoints += 3
			status.StatPoints += 3 * 5
		}
	}

	status.Exp = c.Exp
	status.ExpToLevel = ExperienceToNextLevel(c.Level)

	if status.StatPoints > 0 {
		DistributeNewStats(c, status.StatPoints, status.LevelUp)
	}

	return status
}

// DistributeNewStats 按基础三维占比分配新属性点
//
// 三个占比独立四舍五入，随后用平衡循环修正到恰好等于配额：
// 超额时递减严格最大者，不足时递增严格最小者，
// 平手兜底顺序为攻击、防御、速度。每升一级额外 +5 生命与上限
func DistributeNewStats(c *model.Combat, newPoints, levelsGained int) {
	sum := c.BaseStats.Sum()
	if sum == 0 {
		panic(errors.AssertionFailedf("character has zero base stats"))
	}

	attack := roundShare(c.BaseStats.Attack, sum, newPoints)
	defense := roundShare(c.BaseStats.Defense, sum, newPoints)
	speed := roundShare(c.BaseStats.Speed, sum, newPoints)

	for attack+defense+speed > newPoints {
		switch {
		case attack > defense && attack > speed:
			attack--
		case defense > attack && defense > speed:
			defense--
		default:
			speed--
		}
	}

	for attack+defense+speed < newPoints {
		switch {
		case attack < defense && attack < speed:
			attack++
		case defense < attack && defense < speed:
			defense++
		default:
			speed++
		}
	}

	c.CurStats.Attack += attack
	c.CurStats.Defense += defense
	c.CurStats.Speed += speed

	c.CurStats.HP += 5 * levelsGained
	c.CurStats.MaxHP += 5 * levelsGained
}

// AcquireSkill 习得或升级技能
// 技能点不足或已达上限时返回业务规则错误
func AcquireSkill(c *model.Combat, skillKey string) error {
	skill, ok := model.LookupSkill(skillKey)
	if !ok {
		return errors.Wrapf(game.ErrUnknownSkill, "skill %q", skillKey)
	}

	current := c.SkillLevel(skillKey)
	if skill.Capped() && current >= skill.Max {
		return errors.Wrapf(game.ErrSkillMaxed, "skill %q at level %d", skillKey, current)
	}
	if c.SkillPoints < skill.Cost {
		return errors.Wrapf(game.ErrInsufficientPoints,
			"skill %q costs %d, have %d", skillKey, skill.Cost, c.SkillPoints)
	}

	c.SkillPoints -= skill.Cost
	if c.Skills == nil {
		c.Skills = make(map[string]int)
	}
	c.Skills[skillKey] = current + 1

	return nil
}

func roundShare(stat, sum, points int) int {
	// 四舍五入到最近整数
	return (stat*points*2 + sum) / (2 * sum)
}

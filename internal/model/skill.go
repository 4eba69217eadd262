package model

import "math"

// SkillMaxUnbounded 表示技能没有等级上限
const SkillMaxUnbounded = math.MaxInt

// Skill 技能定义：习得消耗与等级上限
type Skill struct {
	Key  string
	Cost int
	// Max 等级上限，无上限时为 SkillMaxUnbounded
	Max int
}

// Capped 技能是否有等级上限
func (s Skill) Capped() bool {
	return s.Max != SkillMaxUnbounded
}

const (
	SkillCrit    = "crit"
	SkillSpeed   = "speed"
	SkillDefense = "defense"
	SkillSlow    = "slow"
	SkillEnrage  = "enrage"
	SkillHeal    = "heal"
)

// skillCatalog 技能目录，键即角色 Skills 映射的键
var skillCatalog = map[string]Skill{
	SkillCrit:    {Key: SkillCrit, Cost: 2, Max: 3},
	SkillEnrage:  {Key: SkillEnrage, Cost: 2, Max: 3},
	SkillHeal:    {Key: SkillHeal, Cost: 2, Max: 3},
	SkillSpeed:   {Key: SkillSpeed, Cost: 1, Max: SkillMaxUnbounded},
	SkillDefense: {Key: SkillDefense, Cost: 1, Max: SkillMaxUnbounded},
	SkillSlow:    {Key: SkillSlow, Cost: 1, Max: SkillMaxUnbounded},
}

// LookupSkill 按键查找技能定义
func LookupSkill(key string) (Skill, bool) {
	s, ok := skillCatalog[key]
	return s, ok
}

// SkillKeys 全部技能键，固定顺序（确定性场景使用）
func SkillKeys() []string {
	return []string{SkillCrit, SkillEnrage, SkillHeal, SkillSpeed, SkillDefense, SkillSlow}
}

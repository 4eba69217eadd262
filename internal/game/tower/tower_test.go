package tower

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFloorExp(t *testing.T) {
	t.Run("floors 1-10", func(t *testing.T) {
		assert.Equal(t, 1.0, FloorExp(1))
		assert.Equal(t, 1.0, FloorExp(2))
		assert.Equal(t, 1.0, FloorExp(3))
		assert.Equal(t, 1.0, FloorExp(4))

		assert.Equal(t, 2.0, FloorExp(5))

		assert.Equal(t, 1.5, FloorExp(6))
		assert.Equal(t, 1.5, FloorExp(7))
		assert.Equal(t, 1.5, FloorExp(8))
		assert.Equal(t, 1.5, FloorExp(9))

		assert.Equal(t, 3.0, FloorExp(10))
	})

	t.Run("floors 11-20", func(t *testing.T) {
		assert.Equal(t, 2.0, FloorExp(11))
		assert.Equal(t, 2.0, FloorExp(14))

		assert.Equal(t, 4.0, FloorExp(15))

		assert.Equal(t, 3.0, FloorExp(16))
		assert.Equal(t, 3.0, FloorExp(19))

		assert.Equal(t, 6.0, FloorExp(20))
	})
}

func TestExpGain(t *testing.T) {
	// 扫荡：队长半额，队员四分之一
	assert.Equal(t, 1, ExpGain(5, SweepLeadMultiplier))
	assert.Equal(t, 1, ExpGain(5, SweepMemberMultiplier))
	assert.Equal(t, 2, ExpGain(6, ExpLeadMultiplier))
	assert.Equal(t, 6, ExpGain(20, ExpLeadMultiplier))
	assert.Equal(t, 3, ExpGain(20, ExpMemberMultiplier))
}

func TestEnemyRating(t *testing.T) {
	tests := []struct {
		floor int
		want  int
	}{
		{1, 1}, {2, 1}, {3, 1},
		{4, 2}, {6, 2},
		{7, 3}, {8, 3}, {9, 3},
		{5, 4},
		{10, 5},
		{11, 1}, {14, 2}, {15, 4}, {17, 3}, {20, 5},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, EnemyRating(tt.floor), "floor %d", tt.floor)
	}
}

func TestEnemySkillSlots(t *testing.T) {
	assert.Equal(t, 0, EnemySkillSlots(1))
	assert.Equal(t, 0, EnemySkillSlots(4))
	assert.Equal(t, 1, EnemySkillSlots(5))
	assert.Equal(t, 1, EnemySkillSlots(9))
	assert.Equal(t, 2, EnemySkillSlots(10))
	assert.Equal(t, 2, EnemySkillSlots(14))
	assert.Equal(t, 3, EnemySkillSlots(15))
	assert.Equal(t, 3, EnemySkillSlots(19))
	assert.Equal(t, 4, EnemySkillSlots(20))
}

func TestEnemyMaxSkillLevel(t *testing.T) {
	assert.Equal(t, 1, EnemyMaxSkillLevel(1))
	assert.Equal(t, 1, EnemyMaxSkillLevel(9))
	assert.Equal(t, 2, EnemyMaxSkillLevel(10))
	assert.Equal(t, 2, EnemyMaxSkillLevel(14))
	assert.Equal(t, 3, EnemyMaxSkillLevel(15))
	assert.Equal(t, 3, EnemyMaxSkillLevel(19))
	assert.Equal(t, 4, EnemyMaxSkillLevel(20))
}

func TestGenerateEnemyDeterminism(t *testing.T) {
	a := GenerateEnemy(15, NewRand("guild-1:user-1"))
	b := GenerateEnemy(15, NewRand("guild-1:user-1"))

	assert.Equal(t, a, b)

	// 不同种子应当产生不同的序列（极小概率碰撞可忽略）
	c := GenerateEnemy(15, NewRand("guild-1:user-2"))
	assert.NotEqual(t, a.Stats, c.Stats)
}

func TestGenerateEnemyStats(t *testing.T) {
	t.Run("stat pool scales with rating and floor", func(t *testing.T) {
		enemy := GenerateEnemy(10, NewRand("seed"))

		assert.Equal(t, 5, enemy.Rating)
		// 防御与生命共用同一个值
		assert.Equal(t, enemy.Stats.Defense, enemy.Stats.HP)
		assert.Equal(t, enemy.Stats.Defense, enemy.Stats.MaxHP)
		assert.GreaterOrEqual(t, enemy.Stats.Defense, 1)
	})

	t.Run("defense floor is one even with no points", func(t *testing.T) {
		// 种子不可控，但一星敌人只有三点，验证多种种子下的下限
		for _, seed := range []string{"a", "b", "c", "d", "e", "f"} {
			enemy := GenerateEnemy(1, NewRand(seed))
			assert.GreaterOrEqual(t, enemy.Stats.Defense, 1, "seed %q", seed)
			assert.GreaterOrEqual(t, enemy.Stats.HP, 1, "seed %q", seed)
		}
	})

	t.Run("no skills below floor five", func(t *testing.T) {
		enemy := GenerateEnemy(4, NewRand("seed"))
		assert.Empty(t, enemy.Skills)
	})

	t.Run("skill levels bounded", func(t *testing.T) {
		enemy := GenerateEnemy(20, NewRand("seed"))
		for key, level := range enemy.Skills {
			assert.GreaterOrEqual(t, level, 1, "skill %s", key)
			assert.LessOrEqual(t, level, EnemyMaxSkillLevel(20), "skill %s", key)
		}
	})
}

func TestRandSequence(t *testing.T) {
	r1 := NewRand("seed")
	r2 := NewRand("seed")

	for i := 0; i < 100; i++ {
		assert.Equal(t, r1.Intn(1000), r2.Intn(1000))
	}
}

package tower

import (
	"context"
	"time"

	"go.uber.org/atomic"

	"github.com/lk2023060901/xgacha/internal/model"
)

// Combatant 战斗单位的工作副本，推演过程就地扣血
type Combatant struct {
	ID     string
	Name   string
	Stats  model.Stats
	Skills map[string]int
}

// Alive 是否还能战斗
func (c *Combatant) Alive() bool {
	return c.Stats.HP > 0
}

// SnapshotPhase 快照所处的半回合阶段
type SnapshotPhase string

const (
	// PhaseAttack 出手瞬间，伤害已判定但未落地
	PhaseAttack SnapshotPhase = "attack"
	// PhaseResolve 伤害落地后的状态
	PhaseResolve SnapshotPhase = "resolve"
)

// Snapshot 战斗过程中的一帧，交给观察者渲染
type Snapshot struct {
	Phase      SnapshotPhase
	AttackerID string
	DefenderID string
	Damage     int

	AttackerHP    int
	AttackerMaxHP int
	DefenderHP    int
	DefenderMaxHP int
}

// Options 推演选项
type Options struct {
	// Delay 两帧之间的停顿，观战节奏用；零值不停顿
	Delay time.Duration
	// Skip 置位后跳过停顿，不影响推演结果
	Skip *atomic.Bool
	// Observer 快照回调，nil 表示无人观战
	Observer func(Snapshot)
}

// Outcome 战斗结果
type Outcome struct {
	WinnerID string
	Turns    int
}

// Fight 推演一场一对一战斗
//
// 双方轮流出手，先手固定为 player。伤害为攻击减防御且不低于 1，
// 生命值不跌破 0。每个半回合产出两帧快照，中间隔一次停顿。
// 上下文取消只作用于停顿：取消后剩余停顿全部跳过，
// 推演照常收尾，结果与不取消时一致
func Fight(ctx context.Context, player, enemy *Combatant, opts Options) Outcome {
	attacker, defender := player, enemy
	turns := 0

	for player.Alive() && enemy.Alive() {
		turns++

		damage := max(attacker.Stats.Attack-defender.Stats.Defense, 1)

		emit(opts, Snapshot{
			Phase:         PhaseAttack,
			AttackerID:    attacker.ID,
			DefenderID:    defender.ID,
			Damage:        damage,
			AttackerHP:    attacker.Stats.HP,
			AttackerMaxHP: attacker.Stats.MaxHP,
			DefenderHP:    defender.Stats.HP,
			DefenderMaxHP: defender.Stats.MaxHP,
		})

		pause(ctx, opts)

		defender.Stats.HP = max(defender.Stats.HP-damage, 0)

		emit(opts, Snapshot{
			Phase:         PhaseResolve,
			AttackerID:    attacker.ID,
			DefenderID:    defender.ID,
			Damage:        damage,
			AttackerHP:    attacker.Stats.HP,
			AttackerMaxHP: attacker.Stats.MaxHP,
			DefenderHP:    defender.Stats.HP,
			DefenderMaxHP: defender.Stats.MaxHP,
		})

		attacker, defender = defender, attacker
	}

	winner := player
	if !player.Alive() {
		winner = enemy
	}
	return Outcome{WinnerID: winner.ID, Turns: turns}
}

func emit(opts Options, s Snapshot) {
	if opts.Observer != nil {
		opts.Observer(s)
	}
}

// pause 帧间停顿，取消的上下文与 Skip 置位同等对待
func pause(ctx context.Context, opts Options) {
	if opts.Delay <= 0 {
		return
	}
	if opts.Skip != nil && opts.Skip.Load() {
		return
	}
	if ctx.Err() != nil {
		return
	}

	timer := time.NewTimer(opts.Delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

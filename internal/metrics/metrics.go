// Package metrics 定义游戏核心的 Prometheus 指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// GameMetrics 游戏核心指标
type GameMetrics struct {
	namespace string

	// 账本指标
	LedgerCommits   *prometheus.CounterVec   // 事务提交总数（按结果）
	LedgerRetries   prometheus.Counter       // 冲突重试总数
	LedgerDuration  *prometheus.HistogramVec // 提交延迟
	RegenSkipped    prometheus.Counter       // 无变化跳过的回充写入
	RegenWrites     prometheus.Counter       // 落盘的回充写入

	// 玩法指标
	PullsTotal     *prometheus.CounterVec // 抽卡总数（按星级、来源）
	SynthesisTotal *prometheus.CounterVec // 合成总数（按目标星级）
	CombatOutcomes *prometheus.CounterVec // 战斗结果（按胜方）
	SweepsTotal    prometheus.Counter     // 扫荡总数
}

// New 创建游戏指标
func New(namespace string) *GameMetrics {
	if namespace == "" {
		namespace = "xgacha"
	}

	return &GameMetrics{
		namespace: namespace,

		LedgerCommits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_commits_total",
				Help:      "账本事务提交总数",
			},
			[]string{"result"}, // result: success/conflict/error
		),
		LedgerRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_retries_total",
				Help:      "账本冲突重试总数",
			},
		),
		LedgerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ledger_commit_duration_seconds",
				Help:      "账本提交延迟（秒）",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"result"},
		),
		RegenSkipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "regen_skipped_total",
				Help:      "无变化跳过的回充写入总数",
			},
		),
		RegenWrites: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "regen_writes_total",
				Help:      "落盘的回充写入总数",
			},
		),

		PullsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pulls_total",
				Help:      "抽卡总数",
			},
			[]string{"rating", "source"}, // source: normal/guarantee/synthesis
		),
		SynthesisTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "synthesis_total",
				Help:      "合成总数",
			},
			[]string{"target"},
		),
		CombatOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "combat_outcomes_total",
				Help:      "战斗结果总数",
			},
			[]string{"winner"}, // winner: player/enemy
		),
		SweepsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sweeps_total",
				Help:      "扫荡总数",
			},
		),
	}
}

// Register 注册所有指标
func (m *GameMetrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.LedgerCommits,
		m.LedgerRetries,
		m.LedgerDuration,
		m.RegenSkipped,
		m.RegenWrites,
		m.PullsTotal,
		m.SynthesisTotal,
		m.CombatOutcomes,
		m.SweepsTotal,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

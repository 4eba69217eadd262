package game

import "time"

// Clock 时间源。每个操作在入口处取一次 Now 并贯穿全程，
// 避免同一事务内多次取时导致的判定漂移
type Clock interface {
	Now() time.Time
}

// SystemClock 系统时钟
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock 固定时钟（测试用）
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }

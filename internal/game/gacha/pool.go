package gacha

import (
	"github.com/cockroachdb/errors"

	"github.com/lk2023060901/xgacha/internal/content"
	"github.com/lk2023060901/xgacha/internal/game"
)

// Source 选取用的随机源
// *rand.Rand 与爬塔的种子化发生器都满足此接口
type Source interface {
	Intn(n int) int
}

// PickCandidate 从候选池均匀选取一个合格条目
//
// 不合格的条目被移出池子后重试，池子耗尽返回 ErrPoolExhausted。
// pool 在原位被打乱重排，调用方不应继续依赖其顺序
func PickCandidate(r Source, pool []content.Record, eligible func(content.Record) bool) (content.Record, error) {
	remaining := pool
	for len(remaining) > 0 {
		i := r.Intn(len(remaining))
		candidate := remaining[i]

		if eligible == nil || eligible(candidate) {
			return candidate, nil
		}

		// 把选中的不合格条目换到末位截掉
		remaining[i] = remaining[len(remaining)-1]
		remaining = remaining[:len(remaining)-1]
	}

	return content.Record{}, errors.Wrap(game.ErrPoolExhausted, "no eligible candidate")
}

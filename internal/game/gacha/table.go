package gacha

import (
	"math/rand"

	"github.com/cockroachdb/errors"
)

// WeightedTable 百分比抽签表
// 构造时把每个条目按权重展开成平铺数组，抽取即洗牌后取首位
type WeightedTable[T any] struct {
	flat []T
}

// NewWeightedTable 构造抽签表，权重之和必须恰好为 100
func NewWeightedTable[T any](entries map[int]T) (*WeightedTable[T], error) {
	sum := 0
	for chance := range entries {
		sum += chance
	}
	if sum != 100 {
		return nil, errors.Newf("table weights sum to %d, expected 100", sum)
	}

	flat := make([]T, 0, 100)
	for chance, value := range entries {
		for i := 0; i < chance; i++ {
			flat = append(flat, value)
		}
	}
	return &WeightedTable[T]{flat: flat}, nil
}

// MustWeightedTable 构造失败即 panic，用于包级固定表
func MustWeightedTable[T any](entries map[int]T) *WeightedTable[T] {
	t, err := NewWeightedTable(entries)
	if err != nil {
		panic(err)
	}
	return t
}

// Draw 洗牌后取第一个条目
func (t *WeightedTable[T]) Draw(r *rand.Rand) T {
	shuffled := make([]T, len(t.flat))
	copy(shuffled, t.flat)
	r.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[0]
}

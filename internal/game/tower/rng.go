package tower

import "github.com/cespare/xxhash/v2"

const (
	lehmerModulus    = 2147483647
	lehmerMultiplier = 16807
)

// Rand 种子化的 Lehmer 随机数发生器
//
// 敌方生成要求可复现：同一 (层数, 种子) 必须得到逐字节相同的结果，
// 因此不用 math/rand 的全局源。字符串种子先经 xxhash 折叠进
// 31 位状态，零状态会让序列退化，压缩到 [1, modulus-1]
type Rand struct {
	state uint64
}

// NewRand 以字符串种子初始化发生器
func NewRand(seed string) *Rand {
	folded := xxhash.Sum64String(seed)
	return &Rand{state: folded%(lehmerModulus-1) + 1}
}

// Float 返回 [0, 1) 区间的下一个值
func (r *Rand) Float() float64 {
	r.state = r.state * lehmerMultiplier % lehmerModulus
	return float64(r.state) / lehmerModulus
}

// Intn 返回 [0, n) 区间的下一个整数
func (r *Rand) Intn(n int) int {
	return int(r.Float() * float64(n))
}

// Package content 定义外部内容源的协作边界
//
// 核心逻辑只依赖 Resolver 接口取角色条目与候选池，
// 不关心条目来自何处、如何缓存
package content

import (
	"context"

	"github.com/cockroachdb/errors"
)

// Role 角色在媒体中的定位
type Role string

const (
	RoleMain       Role = "MAIN"
	RoleSupporting Role = "SUPPORTING"
	RoleBackground Role = "BACKGROUND"
)

// Record 内容源中的一条角色条目
type Record struct {
	CharacterID string `json:"characterId"`
	MediaID     string `json:"mediaId"`
	Name        string `json:"name"`
	MediaTitle  string `json:"mediaTitle"`
	Role        Role   `json:"role"`
	// Popularity 所属媒体的热度值，星级判定的输入
	Popularity int `json:"popularity"`
}

// ErrNotFound 条目不存在
var ErrNotFound = errors.New("content: record not found")

// Resolver 内容源接口
type Resolver interface {
	// Resolve 按 ID 批量取条目，缺失的条目被跳过而不是报错
	Resolve(ctx context.Context, ids []string) ([]Record, error)
	// Disabled 条目是否被服务器禁用（禁用条目不入池、不展示）
	Disabled(id string) bool
	// Pool 按定位与热度窗口列出候选，maxPopularity<=0 表示无上限
	Pool(ctx context.Context, role Role, minPopularity, maxPopularity int) ([]Record, error)
	// All 列出全部条目（按星级筛选时由调用方过滤）
	All(ctx context.Context) ([]Record, error)
}

package content

import (
	"context"
	"sort"
	"sync"
)

// StaticResolver 内存内容源，测试与演示进程使用
type StaticResolver struct {
	mu       sync.RWMutex
	records  map[string]Record
	disabled map[string]struct{}
}

var _ Resolver = (*StaticResolver)(nil)

// NewStaticResolver 创建内存内容源
func NewStaticResolver(records ...Record) *StaticResolver {
	r := &StaticResolver{
		records:  make(map[string]Record, len(records)),
		disabled: make(map[string]struct{}),
	}
	for _, rec := range records {
		r.records[rec.CharacterID] = rec
	}
	return r
}

// Add 注册条目，已存在时覆盖
func (r *StaticResolver) Add(records ...Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		r.records[rec.CharacterID] = rec
	}
}

// Disable 将角色或媒体 ID 标记为禁用
func (r *StaticResolver) Disable(ids ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		r.disabled[id] = struct{}{}
	}
}

func (r *StaticResolver) Resolve(_ context.Context, ids []string) ([]Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		if rec, ok := r.records[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *StaticResolver) Disabled(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.disabled[id]
	return ok
}

func (r *StaticResolver) Pool(_ context.Context, role Role, minPopularity, maxPopularity int) ([]Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Record
	for _, rec := range r.records {
		if rec.Role != role {
			continue
		}
		if rec.Popularity < minPopularity {
			continue
		}
		if maxPopularity > 0 && rec.Popularity >= maxPopularity {
			continue
		}
		if r.disabledLocked(rec) {
			continue
		}
		out = append(out, rec)
	}
	sortRecords(out)
	return out, nil
}

func (r *StaticResolver) All(_ context.Context) ([]Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		if r.disabledLocked(rec) {
			continue
		}
		out = append(out, rec)
	}
	sortRecords(out)
	return out, nil
}

// sortRecords 固定候选顺序，保证种子化选取可复现
func sortRecords(records []Record) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].CharacterID < records[j].CharacterID
	})
}

func (r *StaticResolver) disabledLocked(rec Record) bool {
	if _, ok := r.disabled[rec.CharacterID]; ok {
		return true
	}
	_, ok := r.disabled[rec.MediaID]
	return ok
}

package kv

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// MemoryStore 内存实现，乐观并发契约的参考实现
// 用于测试和单进程默认存储
type MemoryStore struct {
	mu      sync.RWMutex
	data    map[string]memEntry
	counter uint64
	closed  bool
}

type memEntry struct {
	value   []byte
	version Version
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]memEntry),
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, None, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, None, ErrClosed
	}

	e, ok := s.data[key]
	if !ok {
		return nil, None, nil
	}

	// 拷贝，防止调用方修改内部切片
	value := make([]byte, len(e.value))
	copy(value, e.value)

	return value, e.version, nil
}

func (s *MemoryStore) List(ctx context.Context, prefix string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	var entries []Entry
	for key, e := range s.data {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		value := make([]byte, len(e.value))
		copy(value, e.value)
		entries = append(entries, Entry{Key: key, Value: value, Version: e.version})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	return entries, nil
}

func (s *MemoryStore) Commit(ctx context.Context, tx *Tx) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	// 先验证全部检查，再应用全部写入
	for _, c := range tx.Checks {
		e, ok := s.data[c.Key]
		if c.Version == None {
			if ok {
				return ErrConflict
			}
			continue
		}
		if !ok || e.version != c.Version {
			return ErrConflict
		}
	}

	for _, set := range tx.Sets {
		s.counter++
		value := make([]byte, len(set.Value))
		copy(value, set.Value)
		s.data[set.Key] = memEntry{
			value:   value,
			version: Version(strconv.FormatUint(s.counter, 10)),
		}
	}

	for _, key := range tx.Deletes {
		delete(s.data, key)
	}

	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

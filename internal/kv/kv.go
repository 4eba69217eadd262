package kv

import (
	"context"

	"github.com/cockroachdb/errors"
)

// DefaultAttempts 乐观并发冲突的标准重试次数
const DefaultAttempts = 5

var (
	// ErrConflict 版本检查失败（提交时记录已被并发修改）
	ErrConflict = errors.New("kv: version conflict")
	// ErrRetriesExhausted 重试耗尽，属于基础设施级致命错误
	ErrRetriesExhausted = errors.New("kv: transaction retries exhausted")
	// ErrClosed 存储已关闭
	ErrClosed = errors.New("kv: store closed")
)

// Version 记录版本号，提交时用于条件检查
// 空字符串表示"记录不存在"
type Version string

// None 表示记录不存在的版本，用于 absent 检查
const None Version = ""

// Entry 一条带版本的记录
type Entry struct {
	Key     string
	Value   []byte
	Version Version
}

// Check 一条版本检查：提交时 Key 的当前版本必须等于 Version
// Version 为 None 时要求 Key 不存在
type Check struct {
	Key     string
	Version Version
}

// Tx 累积一组检查、写入和删除，由 Store.Commit 原子提交
// 所有写入要么全部生效，要么全部失败，不暴露部分写入
type Tx struct {
	Checks  []Check
	Sets    []Entry
	Deletes []string
}

// NewTx 创建空事务
func NewTx() *Tx {
	return &Tx{}
}

// Check 追加版本检查
func (t *Tx) Check(key string, ver Version) *Tx {
	t.Checks = append(t.Checks, Check{Key: key, Version: ver})
	return t
}

// CheckAbsent 追加"记录必须不存在"检查
func (t *Tx) CheckAbsent(key string) *Tx {
	t.Checks = append(t.Checks, Check{Key: key, Version: None})
	return t
}

// Set 追加写入
func (t *Tx) Set(key string, value []byte) *Tx {
	t.Sets = append(t.Sets, Entry{Key: key, Value: value})
	return t
}

// Delete 追加删除
func (t *Tx) Delete(key string) *Tx {
	t.Deletes = append(t.Deletes, key)
	return t
}

// Empty 事务是否没有任何写入或删除
func (t *Tx) Empty() bool {
	return len(t.Sets) == 0 && len(t.Deletes) == 0
}

// Store 带版本的键值存储契约
// 实现必须保证 Commit 的原子性：任何一条检查失败返回 ErrConflict，
// 且不应用任何写入
type Store interface {
	// Get 读取一条记录；不存在时返回 (nil, None, nil)
	Get(ctx context.Context, key string) ([]byte, Version, error)
	// List 按前缀列出记录，按键升序
	List(ctx context.Context, prefix string) ([]Entry, error)
	// Commit 原子提交事务
	Commit(ctx context.Context, tx *Tx) error
	// Close 关闭存储
	Close() error
}

// Retry 有界重试组合子：fn 每次从头读取、计算、提交
// 只有 ErrConflict 触发重试；重试耗尽返回 ErrRetriesExhausted
func Retry(ctx context.Context, attempts int, fn func(ctx context.Context) error) error {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	var err error
	for i := 0; i < attempts; i++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConflict) {
			return err
		}
	}

	return errors.Wrapf(ErrRetriesExhausted, "after %d attempts", attempts)
}

package redis

import (
	"context"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/lk2023060901/xgacha/internal/kv"
)

// 每条记录存为一个 hash: v=记录值, ver=版本号
// 版本号来自全局计数器，保证删除重建后的版本不会回退
const (
	fieldValue   = "v"
	fieldVersion = "ver"
	counterKey   = "kv:counter"
)

// commitScript 原子提交脚本
// KEYS: 检查键... 写入键... 删除键... 计数器键
// ARGV: 检查数, 期望版本..., 写入数, 写入值..., 删除数
// 任何一条检查失败返回 0，不应用任何写入
var commitScript = redis.NewScript(`
local c = tonumber(ARGV[1])
local idx = 2
for i = 1, c do
  local want = ARGV[idx]
  idx = idx + 1
  local cur = redis.call('HGET', KEYS[i], 'ver')
  if want == '' then
    if cur then return 0 end
  else
    if not cur or cur ~= want then return 0 end
  end
end
local s = tonumber(ARGV[idx])
idx = idx + 1
for i = 1, s do
  local nxt = redis.call('INCR', KEYS[#KEYS])
  redis.call('HSET', KEYS[c + i], 'v', ARGV[idx], 'ver', tostring(nxt))
  idx = idx + 1
end
local d = tonumber(ARGV[idx])
for i = 1, d do
  redis.call('DEL', KEYS[c + s + i])
end
return 1
`)

// Config Redis 存储配置
type Config struct {
	Addr     string `mapstructure:"addr" json:"addr" yaml:"addr" validate:"required"`
	Password string `mapstructure:"password" json:"password" yaml:"password"`
	DB       int    `mapstructure:"db" json:"db" yaml:"db"`
	// Prefix 所有键的命名空间前缀
	Prefix string `mapstructure:"prefix" json:"prefix" yaml:"prefix"`
}

// Store Redis 实现
type Store struct {
	rdb    *redis.Client
	prefix string
}

var _ kv.Store = (*Store)(nil)

// New 创建 Redis 存储
func New(cfg *Config) (*Store, error) {
	if cfg == nil || cfg.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect redis: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "xgacha:"
	}

	return &Store{rdb: rdb, prefix: prefix}, nil
}

func (s *Store) key(key string) string {
	return s.prefix + key
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, kv.Version, error) {
	res, err := s.rdb.HMGet(ctx, s.key(key), fieldValue, fieldVersion).Result()
	if err != nil {
		return nil, kv.None, fmt.Errorf("redis hmget %s: %w", key, err)
	}

	if res[0] == nil || res[1] == nil {
		return nil, kv.None, nil
	}

	value, ok := res[0].(string)
	if !ok {
		return nil, kv.None, fmt.Errorf("redis hmget %s: unexpected value type %T", key, res[0])
	}
	ver, ok := res[1].(string)
	if !ok {
		return nil, kv.None, fmt.Errorf("redis hmget %s: unexpected version type %T", key, res[1])
	}

	return []byte(value), kv.Version(ver), nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]kv.Entry, error) {
	var entries []kv.Entry

	iter := s.rdb.Scan(ctx, 0, s.key(prefix)+"*", 512).Iterator()
	for iter.Next(ctx) {
		full := iter.Val()
		value, ver, err := s.Get(ctx, full[len(s.prefix):])
		if err != nil {
			return nil, err
		}
		if ver == kv.None {
			// SCAN 与 HMGET 之间被删除
			continue
		}
		entries = append(entries, kv.Entry{
			Key:     full[len(s.prefix):],
			Value:   value,
			Version: ver,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan %s: %w", prefix, err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	return entries, nil
}

func (s *Store) Commit(ctx context.Context, tx *kv.Tx) error {
	keys := make([]string, 0, len(tx.Checks)+len(tx.Sets)+len(tx.Deletes)+1)
	argv := make([]interface{}, 0, len(tx.Checks)+len(tx.Sets)+3)

	argv = append(argv, len(tx.Checks))
	for _, c := range tx.Checks {
		keys = append(keys, s.key(c.Key))
		argv = append(argv, string(c.Version))
	}

	argv = append(argv, len(tx.Sets))
	for _, set := range tx.Sets {
		keys = append(keys, s.key(set.Key))
		argv = append(argv, string(set.Value))
	}

	argv = append(argv, len(tx.Deletes))
	for _, key := range tx.Deletes {
		keys = append(keys, s.key(key))
	}

	keys = append(keys, s.key(counterKey))

	ok, err := commitScript.Run(ctx, s.rdb, keys, argv...).Int()
	if err != nil {
		return fmt.Errorf("redis commit: %w", err)
	}
	if ok != 1 {
		return kv.ErrConflict
	}

	return nil
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

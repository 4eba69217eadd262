package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lk2023060901/xgacha/internal/kv"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
    key     TEXT PRIMARY KEY,
    value   BYTEA NOT NULL,
    version BIGINT NOT NULL
);
CREATE SEQUENCE IF NOT EXISTS records_version_seq;
`

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Config PostgreSQL 存储配置
type Config struct {
	DSN string `mapstructure:"dsn" json:"dsn" yaml:"dsn" validate:"required"`
}

// Store PostgreSQL 实现
// 单表 records(key, value, version)，版本号取自全局序列，
// 提交在一个数据库事务内完成：行锁 + 版本比较实现条件提交
type Store struct {
	pool *pgxpool.Pool
}

var _ kv.Store = (*Store)(nil)

// New 创建 PostgreSQL 存储并确保表结构存在
func New(ctx context.Context, cfg *Config) (*Store, error) {
	if cfg == nil || cfg.DSN == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, kv.Version, error) {
	query, args, err := psql.
		Select("value", "version").
		From("records").
		Where(squirrel.Eq{"key": key}).
		ToSql()
	if err != nil {
		return nil, kv.None, fmt.Errorf("failed to build query: %w", err)
	}

	var value []byte
	var version int64

	err = s.pool.QueryRow(ctx, query, args...).Scan(&value, &version)
	if err == pgx.ErrNoRows {
		return nil, kv.None, nil
	}
	if err != nil {
		return nil, kv.None, fmt.Errorf("postgres get %s: %w", key, err)
	}

	return value, kv.Version(fmt.Sprintf("%d", version)), nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]kv.Entry, error) {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)

	query, args, err := psql.
		Select("key", "value", "version").
		From("records").
		Where(squirrel.Like{"key": escaped + "%"}).
		OrderBy("key").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres list %s: %w", prefix, err)
	}
	defer rows.Close()

	var entries []kv.Entry
	for rows.Next() {
		var e kv.Entry
		var version int64
		if err := rows.Scan(&e.Key, &e.Value, &version); err != nil {
			return nil, fmt.Errorf("postgres list scan: %w", err)
		}
		e.Version = kv.Version(fmt.Sprintf("%d", version))
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres list rows: %w", err)
	}

	return entries, nil
}

func (s *Store) Commit(ctx context.Context, tx *kv.Tx) error {
	dbtx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres begin: %w", err)
	}
	defer func() { _ = dbtx.Rollback(ctx) }()

	// 锁住并比较所有被检查的行
	for _, c := range tx.Checks {
		query, args, err := psql.
			Select("version").
			From("records").
			Where(squirrel.Eq{"key": c.Key}).
			Suffix("FOR UPDATE").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build query: %w", err)
		}

		var version int64
		err = dbtx.QueryRow(ctx, query, args...).Scan(&version)

		if c.Version == kv.None {
			if err == nil {
				return kv.ErrConflict
			}
			if err != pgx.ErrNoRows {
				return fmt.Errorf("postgres check %s: %w", c.Key, err)
			}
			continue
		}

		if err == pgx.ErrNoRows {
			return kv.ErrConflict
		}
		if err != nil {
			return fmt.Errorf("postgres check %s: %w", c.Key, err)
		}
		if kv.Version(fmt.Sprintf("%d", version)) != c.Version {
			return kv.ErrConflict
		}
	}

	for _, set := range tx.Sets {
		_, err := dbtx.Exec(ctx,
			`INSERT INTO records (key, value, version)
			 VALUES ($1, $2, nextval('records_version_seq'))
			 ON CONFLICT (key) DO UPDATE
			 SET value = EXCLUDED.value, version = nextval('records_version_seq')`,
			set.Key, set.Value,
		)
		if err != nil {
			return fmt.Errorf("postgres set %s: %w", set.Key, err)
		}
	}

	for _, key := range tx.Deletes {
		query, args, err := psql.Delete("records").Where(squirrel.Eq{"key": key}).ToSql()
		if err != nil {
			return fmt.Errorf("failed to build query: %w", err)
		}
		if _, err := dbtx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("postgres delete %s: %w", key, err)
		}
	}

	if err := dbtx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres commit: %w", err)
	}

	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

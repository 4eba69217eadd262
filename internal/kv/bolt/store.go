package bolt

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"go.etcd.io/bbolt"

	"github.com/lk2023060901/xgacha/internal/kv"
)

var (
	recordsBucket  = []byte("records")
	versionsBucket = []byte("versions")
)

// Store BoltDB 实现，单机文件存储
// bbolt 的单写事务天然满足提交原子性，版本检查在 Update 闭包内完成
type Store struct {
	db *bbolt.DB
}

var _ kv.Store = (*Store)(nil)

// Open 打开（或创建）BoltDB 存储文件
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("bolt path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(recordsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(versionsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, kv.Version, error) {
	if err := ctx.Err(); err != nil {
		return nil, kv.None, err
	}

	var value []byte
	var ver kv.Version

	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(versionsBucket).Get([]byte(key))
		if v == nil {
			return nil
		}
		ver = kv.Version(v)

		raw := tx.Bucket(recordsBucket).Get([]byte(key))
		value = make([]byte, len(raw))
		copy(value, raw)
		return nil
	})
	if err != nil {
		return nil, kv.None, fmt.Errorf("bolt get %s: %w", key, err)
	}

	return value, ver, nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]kv.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entries []kv.Entry

	err := s.db.View(func(tx *bbolt.Tx) error {
		records := tx.Bucket(recordsBucket)
		versions := tx.Bucket(versionsBucket)

		c := records.Cursor()
		p := []byte(prefix)
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			value := make([]byte, len(v))
			copy(value, v)
			entries = append(entries, kv.Entry{
				Key:     string(k),
				Value:   value,
				Version: kv.Version(versions.Get(k)),
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bolt list %s: %w", prefix, err)
	}

	return entries, nil
}

func (s *Store) Commit(ctx context.Context, tx *kv.Tx) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(btx *bbolt.Tx) error {
		records := btx.Bucket(recordsBucket)
		versions := btx.Bucket(versionsBucket)

		for _, c := range tx.Checks {
			cur := versions.Get([]byte(c.Key))
			if c.Version == kv.None {
				if cur != nil {
					return kv.ErrConflict
				}
				continue
			}
			if cur == nil || kv.Version(cur) != c.Version {
				return kv.ErrConflict
			}
		}

		for _, set := range tx.Sets {
			seq, err := versions.NextSequence()
			if err != nil {
				return err
			}
			if err := records.Put([]byte(set.Key), set.Value); err != nil {
				return err
			}
			if err := versions.Put([]byte(set.Key), []byte(strconv.FormatUint(seq, 10))); err != nil {
				return err
			}
		}

		for _, key := range tx.Deletes {
			if err := records.Delete([]byte(key)); err != nil {
				return err
			}
			if err := versions.Delete([]byte(key)); err != nil {
				return err
			}
		}

		return nil
	})

	if errors.Is(err, kv.ErrConflict) {
		return kv.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("bolt commit: %w", err)
	}

	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

package objectstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const defaultBoltBucket = "objects"

// BoltStore keeps objects in a single bbolt file, for single-node and
// development deployments.
type BoltStore struct {
	db     *bolt.DB
	bucket string
}

func NewBoltStore(dbPath, bucket string) (*BoltStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("bolt path is required")
	}
	if bucket == "" {
		bucket = defaultBoltBucket
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create bolt directory: %w", err)
	}
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
	}
	return &BoltStore{db: db, bucket: bucket}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Upload(_ context.Context, key string, body []byte, _ string) (string, error) {
	k, err := objectKey("", key)
	if err != nil {
		return "", err
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(s.bucket)).Put([]byte(k), body)
	})
	if err != nil {
		return "", fmt.Errorf("put bolt object %s: %w", k, err)
	}
	return fmt.Sprintf("bolt://%s/%s", s.bucket, k), nil
}

func (s *BoltStore) Get(_ context.Context, key string) ([]byte, error) {
	k, err := objectKey("", key)
	if err != nil {
		return nil, err
	}
	var out []byte
	err = s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(s.bucket)).Get([]byte(k))
		if v == nil {
			return fmt.Errorf("%s: %w", k, ErrObjectNotFound)
		}
		// v is only valid inside the transaction
		out = append([]byte(nil), v...)
		return nil
	})
	return out, err
}

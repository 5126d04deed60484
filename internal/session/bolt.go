package session

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketSession = []byte("session")

	keyAuthToken    = []byte("authToken")
	keyRefreshToken = []byte("refreshToken")
	keyUser         = []byte("user")
)

// BoltStorage keeps the session in a BoltDB file. Every field is written in
// one transaction.
type BoltStorage struct {
	db *bolt.DB
}

// OpenBoltStorage opens (or creates) the database at path.
func OpenBoltStorage(path string) (*BoltStorage, error) {
	resolved, err := expandPath(path)
	if err != nil {
		return nil, fmt.Errorf("session path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o700); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", filepath.Dir(resolved), err)
	}
	db, err := bolt.Open(resolved, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSession)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}
	return &BoltStorage{db: db}, nil
}

// Close releases the database file lock.
func (b *BoltStorage) Close() error {
	return b.db.Close()
}

func (b *BoltStorage) Load() (Record, error) {
	var r Record
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketSession)
		r.AuthToken = string(bucket.Get(keyAuthToken))
		r.RefreshToken = string(bucket.Get(keyRefreshToken))
		r.User = string(bucket.Get(keyUser))
		return nil
	})
	if err != nil {
		return Record{}, fmt.Errorf("read session: %w", err)
	}
	return r, nil
}

func (b *BoltStorage) Save(r Record) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketSession)
		for key, value := range map[string]string{
			string(keyAuthToken):    r.AuthToken,
			string(keyRefreshToken): r.RefreshToken,
			string(keyUser):         r.User,
		} {
			if value == "" {
				if err := bucket.Delete([]byte(key)); err != nil {
					return err
				}
				continue
			}
			if err := bucket.Put([]byte(key), []byte(value)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

func (b *BoltStorage) Clear() error {
	return b.Save(Record{})
}

package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

var itemsBucket = []byte("items")

type boltStore struct {
	db  *bolt.DB
	ttl time.Duration
	now func() time.Time
}

func openBolt(path string, opts Options) (*boltStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("bbolt storage requires a path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(itemsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create items bucket: %w", err)
	}
	return &boltStore{db: db, ttl: opts.ItemTTL, now: opts.Now}, nil
}

func (b *boltStore) SeenItem(key string) (bool, error) {
	var seen bool
	err := b.db.View(func(tx *bolt.Tx) error {
		exp, ok := decodeExpiry(tx.Bucket(itemsBucket).Get([]byte(key)))
		seen = ok && exp.After(b.now())
		return nil
	})
	return seen, err
}

func (b *boltStore) MarkItem(key string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(itemsBucket).Put([]byte(key), encodeExpiry(b.now().Add(b.ttl)))
	})
}

func (b *boltStore) Sweep() (int, error) {
	now := b.now()
	removed := 0
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(itemsBucket)

		// Deleting through the cursor while iterating skips keys.
		var expired [][]byte
		err := bucket.ForEach(func(k, v []byte) error {
			if exp, ok := decodeExpiry(v); !ok || !exp.After(now) {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range expired {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		removed = len(expired)
		return nil
	})
	return removed, err
}

func (b *boltStore) Close() error {
	return b.db.Close()
}

// count reports stored keys, expired or not.
func (b *boltStore) count() (int, error) {
	n := 0
	err := b.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(itemsBucket).Stats().KeyN
		return nil
	})
	return n, err
}

// Package storage remembers which catalog items have already been published.
package storage

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"
)

// Store tracks published item keys until they expire.
type Store interface {
	SeenItem(key string) (bool, error)
	MarkItem(key string) error
	// Sweep deletes expired keys and returns how many were removed.
	Sweep() (int, error)
	Close() error
}

// DefaultItemTTL applies when Options.ItemTTL is unset.
const DefaultItemTTL = 30 * 24 * time.Hour

// Options tunes retention for every backend.
type Options struct {
	ItemTTL time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// NewStore opens the backend named by typ: bbolt, memory, or none.
func NewStore(typ, path string, opts Options) (Store, error) {
	if opts.ItemTTL <= 0 {
		opts.ItemTTL = DefaultItemTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "memory":
		return newMemoryStore(opts), nil
	case "bbolt", "bolt":
		return openBolt(path, opts)
	}
	return nil, fmt.Errorf("unsupported storage type %q", typ)
}

type noopStore struct{}

func (noopStore) SeenItem(string) (bool, error) { return false, nil }
func (noopStore) MarkItem(string) error         { return nil }
func (noopStore) Sweep() (int, error)           { return 0, nil }
func (noopStore) Close() error                  { return nil }

// Expiry values are big-endian unix seconds.
func encodeExpiry(t time.Time) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(t.Unix()))
	return buf
}

func decodeExpiry(v []byte) (time.Time, bool) {
	if len(v) != 8 {
		return time.Time{}, false
	}
	unix := int64(binary.BigEndian.Uint64(v))
	if unix <= 0 {
		return time.Time{}, false
	}
	return time.Unix(unix, 0), true
}

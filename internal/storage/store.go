package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/pders01/feeds/internal/config"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrIncorrectPassword = errors.New("incorrect current password")
	ErrPasswordTooLong   = fmt.Errorf("password longer than %d bytes", MaxPasswordBytes)
)

const (
	usersBucket        = "users"
	usersByEmailBucket = "users_by_email"
	privateFeedsBucket = "private_feeds"
)

// Entry is one key/value pair of a bucket.
type Entry struct {
	Key   string
	Value []byte
}

// Store is a bucketed key/value store. Values are opaque bytes; the
// repositories in this package encode records as JSON.
type Store interface {
	// Get returns ErrNotFound for a missing bucket or key
	Get(bucket, key string) ([]byte, error)
	// List returns the bucket's entries ordered by key
	List(bucket string) ([]Entry, error)
	Put(bucket, key string, value []byte) error
	// Delete reports whether the key existed
	Delete(bucket, key string) (bool, error)
	Close() error
}

// Open returns the backend selected by cfg.Driver.
func Open(cfg config.DatabaseConfig) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "bolt":
		return NewBoltStore(cfg.Path, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// MemoryStore keeps everything in process memory; contents are lost on exit.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]map[string][]byte)}
}

func (m *MemoryStore) Get(bucket, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.buckets[bucket][key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStore) List(bucket string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b := m.buckets[bucket]
	entries := make([]Entry, 0, len(b))
	for k, v := range b {
		entries = append(entries, Entry{Key: k, Value: append([]byte(nil), v...)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

func (m *MemoryStore) Put(bucket, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[bucket]
	if !ok {
		b = make(map[string][]byte)
		m.buckets[bucket] = b
	}
	b[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) Delete(bucket, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.buckets[bucket]
	if _, ok := b[key]; !ok {
		return false, nil
	}
	delete(b, key)
	return true, nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func getJSON(s Store, bucket, key string, v interface{}) error {
	data, err := s.Get(bucket, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s/%s: %w", bucket, key, err)
	}
	return nil
}

func putJSON(s Store, bucket, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s/%s: %w", bucket, key, err)
	}
	return s.Put(bucket, key, data)
}

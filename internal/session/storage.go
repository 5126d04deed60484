package session

import (
	"context"
	"sync"
)

// Record is the durable form of a session. AuthToken and User are written and
// cleared together; User holds the JSON encoding of api.User.
type Record struct {
	AuthToken    string `toml:"authToken"`
	RefreshToken string `toml:"refreshToken,omitempty"`
	User         string `toml:"user"`
}

// Empty reports whether nothing is stored.
func (r Record) Empty() bool {
	return r.AuthToken == "" && r.RefreshToken == "" && r.User == ""
}

// Storage persists the session between runs. Save must write every field of
// the record atomically.
type Storage interface {
	Load() (Record, error)
	Save(Record) error
	Clear() error
}

// Watcher is implemented by storages that can report writes made by another
// process. onChange runs after each external change until ctx is done.
type Watcher interface {
	Watch(ctx context.Context, onChange func()) error
}

// MemoryStorage keeps the record in memory. It is used by tests and when no
// durable backend is configured.
type MemoryStorage struct {
	mu     sync.Mutex
	record Record
}

// NewMemoryStorage returns a storage pre-loaded with r.
func NewMemoryStorage(r Record) *MemoryStorage {
	return &MemoryStorage{record: r}
}

func (m *MemoryStorage) Load() (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.record, nil
}

func (m *MemoryStorage) Save(r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record = r
	return nil
}

func (m *MemoryStorage) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record = Record{}
	return nil
}

package cache

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
)

// Store is an on-disk (or in-memory for tests) store of raw fetched
// documents, keyed by request fingerprint. Get never performs network IO and
// Put is idempotent - writing identical bytes twice is a no-op, differing
// bytes overwrite the entry.
type Store interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
}

// FileStore keeps one file per fingerprint inside a single directory so
// entries can be inspected and cleaned up with normal filesystem tools.
type FileStore struct {
	Directory string
}

func NewFileStore(directory string) (*FileStore, error) {
	if err := os.MkdirAll(directory, 0755); err != nil {
		return nil, err
	}

	return &FileStore{Directory: directory}, nil
}

func (store *FileStore) entryPath(key string) string {
	return filepath.Join(store.Directory, Filename(key))
}

func (store *FileStore) Get(key string) ([]byte, bool) {
	value, err := os.ReadFile(store.entryPath(key))
	if err != nil {
		return nil, false
	}

	return value, true
}

// Put writes through a temporary file and renames it into place so a
// concurrent Get never observes a partially written entry.
func (store *FileStore) Put(key string, value []byte) error {
	if existing, hit := store.Get(key); hit && bytes.Equal(existing, value) {
		return nil
	}

	temporary, err := os.CreateTemp(store.Directory, "entry-*.tmp")
	if err != nil {
		return err
	}

	if _, err := temporary.Write(value); err != nil {
		temporary.Close()
		os.Remove(temporary.Name())
		return err
	}
	if err := temporary.Close(); err != nil {
		os.Remove(temporary.Name())
		return err
	}

	return os.Rename(temporary.Name(), store.entryPath(key))
}

// MemoryStore is used by tests and as a seedable stand-in for the disk store.
type MemoryStore struct {
	mutex   sync.RWMutex
	entries map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: map[string][]byte{},
	}
}

func (store *MemoryStore) Get(key string) ([]byte, bool) {
	store.mutex.RLock()
	defer store.mutex.RUnlock()

	value, hit := store.entries[key]
	return value, hit
}

func (store *MemoryStore) Put(key string, value []byte) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	store.entries[key] = value
	return nil
}

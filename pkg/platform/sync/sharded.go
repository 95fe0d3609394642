// Package sync provides keyed locking for per-record read-modify-write sections.
package sync

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const shardCount = 64

// KeyedMutex serializes work per key by hashing keys onto a fixed set of
// mutexes. Distinct keys may share a shard; the same key always does.
type KeyedMutex struct {
	shards [shardCount]sync.Mutex
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{}
}

func (m *KeyedMutex) Lock(key string) {
	m.shards[shardFor(key)].Lock()
}

func (m *KeyedMutex) Unlock(key string) {
	m.shards[shardFor(key)].Unlock()
}

// With runs fn while holding the lock for key.
func (m *KeyedMutex) With(key string, fn func() error) error {
	m.Lock(key)
	defer m.Unlock(key)
	return fn()
}

func shardFor(key string) int {
	return int(xxhash.Sum64String(key) % shardCount)
}

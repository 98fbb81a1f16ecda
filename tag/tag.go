// Package tag wraps the host's per-object key-value capability with the
// markers the capture engine reads and writes
package tag

import (
	"sync"

	"github.com/google/uuid"
)

const (
	KeyMounted = "moblaunch:mounted"
	KeyOwner   = "moblaunch:owner"
	KeyNoFall  = "moblaunch:nofall"
)

var marker = []byte{1}

// Store is the host key-value capability attached to objects
type Store interface {
	Get(id uuid.UUID, key string) ([]byte, bool)
	Set(id uuid.UUID, key string, value []byte)
	Has(id uuid.UUID, key string) bool
	Remove(id uuid.UUID, key string)
}

// MemoryStore is a process-local Store
type MemoryStore struct {
	mu   sync.RWMutex
	data map[uuid.UUID]map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[uuid.UUID]map[string][]byte)}
}

func (s *MemoryStore) Get(id uuid.UUID, key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[id][key]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true
}

func (s *MemoryStore) Set(id uuid.UUID, key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.data[id]
	if !ok {
		m = make(map[string][]byte)
		s.data[id] = m
	}
	v := make([]byte, len(value))
	copy(v, value)
	m[key] = v
}

func (s *MemoryStore) Has(id uuid.UUID, key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[id][key]
	return ok
}

func (s *MemoryStore) Remove(id uuid.UUID, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.data[id]
	if !ok {
		return
	}
	delete(m, key)
	if len(m) == 0 {
		delete(s.data, id)
	}
}

// Tags translates engine markers into Store reads and writes
type Tags struct {
	store Store
}

func New(store Store) *Tags {
	return &Tags{store: store}
}

func (t *Tags) MarkMounted(obj uuid.UUID) {
	t.store.Set(obj, KeyMounted, marker)
}

func (t *Tags) UnmarkMounted(obj uuid.UUID) {
	t.store.Remove(obj, KeyMounted)
}

func (t *Tags) IsMounted(obj uuid.UUID) bool {
	return t.store.Has(obj, KeyMounted)
}

// SetOwner binds obj to actor
func (t *Tags) SetOwner(obj, actor uuid.UUID) {
	t.store.Set(obj, KeyOwner, []byte(actor.String()))
}

// Owner returns the bound actor; unparsable values count as unowned
func (t *Tags) Owner(obj uuid.UUID) (uuid.UUID, bool) {
	raw, ok := t.store.Get(obj, KeyOwner)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.ParseBytes(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (t *Tags) ClearOwner(obj uuid.UUID) {
	t.store.Remove(obj, KeyOwner)
}

// MarkNoFall suppresses the next fall damage of a launched object
func (t *Tags) MarkNoFall(obj uuid.UUID) {
	t.store.Set(obj, KeyNoFall, marker)
}

// ConsumeNoFall clears the no-fall marker and reports whether it was set
func (t *Tags) ConsumeNoFall(obj uuid.UUID) bool {
	if !t.store.Has(obj, KeyNoFall) {
		return false
	}
	t.store.Remove(obj, KeyNoFall)
	return true
}

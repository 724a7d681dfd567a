package reconciler

import (
	"strings"
	"sync"

	"github.com/func/seeder/resource"
)

// refMap maps a natural key of a kind to the identifier assigned by the
// server. It only grows during a run.
type refMap struct {
	mu  sync.RWMutex
	ids map[string]string
}

func refKey(kind string, key resource.Key) string {
	return kind + "\x00" + strings.Join(key, "\x00")
}

func (m *refMap) Get(kind string, key resource.Key) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.ids[refKey(kind, key)]
	return id, ok
}

// Put adds an identifier. Adding a different identifier for a key that is
// already mapped is an error.
func (m *refMap) Put(kind string, key resource.Key, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ids == nil {
		m.ids = make(map[string]string)
	}
	k := refKey(kind, key)
	if prev, ok := m.ids[k]; ok && prev != id {
		return resource.Errorf(resource.AmbiguousRemote, "%s %s resolves to both %s and %s", kind, key, prev, id)
	}
	m.ids[k] = id
	return nil
}

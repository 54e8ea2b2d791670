package storage

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// MemoryDB is an in memory implementation of ServiceStorage that is safe for
// concurrent use. State does not survive a restart; config validation refuses it
// in production.
type MemoryDB struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
	sets map[string]map[string][]string
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		data: make(map[string]map[string][]byte),
		sets: make(map[string]map[string][]string),
	}
}

func (m *MemoryDB) Type() Type {
	return Memory
}

func (m *MemoryDB) URI() string {
	return "memory"
}

func (m *MemoryDB) IsOpen() bool {
	return true
}

func (m *MemoryDB) Close() error {
	return nil
}

func (m *MemoryDB) Write(_ context.Context, namespace, key string, value []byte) error {
	if err := validateKey(namespace, key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.namespaceLocked(namespace)[key] = value
	return nil
}

func (m *MemoryDB) WriteIfAbsent(_ context.Context, namespace, key string, value []byte) (bool, error) {
	if err := validateKey(namespace, key); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ns := m.namespaceLocked(namespace)
	if _, present := ns[key]; present {
		return false, nil
	}
	ns[key] = value
	return true, nil
}

func (m *MemoryDB) Read(_ context.Context, namespace, key string) ([]byte, error) {
	if err := validateKey(namespace, key); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ns, ok := m.data[namespace]
	if !ok {
		return nil, nil
	}
	return ns[key], nil
}

func (m *MemoryDB) ReadAll(_ context.Context, namespace string) (map[string][]byte, error) {
	if namespace == "" {
		return nil, errors.New("namespace required")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string][]byte)
	for k, v := range m.data[namespace] {
		result[k] = v
	}
	return result, nil
}

func (m *MemoryDB) Delete(_ context.Context, namespace, key string) error {
	if err := validateKey(namespace, key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if ns, ok := m.data[namespace]; ok {
		delete(ns, key)
	}
	return nil
}

func (m *MemoryDB) DeleteNamespace(_ context.Context, namespace string) error {
	if namespace == "" {
		return errors.New("namespace required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, namespace)
	delete(m.sets, namespace)
	return nil
}

func (m *MemoryDB) AddToSet(_ context.Context, namespace, setKey, member string) error {
	if err := validateKey(namespace, setKey); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sets := m.setsLocked(namespace)
	for _, existing := range sets[setKey] {
		if existing == member {
			return nil
		}
	}
	sets[setKey] = append(sets[setKey], member)
	return nil
}

func (m *MemoryDB) RemoveFromSet(_ context.Context, namespace, setKey, member string) error {
	if err := validateKey(namespace, setKey); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sets := m.setsLocked(namespace)
	members := sets[setKey]
	for i, existing := range members {
		if existing == member {
			sets[setKey] = append(members[:i:i], members[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MemoryDB) SetMembers(_ context.Context, namespace, setKey string) ([]string, error) {
	if err := validateKey(namespace, setKey); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	sets, ok := m.sets[namespace]
	if !ok {
		return nil, nil
	}
	members := make([]string, len(sets[setKey]))
	copy(members, sets[setKey])
	return members, nil
}

func (m *MemoryDB) ClearSet(_ context.Context, namespace, setKey string) error {
	if err := validateKey(namespace, setKey); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if sets, ok := m.sets[namespace]; ok {
		delete(sets, setKey)
	}
	return nil
}

func (m *MemoryDB) ReplaceAll(_ context.Context, namespace, setKey string, entries []SetEntry) error {
	if err := validateKey(namespace, setKey); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ns := make(map[string][]byte, len(entries))
	members := make([]string, 0, len(entries))
	for _, entry := range entries {
		ns[entry.Member] = entry.Value
		members = append(members, entry.Member)
	}
	m.data[namespace] = ns
	m.sets[namespace] = map[string][]string{setKey: members}
	return nil
}

// namespaceLocked returns the namespace map, creating it if needed. Callers hold mu.
func (m *MemoryDB) namespaceLocked(namespace string) map[string][]byte {
	ns, ok := m.data[namespace]
	if !ok {
		ns = make(map[string][]byte)
		m.data[namespace] = ns
	}
	return ns
}

func (m *MemoryDB) setsLocked(namespace string) map[string][]string {
	sets, ok := m.sets[namespace]
	if !ok {
		sets = make(map[string][]string)
		m.sets[namespace] = sets
	}
	return sets
}

func validateKey(namespace, key string) error {
	if namespace == "" {
		return errors.New("namespace required")
	}
	if key == "" {
		return errors.New("key required")
	}
	return nil
}

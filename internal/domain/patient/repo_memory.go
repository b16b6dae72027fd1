package patient

import (
	"context"
	"sync"
)

// memoryStore keeps encoded records in a map. Records are copied on the way
// in and out, so callers never share state with the store.
type memoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() Store {
	return &memoryStore{data: make(map[string][]byte)}
}

func (m *memoryStore) Get(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	data, ok := m.data[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decodeRecord(data)
}

func (m *memoryStore) GetAll(_ context.Context) (map[string]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*Record, len(m.data))
	for id, data := range m.data {
		rec, err := decodeRecord(data)
		if err != nil {
			return nil, err
		}
		out[id] = rec
	}
	return out, nil
}

func (m *memoryStore) FindByName(ctx context.Context, name string) (*Record, error) {
	all, err := m.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	key := nameKey(name)
	for _, rec := range all {
		if nameKey(rec.Demographics.Name) == key {
			return rec, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryStore) Save(_ context.Context, rec *Record) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[rec.PatientID] = data
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[id]; !ok {
		return false, nil
	}
	delete(m.data, id)
	return true, nil
}

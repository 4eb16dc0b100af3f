package sink

import (
	"context"
	"sync"
)

func NewMemoryStorage() Storage {
	return &memoryStorageImpl{
		records: make(map[string][]Record),
	}
}

type memoryStorageImpl struct {
	lock    sync.RWMutex
	records map[string][]Record
}

func (impl *memoryStorageImpl) Save(_ context.Context, key string, records []Record) error {
	impl.lock.Lock()
	defer impl.lock.Unlock()

	impl.records[key] = append(impl.records[key], records...)

	return nil
}

func (impl *memoryStorageImpl) Load(_ context.Context, key string) ([]Record, error) {
	impl.lock.RLock()
	defer impl.lock.RUnlock()

	return append([]Record{}, impl.records[key]...), nil
}

func (impl *memoryStorageImpl) Remove(_ context.Context, key string) error {
	impl.lock.Lock()
	defer impl.lock.Unlock()

	delete(impl.records, key)

	return nil
}

package cache

import (
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

const defaultLRUSize = 1024

// MemCache is an in-memory CacheProvider holding one LRU per namespace.
// Memory usage should be considered when choosing the cache size:
// roughly, memory = size * averageResponseSize per namespace.
type MemCache struct {
	mutex      *sync.RWMutex
	size       int
	namespaces map[string]*lru.Cache
}

// NewMemCache creates an in-memory cache where each namespace holds at
// most size entries. A non-positive size selects a default.
func NewMemCache(size int) MemCache {
	if size <= 0 {
		size = defaultLRUSize
	}
	return MemCache{
		mutex:      &sync.RWMutex{},
		size:       size,
		namespaces: make(map[string]*lru.Cache),
	}
}

func (m MemCache) Get(namespace, key string) (CacheEntry, bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	ns, ok := m.namespaces[namespace]
	if !ok {
		return CacheEntry{}, false, nil
	}
	obj, ok := ns.Get(key)
	if !ok {
		return CacheEntry{}, false, nil
	}
	return obj.(CacheEntry), true, nil
}

func (m MemCache) Put(namespace, key string, entry CacheEntry) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	ns, err := m.namespace(namespace)
	if err != nil {
		return err
	}
	ns.Add(key, entry)
	return nil
}

func (m MemCache) Purge(namespace, key string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if ns, ok := m.namespaces[namespace]; ok {
		ns.Remove(key)
	}
	return nil
}

func (m MemCache) Keys(namespace string) ([]string, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	keys := make([]string, 0)
	ns, ok := m.namespaces[namespace]
	if !ok {
		return keys, nil
	}
	for _, key := range ns.Keys() {
		keys = append(keys, key.(string))
	}
	return keys, nil
}

func (m MemCache) EnsureNamespace(namespace string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	_, err := m.namespace(namespace)
	return err
}

func (m MemCache) Namespaces() ([]string, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	names := make([]string, 0, len(m.namespaces))
	for name := range m.namespaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m MemCache) DropNamespace(namespace string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.namespaces, namespace)
	return nil
}

// namespace returns the LRU for the given namespace, creating it if
// needed. The caller must hold the write lock.
func (m MemCache) namespace(namespace string) (*lru.Cache, error) {
	ns, ok := m.namespaces[namespace]
	if ok {
		return ns, nil
	}
	ns, err := lru.New(m.size)
	if err != nil {
		return nil, err
	}
	m.namespaces[namespace] = ns
	return ns, nil
}

package cache

import "time"

// CacheProvider is an interface for a cache provider.
// It stores and retrieves []byte values, which represent HTTP responses,
// grouped into named caches ("namespaces"). A namespace exists either
// because an entry was stored in it or because it was created explicitly
// with EnsureNamespace. Absence of an entry is a miss, never an error.
//
// Implementations must be thread-safe!
type CacheProvider interface {
	// Get returns the entry stored under the given key in the given
	// namespace. It also returns a boolean indicating whether the entry
	// was found.
	Get(namespace, key string) (CacheEntry, bool, error)
	// Put stores the entry under the given key in the given namespace,
	// replacing any previous entry. The namespace is created if it does
	// not exist yet.
	Put(namespace, key string, entry CacheEntry) error
	// Purge removes the entry for the given key from the namespace.
	// Purging a missing key is not an error.
	Purge(namespace, key string) error
	// Keys returns all keys stored in the given namespace.
	Keys(namespace string) ([]string, error)
	// EnsureNamespace creates the given namespace if it does not exist.
	// An existing namespace and its entries are left untouched.
	EnsureNamespace(namespace string) error
	// Namespaces returns the names of all namespaces, including empty
	// ones created with EnsureNamespace.
	Namespaces() ([]string, error)
	// DropNamespace removes the namespace and every entry stored in it.
	DropNamespace(namespace string) error
}

// CacheEntry is a single stored response.
type CacheEntry struct {
	Key         string
	RequestedAt time.Time
	ReceivedAt  time.Time
	Bytes       []byte
}

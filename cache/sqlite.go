package cache

import (
	"database/sql"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/golang/snappy"
)

// SQLiteCache is a CacheProvider backed by a single sqlite database.
// Response bytes are stored snappy-compressed.
// Namespaces are tracked in a separate table so that empty namespaces
// (created on install, populated only later) survive restarts.
type SQLiteCache struct {
	db         *sql.DB
	writeMutex *sync.Mutex
}

// NewSQLiteCache creates a new cache with the given filename as the db.
// If the file name is empty, a new in-memory db is opened.
func NewSQLiteCache(filename string) SQLiteCache {
	if filename == "" {
		filename = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		panic(err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS cache (
		namespace TEXT,
		key TEXT,
		requested_at INTEGER,
		received_at INTEGER,
		bytes BLOB,
		PRIMARY KEY (namespace, key)
	)`)
	if err != nil {
		panic(err)
	}
	_, err = db.Exec("CREATE TABLE IF NOT EXISTS namespaces (name TEXT PRIMARY KEY)")
	if err != nil {
		panic(err)
	}
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		panic(err)
	}
	return SQLiteCache{
		db:         db,
		writeMutex: &sync.Mutex{},
	}
}

func (s SQLiteCache) Get(namespace, key string) (CacheEntry, bool, error) {
	var entry CacheEntry
	var req, rec int64
	var compressed []byte
	err := s.db.QueryRow(`SELECT key, requested_at, received_at, bytes
		FROM cache WHERE namespace = ? AND key = ?`, namespace, key).
		Scan(&entry.Key, &req, &rec, &compressed)
	if err == sql.ErrNoRows {
		return entry, false, nil
	}
	if err != nil {
		return entry, false, err
	}
	bytes, err := snappy.Decode(nil, compressed)
	if err != nil {
		return entry, false, err
	}
	entry.RequestedAt = time.Unix(req, 0)
	entry.ReceivedAt = time.Unix(rec, 0)
	entry.Bytes = bytes
	return entry, true, nil
}

func (s SQLiteCache) Put(namespace, key string, entry CacheEntry) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	if _, err := s.db.Exec("INSERT OR IGNORE INTO namespaces (name) VALUES (?)", namespace); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO cache
		(namespace, key, requested_at, received_at, bytes) VALUES (?, ?, ?, ?, ?)`,
		namespace, key, entry.RequestedAt.Unix(), entry.ReceivedAt.Unix(),
		snappy.Encode(nil, entry.Bytes))
	return err
}

func (s SQLiteCache) Purge(namespace, key string) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.Exec("DELETE FROM cache WHERE namespace = ? AND key = ?", namespace, key)
	return err
}

func (s SQLiteCache) Keys(namespace string) ([]string, error) {
	rows, err := s.db.Query("SELECT key FROM cache WHERE namespace = ?", namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (s SQLiteCache) EnsureNamespace(namespace string) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.Exec("INSERT OR IGNORE INTO namespaces (name) VALUES (?)", namespace)
	return err
}

func (s SQLiteCache) Namespaces() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM namespaces
		UNION SELECT DISTINCT namespace FROM cache ORDER BY 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return names, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s SQLiteCache) DropNamespace(namespace string) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	if _, err := s.db.Exec("DELETE FROM cache WHERE namespace = ?", namespace); err != nil {
		return err
	}
	_, err := s.db.Exec("DELETE FROM namespaces WHERE name = ?", namespace)
	return err
}

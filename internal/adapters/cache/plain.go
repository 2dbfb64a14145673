package cache

import (
	"encoding/json"
	"errors"

	"go.trai.ch/replay/internal/core/domain"
	"go.trai.ch/replay/internal/core/ports"
	"go.trai.ch/zerr"
)

// Plain is the unslotted facade over the replay store for one (kind, salt)
// namespace. It stores one response per hash plus the originating request for
// diagnostics.
type Plain struct {
	store ports.ReplayStore
	locks *LockMap
	kind  string
	salt  string
}

// NewPlain creates a facade for the given cache kind and salt.
func NewPlain(store ports.ReplayStore, locks *LockMap, kind, salt string) *Plain {
	return &Plain{store: store, locks: locks, kind: kind, salt: salt}
}

// Get returns the entry recorded for hash, if any.
func (c *Plain) Get(hash string) (domain.CacheEntry, bool, error) {
	return readEntry(c.store, responseKey(c.kind, c.salt, hash))
}

// Has reports whether an entry exists for hash.
func (c *Plain) Has(hash string) (bool, error) {
	return c.store.Has(responseKey(c.kind, c.salt, hash))
}

// Put records the response for req and, exactly once per hash, the request
// itself. A second Put for the same hash is a protocol violation.
func (c *Plain) Put(req domain.CacheRequest, entry domain.CacheEntry) error {
	if err := c.recordRequest(req); err != nil {
		return err
	}
	return writeEntry(c.store, responseKey(c.kind, c.salt, req.Hash), entry)
}

// recordRequest persists the canonical request payload under the request key.
// The lock map closes the race where two in-flight runs of the same request
// both observe the key as absent.
func (c *Plain) recordRequest(req domain.CacheRequest) error {
	key := requestKey(c.kind, c.salt, req.Hash)
	return c.locks.WithLock(key, func() error {
		exists, err := c.store.Has(key)
		if err != nil || exists {
			return err
		}
		return c.store.Set(key, req.Payload)
	})
}

// Requests returns every recorded request payload in this namespace, keyed by
// hash. Used for the near-miss diff when a required entry is absent.
func (c *Plain) Requests() (map[string][]byte, error) {
	prefix := requestKeyPrefix(c.kind, c.salt)
	out := make(map[string][]byte)
	for _, key := range c.store.Keys() {
		if !isRequestKey(key, c.kind, c.salt) {
			continue
		}
		payload, ok, err := c.store.Get(key)
		if err != nil {
			return nil, err
		}
		if ok {
			out[key[len(prefix):]] = payload
		}
	}
	return out, nil
}

func readEntry(store ports.ReplayStore, key string) (domain.CacheEntry, bool, error) {
	raw, ok, err := store.Get(key)
	if err != nil || !ok {
		return domain.CacheEntry{}, false, err
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		// A value that does not parse is data loss, not a miss.
		return domain.CacheEntry{}, false, zerr.With(errors.Join(domain.ErrCorruptEntry, err), "key", key)
	}
	return entry, true, nil
}

func writeEntry(store ports.ReplayStore, key string, entry domain.CacheEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return errors.Join(domain.ErrEntryMarshalFailed, err)
	}
	return store.Set(key, raw)
}

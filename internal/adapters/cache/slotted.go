package cache

import (
	"go.trai.ch/replay/internal/core/domain"
	"go.trai.ch/replay/internal/core/ports"
)

// Slotted is the facade for model-call caches. Each scenario executes N times
// and slot i independently records run i's response, so repeated runs exercise
// real endpoint variance while each individual slot replays deterministically.
type Slotted struct {
	plain *Plain
	store ports.ReplayStore
	kind  string
	salt  string
}

// NewSlotted creates a slotted facade for the given cache kind and salt.
func NewSlotted(store ports.ReplayStore, locks *LockMap, kind, salt string) *Slotted {
	return &Slotted{
		plain: NewPlain(store, locks, kind, salt),
		store: store,
		kind:  kind,
		salt:  salt,
	}
}

// Get returns the entry recorded for hash in the given slot, if any.
func (c *Slotted) Get(hash string, slot int) (domain.CacheEntry, bool, error) {
	return readEntry(c.store, slottedResponseKey(c.kind, c.salt, hash, slot))
}

// Has reports whether an entry exists for hash in the given slot.
func (c *Slotted) Has(hash string, slot int) (bool, error) {
	return c.store.Has(slottedResponseKey(c.kind, c.salt, hash, slot))
}

// Put records the response for req in the given slot and, exactly once per
// hash, the request itself.
func (c *Slotted) Put(req domain.CacheRequest, slot int, entry domain.CacheEntry) error {
	if err := c.plain.recordRequest(req); err != nil {
		return err
	}
	return writeEntry(c.store, slottedResponseKey(c.kind, c.salt, req.Hash, slot), entry)
}

// Requests returns every recorded request payload in this namespace, keyed by
// hash.
func (c *Slotted) Requests() (map[string][]byte, error) {
	return c.plain.Requests()
}

// LockKey returns the per-(hash, slot) lock key guarding fetch-or-populate.
func (c *Slotted) LockKey(hash string, slot int) string {
	return slottedResponseKey(c.kind, c.salt, hash, slot)
}

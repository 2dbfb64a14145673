// Package ports defines the core interfaces for the harness.
package ports

// ReplayStore is the process-wide layered key/value store backing the replay
// cache. Implementations hold one authoritative base layer plus overlay
// layers; keys are write-once across all layers.
//
//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type ReplayStore interface {
	// Get returns the decompressed value for key, probing the base layer first
	// and then each overlay in discovery order. ok is false when the key is
	// absent from every layer. A value that fails its integrity check returns
	// domain.ErrCorruptEntry, never a miss.
	Get(key string) (value []byte, ok bool, err error)

	// Set writes a new key. It returns domain.ErrEntryExists if the key is
	// already present in any layer; callers must treat that as fatal.
	Set(key string, value []byte) error

	// Has reports whether key is present in any layer.
	Has(key string) (bool, error)

	// Keys returns every key currently visible across all layers.
	Keys() []string

	// StartGC opens a compaction window: a fresh replacement base is created
	// and every subsequent Get migrates its entry there at most once.
	StartGC() error

	// FinishGC swaps the replacement base in, deletes all overlay layers and
	// closes the compaction window.
	FinishGC() error

	// Close releases the store's file handles.
	Close() error
}

package store

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.trai.ch/replay/internal/core/domain"
	"go.trai.ch/zerr"
)

// Layered implements ports.ReplayStore over a directory holding one base
// segment plus an overlays/ subdirectory of historical segments.
//
// The process owns exclusive mutation rights: the base is only written during
// a compaction window, and at most one overlay (created lazily on the first
// Set of a run) accepts writes. Historical overlays from earlier runs are
// opened read-only in sorted name order so probing is deterministic.
type Layered struct {
	mu sync.Mutex

	dir      string
	base     *layer
	overlays []*layer
	active   *layer

	// Compaction state. While gcBase is non-nil every Get hit that is not in
	// gcSeen is re-appended to gcBase, so each key migrates at most once no
	// matter how often it is read during the window.
	gcBase *layer
	gcSeen map[string]bool
}

// Open creates or opens the layered store rooted at dir.
func Open(dir string) (*Layered, error) {
	overlayDir := filepath.Join(dir, domain.OverlaysDirName)
	if err := os.MkdirAll(overlayDir, domain.DirPerm); err != nil {
		return nil, zerr.With(errors.Join(domain.ErrStoreCreateFailed, err), "dir", dir)
	}

	base, err := openLayer(filepath.Join(dir, domain.BaseLayerFileName), false, true)
	if err != nil {
		return nil, err
	}

	names, err := os.ReadDir(overlayDir)
	if err != nil {
		_ = base.close()
		return nil, zerr.With(errors.Join(domain.ErrStoreOpenFailed, err), "dir", overlayDir)
	}
	sort.Slice(names, func(i, j int) bool { return names[i].Name() < names[j].Name() })

	s := &Layered{dir: dir, base: base}
	for _, entry := range names {
		if entry.IsDir() {
			continue
		}
		overlay, err := openLayer(filepath.Join(overlayDir, entry.Name()), false, false)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.overlays = append(s.overlays, overlay)
	}
	return s, nil
}

// Get probes the base first, then overlays in discovery order, then the active
// overlay. During a compaction window, hits migrate into the replacement base.
func (s *Layered) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range s.probeOrder() {
		value, ok, err := l.get(key)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			continue
		}
		if s.gcBase != nil && !s.gcSeen[key] {
			if err := s.gcBase.append(key, value); err != nil {
				return nil, false, err
			}
			s.gcSeen[key] = true
		}
		return value, true, nil
	}

	// A key written while compaction is active lives only in the replacement
	// base until the swap.
	if s.gcBase != nil {
		return s.gcBase.get(key)
	}
	return nil, false, nil
}

// Set writes a new key. Outside a compaction window it goes to the active
// overlay, creating one on first use; during a window it goes straight to the
// replacement base so fresh entries survive the swap.
func (s *Layered) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasLocked(key) {
		return zerr.With(domain.ErrEntryExists, "key", key)
	}

	if s.gcBase != nil {
		if err := s.gcBase.append(key, value); err != nil {
			return err
		}
		s.gcSeen[key] = true
		return nil
	}

	if s.active == nil {
		name := uuid.NewString() + ".bin"
		active, err := openLayer(filepath.Join(s.dir, domain.OverlaysDirName, name), true, true)
		if err != nil {
			return err
		}
		s.active = active
	}
	return s.active.append(key, value)
}

// Has reports whether key is present in any layer.
func (s *Layered) Has(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasLocked(key), nil
}

func (s *Layered) hasLocked(key string) bool {
	for _, l := range s.probeOrder() {
		if l.has(key) {
			return true
		}
	}
	if s.gcBase != nil && s.gcBase.has(key) {
		return true
	}
	return false
}

// Keys returns every key visible across all layers, base first, each key once.
func (s *Layered) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool)
	var keys []string
	layers := s.probeOrder()
	if s.gcBase != nil {
		layers = append(layers, s.gcBase)
	}
	for _, l := range layers {
		for _, key := range l.order {
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
	}
	return keys
}

// probeOrder is base, historical overlays in discovery order, active overlay.
func (s *Layered) probeOrder() []*layer {
	order := make([]*layer, 0, len(s.overlays)+2)
	order = append(order, s.base)
	order = append(order, s.overlays...)
	if s.active != nil {
		order = append(order, s.active)
	}
	return order
}

// StartGC opens a compaction window.
func (s *Layered) StartGC() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gcBase != nil {
		return domain.ErrGCActive
	}

	replacement, err := openLayer(filepath.Join(s.dir, domain.BaseLayerFileName+".tmp"), true, true)
	if err != nil {
		return err
	}
	s.gcBase = replacement
	s.gcSeen = make(map[string]bool)
	return nil
}

// FinishGC atomically swaps the replacement base in for the old base, deletes
// every overlay layer and clears compaction state. Get results are identical
// before and after for every key read during the window.
func (s *Layered) FinishGC() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gcBase == nil {
		return domain.ErrGCNotActive
	}

	if err := s.gcBase.sync(); err != nil {
		return err
	}
	if err := s.gcBase.close(); err != nil {
		return err
	}
	if err := s.base.close(); err != nil {
		return err
	}

	basePath := filepath.Join(s.dir, domain.BaseLayerFileName)
	if err := os.Rename(basePath+".tmp", basePath); err != nil {
		return errors.Join(domain.ErrStoreSwapFailed, err)
	}

	base, err := openLayer(basePath, false, false)
	if err != nil {
		return err
	}
	s.base = base

	for _, overlay := range s.overlays {
		_ = overlay.close()
		if err := os.Remove(overlay.path); err != nil {
			return zerr.With(errors.Join(domain.ErrStoreSwapFailed, err), "layer", overlay.path)
		}
	}
	if s.active != nil {
		_ = s.active.close()
		if err := os.Remove(s.active.path); err != nil {
			return zerr.With(errors.Join(domain.ErrStoreSwapFailed, err), "layer", s.active.path)
		}
	}
	s.overlays = nil
	s.active = nil
	s.gcBase = nil
	s.gcSeen = nil
	return nil
}

// Close releases all file handles. Safe to call more than once.
func (s *Layered) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for _, l := range s.probeOrder() {
		if err := l.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.gcBase != nil {
		if err := s.gcBase.close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.gcBase = nil
		s.gcSeen = nil
	}
	return firstErr
}

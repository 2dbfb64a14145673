// Package baseline persists per-scenario pass-rate summaries as a flat JSON
// file keyed by scenario name.
package baseline

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.trai.ch/zerr"

	"go.trai.ch/replay/internal/core/domain"
)

// Store reads and writes the baseline file.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: filepath.Clean(path)}
}

// Load returns the recorded summaries. A missing or empty file is an empty
// baseline, not an error.
func (s *Store) Load() (map[string]domain.BaselineSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadLocked()
}

// Save writes curr, carrying over recorded summaries for scenarios named in
// skipped so a partial run does not erase their baselines.
func (s *Store) Save(curr map[string]domain.BaselineSummary, skipped []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make(map[string]domain.BaselineSummary, len(curr))
	for name, summary := range curr {
		merged[name] = summary
	}

	if len(skipped) > 0 {
		prev, err := s.loadLocked()
		if err != nil {
			return err
		}
		for _, name := range skipped {
			if summary, ok := prev[name]; ok {
				if _, fresh := merged[name]; !fresh {
					merged[name] = summary
				}
			}
		}
	}

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return errors.Join(domain.ErrBaselineWriteFailed, err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(s.path), domain.DirPerm); err != nil {
		return zerr.With(errors.Join(domain.ErrBaselineWriteFailed, err), "path", s.path)
	}
	//nolint:gosec // Path is cleaned and provided by trusted caller
	if err := os.WriteFile(s.path, data, domain.FilePerm); err != nil {
		return zerr.With(errors.Join(domain.ErrBaselineWriteFailed, err), "path", s.path)
	}
	return nil
}

func (s *Store) loadLocked() (map[string]domain.BaselineSummary, error) {
	//nolint:gosec // Path is cleaned and provided by trusted caller
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]domain.BaselineSummary{}, nil
		}
		return nil, zerr.With(errors.Join(domain.ErrBaselineReadFailed, err), "path", s.path)
	}
	if len(data) == 0 {
		return map[string]domain.BaselineSummary{}, nil
	}

	summaries := make(map[string]domain.BaselineSummary)
	if err := json.Unmarshal(data, &summaries); err != nil {
		return nil, zerr.With(errors.Join(domain.ErrBaselineParseFailed, err), "path", s.path)
	}
	return summaries, nil
}

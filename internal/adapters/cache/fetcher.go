package cache

import (
	"context"
	"fmt"

	"go.trai.ch/replay/internal/core/domain"
	"go.trai.ch/replay/internal/core/ports"
	"go.trai.ch/zerr"
)

// Fetcher is the cache-aware fetch path: replay the slot's recorded response
// when present, otherwise perform the real call once and record it. The lock
// map guarantees that two concurrent fetches of the same (hash, slot) do not
// duplicate the outbound call or race the write-once store.
type Fetcher struct {
	cache  *Slotted
	locks  *LockMap
	mode   domain.CacheMode
	logger ports.Logger
}

// NewFetcher creates a Fetcher operating in the given cache mode.
func NewFetcher(cache *Slotted, locks *LockMap, mode domain.CacheMode, logger ports.Logger) *Fetcher {
	return &Fetcher{cache: cache, locks: locks, mode: mode, logger: logger}
}

// Fetch returns the response for req in the run's slot. replayed reports
// whether it came from the cache.
func (f *Fetcher) Fetch(
	ctx context.Context,
	info domain.RunInfo,
	model string,
	req domain.CacheRequest,
	call ports.CallFunc,
) (resp domain.ModelResponse, replayed bool, err error) {
	if f.mode == domain.CacheDisabled {
		resp, err = call(ctx)
		return resp, false, err
	}

	lockErr := f.locks.WithLock(f.cache.LockKey(req.Hash, info.Slot()), func() error {
		entry, ok, getErr := f.cache.Get(req.Hash, info.Slot())
		if getErr != nil {
			return getErr
		}
		if ok {
			resp = entry.Response()
			replayed = true
			return nil
		}

		if f.mode == domain.CacheRequire || !info.Live {
			return f.requiredMiss(info, req)
		}

		resp, err = call(ctx)
		if err != nil {
			return err
		}
		if resp.RateLimited {
			// An exhausted rate limit is a run failure, not a recorded fact.
			return nil
		}
		return f.cache.Put(req, info.Slot(), resp.Entry(info.Scenario, model))
	})
	if lockErr != nil {
		return domain.ModelResponse{}, false, lockErr
	}
	return resp, replayed, nil
}

// requiredMiss reports a fatal miss, first diffing the request against the
// nearest recorded one to show what drifted.
func (f *Fetcher) requiredMiss(info domain.RunInfo, req domain.CacheRequest) error {
	recorded, reqErr := f.cache.Requests()
	if reqErr != nil {
		return reqErr
	}

	if hash, rendered, found := NearestRequest(req.Payload, recorded); found {
		f.logger.Warn(fmt.Sprintf(
			"no cached response for %s (hash %.12s); nearest recorded request %.12s differs: %s",
			info, req.Hash, hash, rendered,
		))
	} else {
		f.logger.Warn(fmt.Sprintf("no cached response for %s (hash %.12s); cache namespace is empty", info, req.Hash))
	}

	return zerr.With(zerr.With(domain.ErrCacheMissRequired, "run", info.String()), "hash", req.Hash)
}

package store

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"probeserve/probe"
)

type tripleKey struct {
	model     string
	probeType string
	layer     int
}

// CachedStore memoizes another weight store. Weight files never change during
// a running process, so entries are kept for the process lifetime; concurrent
// first requests for the same triple may load twice, which is harmless since
// both loads produce identical values.
type CachedStore struct {
	inner probe.WeightStore
	cache *lru.Cache[tripleKey, probe.Weights]
}

// NewCachedStore wraps inner with an LRU cache of at most size entries.
func NewCachedStore(inner probe.WeightStore, size int) (*CachedStore, error) {
	cache, err := lru.New[tripleKey, probe.Weights](size)
	if err != nil {
		return nil, err
	}
	return &CachedStore{inner: inner, cache: cache}, nil
}

// GetWeights returns the cached weights for the triple, loading from the
// inner store on a miss. Load failures are not cached.
func (s *CachedStore) GetWeights(ctx context.Context, model, probeType string, layer int) (probe.Weights, error) {
	key := tripleKey{model: model, probeType: probeType, layer: layer}
	if w, ok := s.cache.Get(key); ok {
		return w, nil
	}

	w, err := s.inner.GetWeights(ctx, model, probeType, layer)
	if err != nil {
		return probe.Weights{}, err
	}

	s.cache.Add(key, w)
	return w, nil
}

// Len reports how many triples are currently cached.
func (s *CachedStore) Len() int {
	return s.cache.Len()
}

// Copyright 2024 The Carmen Authors
// This file is part of Carmen.
//
// Carmen is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package cached wraps any index.Index with an LRU read-through cache of
// both hits (k -> id) and misses (k -> NotFound), per §4.6's "Optional
// cached wrapper". Grounded on common/lru's generic LRU idiom in the
// teacher pack, backed here by the real third-party
// github.com/hashicorp/golang-lru/v2 (the library that idiom is itself
// adapted from).
package cached

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Fantom-foundation/Carmen/go/backend/index"
	"github.com/Fantom-foundation/Carmen/go/common"
)

type entry struct {
	id    uint32
	found bool
}

// Index is an LRU-cached wrapper over an inner index.Index.
type Index[K common.Keyer] struct {
	inner      index.Index[K]
	cache      *lru.Cache[K, entry]
	cachedHash *common.Hash
}

// New wraps inner with an LRU cache of the given capacity.
func New[K common.Keyer](inner index.Index[K], capacity int) *Index[K] {
	cache, err := lru.New[K, entry](capacity)
	if err != nil {
		// Only returns an error for capacity <= 0; treat as a
		// programmer error rather than plumbing it through every caller.
		panic(err)
	}
	return &Index[K]{inner: inner, cache: cache}
}

func (c *Index[K]) GetOrAdd(k K) (uint32, bool, error) {
	if e, ok := c.cache.Get(k); ok && e.found {
		return e.id, false, nil
	}
	id, isNew, err := c.inner.GetOrAdd(k)
	if err != nil {
		return 0, false, err
	}
	c.cache.Add(k, entry{id: id, found: true})
	if isNew {
		// A new key invalidates any memoized root hash (§4.6).
		c.cachedHash = nil
	}
	return id, isNew, nil
}

func (c *Index[K]) Get(k K) (uint32, bool, error) {
	if e, ok := c.cache.Get(k); ok {
		if !e.found {
			return common.NotFoundId, false, nil
		}
		return e.id, true, nil
	}
	id, found, err := c.inner.Get(k)
	if err != nil {
		return 0, false, err
	}
	c.cache.Add(k, entry{id: id, found: found})
	return id, found, nil
}

func (c *Index[K]) Size() uint32 { return c.inner.Size() }

func (c *Index[K]) GetHash() (common.Hash, error) {
	if c.cachedHash != nil {
		return *c.cachedHash, nil
	}
	h, err := c.inner.GetHash()
	if err != nil {
		return common.Hash{}, err
	}
	c.cachedHash = &h
	return h, nil
}

func (c *Index[K]) Flush() error { return c.inner.Flush() }
func (c *Index[K]) Close() error { return c.inner.Close() }

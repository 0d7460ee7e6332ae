// Copyright 2024 The Carmen Authors
// This file is part of Carmen.
//
// Carmen is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package store implements the L3 fixed-value store (§4.5): a page-packed
// array mapping a dense integer key to a fixed-size, trivially-copyable
// value, hashed via an L2 hash tree.
package store

import (
	"github.com/Fantom-foundation/Carmen/go/backend/eviction"
	"github.com/Fantom-foundation/Carmen/go/backend/hashtree"
	"github.com/Fantom-foundation/Carmen/go/backend/pagefile"
	"github.com/Fantom-foundation/Carmen/go/backend/pagepool"
	"github.com/Fantom-foundation/Carmen/go/common"
)

// Codec converts a fixed-size value type to and from its on-page byte
// representation. Implementations must produce exactly Size() bytes.
type Codec[V any] interface {
	Size() int
	Write(dst []byte, v V)
	Read(src []byte) V
}

// HashMode selects between the eager and lazy hashing variants of §4.5.
type HashMode int

const (
	// Lazy only marks pages dirty on write and re-reads them from the
	// pool when GetHash is called.
	Lazy HashMode = iota
	// Eager computes and installs a page's hash the moment it is
	// evicted, avoiding a re-fetch on the next GetHash.
	Eager
)

// Store is a page-backed fixed-value store for key type K (any unsigned
// integer convertible to uint64) and value type V.
type Store[K ~uint32 | ~uint64, V any] struct {
	pool     *pagepool.Pool
	codec    Codec[V]
	tree     *hashtree.Tree
	perPage  int
	zero     V
	hashMode HashMode
}

type poolPageSource struct {
	pool *pagepool.Pool
}

func (s poolPageSource) GetPageData(id uint64) ([]byte, error) {
	return s.pool.Get(pagefile.PageId(id))
}

// New creates a fixed-value store over file using pool capacity poolSize
// page buffers and the given branching factor for its hash tree.
func New[K ~uint32 | ~uint64, V any](file pagefile.File, poolSize int, policy eviction.Policy, codec Codec[V], branchingFactor int, mode HashMode) *Store[K, V] {
	pool := pagepool.New(file, poolSize, policy)
	perPage := file.PageSize() / codec.Size()
	if perPage == 0 {
		perPage = 1
	}
	s := &Store[K, V]{
		pool:     pool,
		codec:    codec,
		perPage:  perPage,
		hashMode: mode,
	}
	s.tree = hashtree.New(poolPageSource{pool}, branchingFactor)
	if mode == Eager {
		pool.AddListener(eagerListener[K, V]{s})
	}
	return s
}

type eagerListener[K ~uint32 | ~uint64, V any] struct {
	s *Store[K, V]
}

func (l eagerListener[K, V]) AfterLoad(_ pagefile.PageId, _ []byte) {}

func (l eagerListener[K, V]) BeforeEvict(id pagefile.PageId, page []byte, dirty bool) {
	if !dirty {
		return
	}
	l.s.tree.UpdateHash(uint64(id), common.Sha256Concat(page))
}

func (s *Store[K, V]) pageAndOffset(k K) (uint64, int) {
	idx := uint64(k)
	page := idx / uint64(s.perPage)
	offset := int(idx%uint64(s.perPage)) * s.codec.Size()
	return page, offset
}

// Get returns the value for k, or the zero value of V if k was never
// written (§3.3's store totality invariant).
func (s *Store[K, V]) Get(k K) (V, error) {
	page, offset := s.pageAndOffset(k)
	buf, err := s.pool.Get(pagefile.PageId(page))
	if err != nil {
		return s.zero, err
	}
	return s.codec.Read(buf[offset : offset+s.codec.Size()]), nil
}

// Set writes v at k. If v differs from the current value, the containing
// page is marked dirty in both the pool and the hash tree (§4.5).
func (s *Store[K, V]) Set(k K, v V) error {
	page, offset := s.pageAndOffset(k)
	buf, err := s.pool.Get(pagefile.PageId(page))
	if err != nil {
		return err
	}
	size := s.codec.Size()
	tmp := make([]byte, size)
	s.codec.Write(tmp, v)
	if bytesEqual(buf[offset:offset+size], tmp) {
		return nil
	}
	copy(buf[offset:offset+size], tmp)
	s.pool.MarkAsDirty(pagefile.PageId(page))
	s.tree.MarkDirty(page)
	return nil
}

// GetHash returns the store's L2 hash-tree root.
func (s *Store[K, V]) GetHash() (common.Hash, error) { return s.tree.GetHash() }

// Flush writes back all dirty pages.
func (s *Store[K, V]) Flush() error { return s.pool.Flush() }

// Close flushes and closes the underlying pool/file.
func (s *Store[K, V]) Close() error { return s.pool.Close() }

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Copyright 2024 The Carmen Authors
// This file is part of Carmen.
//
// Carmen is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package state

import (
	"path/filepath"

	"github.com/Fantom-foundation/Carmen/go/backend/depot"
	"github.com/Fantom-foundation/Carmen/go/backend/eviction"
	"github.com/Fantom-foundation/Carmen/go/backend/hashtree"
	"github.com/Fantom-foundation/Carmen/go/backend/index"
	indexleveldb "github.com/Fantom-foundation/Carmen/go/backend/index/leveldb"
	indexmemory "github.com/Fantom-foundation/Carmen/go/backend/index/memory"
	"github.com/Fantom-foundation/Carmen/go/backend/ldb"
	"github.com/Fantom-foundation/Carmen/go/backend/pagefile"
	"github.com/Fantom-foundation/Carmen/go/backend/store"
	"github.com/Fantom-foundation/Carmen/go/common"
	"github.com/Fantom-foundation/Carmen/go/internal/ctxreg"
)

const storePageSize = 4096

// backends opens every L3 component a live state needs, sharing one
// on-disk LevelDB handle across all index/depot key-spaces via
// internal/ctxreg (§9's "shared handle" pattern) when running on disk.
type backends struct {
	params Parameters
	ctx    *ctxreg.Context
}

func newBackends(params Parameters) *backends {
	return &backends{params: params, ctx: ctxreg.New()}
}

func (b *backends) sharedDB() (*ldb.DB, error) {
	return ctxreg.GetOrCreate(b.ctx, func() (*ldb.DB, func() error, error) {
		db, err := ldb.Open(filepath.Join(b.params.Directory, "index.db"))
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	})
}

// openIndex opens a dense-id index keyed by K, namespaced under prefix
// when running on disk.
func openIndex[K common.Keyer](b *backends, prefix byte) (index.Index[K], error) {
	if b.params.Directory == "" {
		return indexmemory.New[K](), nil
	}
	db, err := b.sharedDB()
	if err != nil {
		return nil, err
	}
	return indexleveldb.New[K](db, prefix)
}

// openFilePool opens a page-backed file for a store, namespaced under
// name when running on disk.
func (b *backends) openFilePool(name string) (pagefile.File, error) {
	if b.params.Directory == "" {
		return pagefile.NewMemory(storePageSize), nil
	}
	return pagefile.OpenOnDisk(filepath.Join(b.params.Directory, name+".store"), storePageSize)
}

func openStore[K ~uint32 | ~uint64, V any](b *backends, name string, codec store.Codec[V]) (*store.Store[K, V], error) {
	file, err := b.openFilePool(name)
	if err != nil {
		return nil, err
	}
	return store.New[K, V](file, b.params.PoolSize, eviction.NewLRU(), codec, hashtree.DefaultBranchingFactor, store.Lazy), nil
}

func openDepot(b *backends, prefix byte) (*depot.Depot, error) {
	if b.params.Directory == "" {
		return depot.NewMemory(depot.DefaultBoxSize), nil
	}
	db, err := b.sharedDB()
	if err != nil {
		return nil, err
	}
	return depot.NewLevelDBWithDB(db, prefix, depot.DefaultBoxSize), nil
}

// Index key-space prefixes, distinct per sub-component sharing one
// on-disk LevelDB handle.
const (
	prefixAddressIndex byte = iota + 0x10
	prefixKeyIndex
	prefixSlotIndex
	prefixCodeDepot
)

func closeAll(closers ...interface{ Close() error }) error {
	var first error
	for _, c := range closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func flushAll(flushers ...interface{ Flush() error }) error {
	var first error
	for _, f := range flushers {
		if f == nil {
			continue
		}
		if err := f.Flush(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Copyright 2024 The Carmen Authors
// This file is part of Carmen.
//
// Carmen is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package leveldb implements the LevelDB-backed Index (§4.6): keys stored
// under a key-space prefix, mapped to an 8-byte little-endian ID; a
// last_index sentinel records the next ID to assign and a hash sentinel
// persists the insertion-order chain hash.
package leveldb

import (
	"encoding/binary"

	"github.com/Fantom-foundation/Carmen/go/backend/ldb"
	"github.com/Fantom-foundation/Carmen/go/common"
)

// Sentinel key suffixes, distinguished from real keys by being shorter
// than any encoded domain key.
var (
	sentinelLastIndex = []byte{0xff, 0x00}
	sentinelHash      = []byte{0xff, 0x01}
)

// Index is the LevelDB-backed index backend.
type Index[K common.Keyer] struct {
	db     *ldb.DB
	prefix byte
	owned  bool

	size  uint32
	chain common.ChainHash
	dirty bool
}

// Open opens (or resumes) a standalone LevelDB index rooted at dir, with
// all its keys namespaced under the single-byte prefix. Use New instead
// when several index/depot/archive key-spaces share one LevelDB directory
// (the common case, via internal/ctxreg).
func Open[K common.Keyer](dir string, prefix byte) (*Index[K], error) {
	db, err := ldb.Open(dir)
	if err != nil {
		return nil, err
	}
	idx, err := New[K](db, prefix)
	if err != nil {
		return nil, err
	}
	idx.owned = true
	return idx, nil
}

// New builds an index over an already-open, possibly shared, LevelDB
// handle, namespaced under the single-byte prefix. Close does not close a
// shared db; the owner of the shared handle (typically an
// internal/ctxreg.Context) is responsible for closing it once.
func New[K common.Keyer](db *ldb.DB, prefix byte) (*Index[K], error) {
	idx := &Index[K]{db: db, prefix: prefix}

	if raw, found, err := db.Get(idx.sentinelKey(sentinelLastIndex)); err != nil {
		return nil, err
	} else if found {
		idx.size = binary.BigEndian.Uint32(raw)
	}
	if raw, found, err := db.Get(idx.sentinelKey(sentinelHash)); err != nil {
		return nil, err
	} else if found {
		var h common.Hash
		copy(h[:], raw)
		idx.chain = common.ChainHashFrom(h)
	}
	return idx, nil
}

func (idx *Index[K]) sentinelKey(suffix []byte) []byte {
	return append([]byte{idx.prefix}, suffix...)
}

func (idx *Index[K]) dataKey(k K) []byte {
	return append([]byte{idx.prefix}, k.Bytes()...)
}

func (idx *Index[K]) Get(k K) (uint32, bool, error) {
	raw, found, err := idx.db.Get(idx.dataKey(k))
	if err != nil {
		return common.NotFoundId, false, err
	}
	if !found {
		return common.NotFoundId, false, nil
	}
	return binary.LittleEndian.Uint32(raw), true, nil
}

func (idx *Index[K]) GetOrAdd(k K) (uint32, bool, error) {
	if id, found, err := idx.Get(k); err != nil {
		return 0, false, err
	} else if found {
		return id, false, nil
	}

	id := idx.size
	var raw [8]byte
	binary.LittleEndian.PutUint64(raw[:], uint64(id))

	batch := idx.db.NewBatch()
	batch.Put(idx.dataKey(k), raw[:])
	var lastIndex [4]byte
	binary.BigEndian.PutUint32(lastIndex[:], id+1)
	batch.Put(idx.sentinelKey(sentinelLastIndex), lastIndex[:])
	if err := idx.db.WriteBatch(batch); err != nil {
		return 0, false, err
	}

	idx.size = id + 1
	idx.chain.Add(k.Bytes())
	idx.dirty = true
	return id, true, nil
}

func (idx *Index[K]) Size() uint32 { return idx.size }

// GetHash returns the chain hash over every key inserted so far,
// persisting it under the hash sentinel.
func (idx *Index[K]) GetHash() (common.Hash, error) {
	h := idx.chain.Hash()
	if idx.dirty {
		if err := idx.db.Put(idx.sentinelKey(sentinelHash), h[:]); err != nil {
			return common.Hash{}, err
		}
		idx.dirty = false
	}
	return h, nil
}

func (idx *Index[K]) Flush() error { return nil }

func (idx *Index[K]) Close() error {
	if !idx.owned {
		return nil
	}
	return idx.db.Close()
}

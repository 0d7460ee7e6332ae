// Copyright 2024 The Carmen Authors
// This file is part of Carmen.
//
// Carmen is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package memory implements the in-memory Index backend (§4.6): a hash
// map plus an insertion-ordered slice of keys, with no persistence.
package memory

import "github.com/Fantom-foundation/Carmen/go/common"

// Index is the in-memory index backend.
type Index[K common.Keyer] struct {
	ids      map[K]uint32
	keys     []K
	chain    common.ChainHash
	unhashed int
}

// New creates an empty in-memory index.
func New[K common.Keyer]() *Index[K] {
	return &Index[K]{ids: map[K]uint32{}}
}

func (idx *Index[K]) GetOrAdd(k K) (uint32, bool, error) {
	if id, ok := idx.ids[k]; ok {
		return id, false, nil
	}
	id := uint32(len(idx.keys))
	idx.ids[k] = id
	idx.keys = append(idx.keys, k)
	idx.unhashed++
	return id, true, nil
}

func (idx *Index[K]) Get(k K) (uint32, bool, error) {
	id, ok := idx.ids[k]
	if !ok {
		return common.NotFoundId, false, nil
	}
	return id, true, nil
}

func (idx *Index[K]) Size() uint32 { return uint32(len(idx.keys)) }

// GetHash drains the queue of keys inserted since the last call, folding
// each into the chain hash in insertion order (§4.6: "computed lazily").
func (idx *Index[K]) GetHash() (common.Hash, error) {
	start := len(idx.keys) - idx.unhashed
	for _, k := range idx.keys[start:] {
		idx.chain.Add(k.Bytes())
	}
	idx.unhashed = 0
	return idx.chain.Hash(), nil
}

func (idx *Index[K]) Flush() error { return nil }
func (idx *Index[K]) Close() error { return nil }

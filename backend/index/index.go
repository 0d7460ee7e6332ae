// Copyright 2024 The Carmen Authors
// This file is part of Carmen.
//
// Carmen is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package index defines the L3 Index contract (§4.6): an injective
// insertion-ordered mapping from a domain key to a dense 32-bit ID, with
// an insertion-order chain hash. Concrete backends live in sibling
// packages: memory (in-process map), filehash (linear-hash file-backed
// table), leveldb, and cached (an LRU read-through wrapper over any of
// the above).
package index

import "github.com/Fantom-foundation/Carmen/go/common"

// NotFound is returned by Get when k has never been inserted.
const NotFound = common.NotFoundId

// Index is the capability trait shared by every index backend.
type Index[K common.Keyer] interface {
	// GetOrAdd returns k's ID, assigning the next ID in insertion order
	// if k has not been seen before. isNew reports whether an ID was
	// just assigned.
	GetOrAdd(k K) (id uint32, isNew bool, err error)
	// Get returns k's ID and true, or (NotFound, false) if k was never
	// inserted (§3.3 index injectivity).
	Get(k K) (id uint32, found bool, err error)
	// Size returns the number of keys ever inserted.
	Size() uint32
	// GetHash returns the insertion-order chain hash over every
	// inserted key (§3.2, §4.6).
	GetHash() (common.Hash, error)
	Flush() error
	Close() error
}

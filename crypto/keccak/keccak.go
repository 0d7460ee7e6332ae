// Copyright 2024 The Carmen Authors
// This file is part of Carmen.
//
// Carmen is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package keccak wraps golang.org/x/crypto/sha3's legacy Keccak-256
// implementation, the hash function used for contract code hashing
// throughout Carmen (§3.3 code/hash coherence).
package keccak

import (
	"hash"
	"sync"

	"golang.org/x/crypto/sha3"
)

// Size is the length in bytes of a Keccak-256 digest.
const Size = 32

var hasherPool = sync.Pool{
	New: func() any { return sha3.NewLegacyKeccak256() },
}

// Sum256 returns the Keccak-256 digest of data.
func Sum256(data []byte) [Size]byte {
	h := hasherPool.Get().(hash.Hash)
	defer hasherPool.Put(h)
	h.Reset()
	h.Write(data)
	var out [Size]byte
	copy(out[:], h.Sum(nil))
	return out
}

// EmptyCodeHash is the Keccak-256 digest of the empty byte string, the
// default code hash for every address whose code has never been set
// (§3.3, §8 scenario 3).
var EmptyCodeHash = Sum256(nil)

// NewHasher returns a fresh streaming Keccak-256 hash.Hash.
func NewHasher() hash.Hash { return sha3.NewLegacyKeccak256() }

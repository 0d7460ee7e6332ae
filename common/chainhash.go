// Copyright 2024 The Carmen Authors
// This file is part of Carmen.
//
// Carmen is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package common

import "crypto/sha256"

// ChainHash implements the insertion-order chain hash used by indexes
// (§3.2, Glossary): h0 = 0; hi = SHA256(hi-1 || xi).
type ChainHash struct {
	current Hash
}

// NewChainHash returns a chain hash starting from the zero hash.
func NewChainHash() ChainHash { return ChainHash{} }

// ChainHashFrom resumes a chain hash from a previously persisted value.
func ChainHashFrom(h Hash) ChainHash { return ChainHash{current: h} }

// Add folds key into the chain and returns the new running hash.
func (c *ChainHash) Add(key []byte) Hash {
	h := sha256.New()
	h.Write(c.current[:])
	h.Write(key)
	copy(c.current[:], h.Sum(nil))
	return c.current
}

// Hash returns the current running hash without mutating the chain.
func (c *ChainHash) Hash() Hash { return c.current }

// Sha256Concat hashes the concatenation of the given byte slices.
func Sha256Concat(parts ...[]byte) Hash {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

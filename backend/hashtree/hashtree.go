// Copyright 2024 The Carmen Authors
// This file is part of Carmen.
//
// Carmen is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package hashtree implements the L2 fixed-arity hash reduction tree
// (§4.4): the mechanism by which any page-backed store derives its root
// hash from the SHA-256 digests of its individual pages.
package hashtree

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/Fantom-foundation/Carmen/go/common"
)

// PageSource supplies the raw bytes of a page to be hashed. Stores
// implement this directly over their page pool.
type PageSource interface {
	GetPageData(id uint64) ([]byte, error)
}

// DefaultBranchingFactor is the typical arity used across Carmen's stores
// (§4.4).
const DefaultBranchingFactor = 32

// Tree is the L2 hash tree over a PageSource (§4.4).
type Tree struct {
	source   PageSource
	factor   int
	numPages uint64

	// levels[0] holds one leaf hash per page; levels[k] holds the k-th
	// level's parent hashes.
	levels [][]common.Hash

	dirtyPages map[uint64]struct{}
	dirty      bool
	root       common.Hash
}

// New creates an empty hash tree with the given branching factor over
// source.
func New(source PageSource, branchingFactor int) *Tree {
	return &Tree{
		source:     source,
		factor:     branchingFactor,
		levels:     [][]common.Hash{{}},
		dirtyPages: map[uint64]struct{}{},
	}
}

// MarkDirty records that page p's bytes changed and grows the tracked page
// count if necessary (§4.4).
func (t *Tree) MarkDirty(p uint64) {
	t.dirtyPages[p] = struct{}{}
	t.dirty = true
	if p+1 > t.numPages {
		t.growLeaves(p + 1)
	}
}

// UpdateHash directly installs a precomputed leaf hash for page p (the
// eager-hashing path, §4.5), clearing its dirty flag and propagating
// dirtiness to its parent (§4.4).
func (t *Tree) UpdateHash(p uint64, h common.Hash) {
	if p+1 > t.numPages {
		t.growLeaves(p + 1)
	}
	t.levels[0][p] = h
	delete(t.dirtyPages, p)
	t.dirty = true
}

func (t *Tree) growLeaves(n uint64) {
	if uint64(len(t.levels[0])) >= n {
		t.numPages = n
		return
	}
	grown := make([]common.Hash, n)
	copy(grown, t.levels[0])
	t.levels[0] = grown
	t.numPages = n
}

// NumPages returns the number of pages currently tracked.
func (t *Tree) NumPages() uint64 { return t.numPages }

// GetHash recomputes (if necessary) and returns the root hash (§4.4).
func (t *Tree) GetHash() (common.Hash, error) {
	if t.numPages == 0 {
		return common.Hash{}, nil
	}
	if !t.dirty {
		return t.root, nil
	}

	for p := range t.dirtyPages {
		data, err := t.source.GetPageData(p)
		if err != nil {
			return common.Hash{}, err
		}
		t.levels[0][p] = sha256Sum(data)
	}
	t.dirtyPages = map[uint64]struct{}{}

	level := t.levels[0]
	for li := 0; ; li++ {
		if len(level) <= 1 {
			t.root = firstOrZero(level)
			t.dirty = false
			return t.root, nil
		}
		padded := padToMultiple(level, t.factor)
		next := make([]common.Hash, len(padded)/t.factor)
		for q := range next {
			h := sha256.New()
			for _, child := range padded[q*t.factor : (q+1)*t.factor] {
				h.Write(child[:])
			}
			var sum common.Hash
			copy(sum[:], h.Sum(nil))
			next[q] = sum
		}
		if li+1 < len(t.levels) {
			t.levels[li+1] = next
		} else {
			t.levels = append(t.levels, next)
		}
		level = next
	}
}

func firstOrZero(level []common.Hash) common.Hash {
	if len(level) == 0 {
		return common.Hash{}
	}
	return level[0]
}

func padToMultiple(level []common.Hash, factor int) []common.Hash {
	rem := len(level) % factor
	if rem == 0 {
		return level
	}
	padded := make([]common.Hash, len(level)+(factor-rem))
	copy(padded, level)
	return padded
}

func sha256Sum(data []byte) common.Hash {
	sum := sha256.Sum256(data)
	return common.Hash(sum)
}

// Persist serializes the tree's level-0 hashes and page count, e.g. for
// writing to a hash.dat checkpoint file or a LevelDB key range (§4.4,
// §6.4).
func (t *Tree) Persist() []byte {
	out := make([]byte, 8+len(t.levels[0])*common.HashLength)
	binary.BigEndian.PutUint64(out, t.numPages)
	for i, h := range t.levels[0] {
		copy(out[8+i*common.HashLength:], h[:])
	}
	return out
}

// Restore loads a previously persisted tree. Restored trees are considered
// up-to-date (§4.4); call VerifyConsistency to recompute and compare if a
// stronger guarantee is needed.
func Restore(source PageSource, branchingFactor int, data []byte) (*Tree, error) {
	t := New(source, branchingFactor)
	if len(data) < 8 {
		return nil, common.NewError(common.KindInvalidArgument, "hash tree checkpoint too short", nil)
	}
	n := binary.BigEndian.Uint64(data)
	leaves := make([]common.Hash, n)
	pos := 8
	for i := uint64(0); i < n; i++ {
		if pos+common.HashLength > len(data) {
			return nil, common.NewError(common.KindInvalidArgument, "hash tree checkpoint truncated", nil)
		}
		copy(leaves[i][:], data[pos:])
		pos += common.HashLength
	}
	t.numPages = n
	t.levels[0] = leaves
	t.dirty = true // force one recomputation of internal levels and root
	return t, nil
}

// VerifyConsistency recomputes every leaf hash from source and compares it
// against the persisted/cached value, returning false at the first
// mismatch.
func (t *Tree) VerifyConsistency() (bool, error) {
	for p := uint64(0); p < t.numPages; p++ {
		data, err := t.source.GetPageData(p)
		if err != nil {
			return false, err
		}
		if sha256Sum(data) != t.levels[0][p] {
			return false, nil
		}
	}
	return true, nil
}

// Proof is a page-granular Merkle inclusion proof (§12): the sibling
// hashes along the path from a leaf to the root, one group per level.
type Proof struct {
	Siblings [][]common.Hash
}

// Proof builds the inclusion proof for page, recomputing the tree first if
// it is dirty.
func (t *Tree) Proof(page uint64) (Proof, error) {
	if _, err := t.GetHash(); err != nil {
		return Proof{}, err
	}
	if page >= t.numPages {
		return Proof{}, common.NewError(common.KindInvalidArgument, "page out of range", nil)
	}

	var p Proof
	index := page
	for _, level := range t.levels {
		if len(level) <= 1 {
			break
		}
		padded := padToMultiple(level, t.factor)
		groupStart := (index / uint64(t.factor)) * uint64(t.factor)
		group := make([]common.Hash, t.factor)
		copy(group, padded[groupStart:groupStart+uint64(t.factor)])
		p.Siblings = append(p.Siblings, group)
		index /= uint64(t.factor)
	}
	return p, nil
}

// VerifyProof checks that pageHash, combined with proof's sibling groups,
// reduces to root -- without needing access to the page's raw bytes or the
// rest of the tree.
func VerifyProof(root common.Hash, factor int, page uint64, pageHash common.Hash, proof Proof) bool {
	current := pageHash
	index := page
	for _, group := range proof.Siblings {
		pos := int(index % uint64(factor))
		if group[pos] != current {
			return false
		}
		h := sha256.New()
		for _, child := range group {
			h.Write(child[:])
		}
		copy(current[:], h.Sum(nil))
		index /= uint64(factor)
	}
	return current == root
}

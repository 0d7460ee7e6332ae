// Copyright 2024 The Carmen Authors
// This file is part of Carmen.
//
// Carmen is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package mpt implements the optional schema 4 live-state representation
// (Design Notes): a binary-nibble Merkle Patricia Trie forest, arena
// allocated with 32-bit tagged node IDs, grounded on the production
// MptState design referenced by the teacher's database/mpt lineage. It is
// an independent, experimental alternative to the composed schema 1-3
// backends in state/schema12.go and state/schema3.go, not wired into
// state.Open by default.
package mpt

import (
	"crypto/sha256"

	"github.com/Fantom-foundation/Carmen/go/common"
)

// NodeId tags an arena slot with its node kind in the top two bits.
type NodeId uint32

const (
	kindEmpty NodeId = iota << 30
	kindLeaf
	kindExtension
	kindBranch
)

const kindMask NodeId = 0x3 << 30
const indexMask NodeId = ^kindMask

func (id NodeId) kind() NodeId  { return id & kindMask }
func (id NodeId) index() uint32 { return uint32(id & indexMask) }

// EmptyId is the canonical empty-subtree node.
const EmptyId NodeId = kindEmpty

type leafNode struct {
	path  []byte // remaining nibble path
	value []byte
}

type extensionNode struct {
	path []byte // shared nibble path
	next NodeId
}

type branchNode struct {
	children [16]NodeId
	value    []byte // value stored at this branch's own path, if any
}

// Forest is an arena of trie nodes, supporting multiple independent root
// tries (one per account, in the live-state use case).
type Forest struct {
	leaves     []leafNode
	extensions []extensionNode
	branches   []branchNode
}

// NewForest returns an empty node arena.
func NewForest() *Forest {
	return &Forest{}
}

func toNibbles(key []byte) []byte {
	out := make([]byte, 0, len(key)*2)
	for _, b := range key {
		out = append(out, b>>4, b&0x0f)
	}
	return out
}

func commonPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

// Insert sets key -> value under root, returning the new root.
func (f *Forest) Insert(root NodeId, key, value []byte) NodeId {
	return f.insert(root, toNibbles(key), value)
}

func (f *Forest) insert(id NodeId, path, value []byte) NodeId {
	switch id.kind() {
	case kindEmpty:
		f.leaves = append(f.leaves, leafNode{path: append([]byte(nil), path...), value: value})
		return kindLeaf | NodeId(len(f.leaves)-1)

	case kindLeaf:
		leaf := f.leaves[id.index()]
		if string(leaf.path) == string(path) {
			f.leaves[id.index()] = leafNode{path: leaf.path, value: value}
			return id
		}
		return f.split(leaf.path, leaf.value, path, value)

	case kindExtension:
		ext := f.extensions[id.index()]
		cp := commonPrefixLen(ext.path, path)
		if cp == len(ext.path) {
			newNext := f.insert(ext.next, path[cp:], value)
			f.extensions[id.index()] = extensionNode{path: ext.path, next: newNext}
			return id
		}
		return f.splitExtension(ext, cp, path, value)

	case kindBranch:
		br := f.branches[id.index()]
		if len(path) == 0 {
			br.value = value
			f.branches[id.index()] = br
			return id
		}
		nibble := path[0]
		br.children[nibble] = f.insert(br.children[nibble], path[1:], value)
		f.branches[id.index()] = br
		return id
	}
	panic("unreachable node kind")
}

// split creates a branch (optionally behind a shared extension) from two
// diverging leaf paths.
func (f *Forest) split(pathA, valueA, pathB, valueB []byte) NodeId {
	cp := commonPrefixLen(pathA, pathB)

	f.branches = append(f.branches, branchNode{})
	branchID := kindBranch | NodeId(len(f.branches)-1)

	place := func(path, value []byte) {
		rest := path[cp:]
		if len(rest) == 0 {
			br := f.branches[branchID.index()]
			br.value = value
			f.branches[branchID.index()] = br
			return
		}
		f.leaves = append(f.leaves, leafNode{path: append([]byte(nil), rest[1:]...), value: value})
		leafID := kindLeaf | NodeId(len(f.leaves)-1)
		br := f.branches[branchID.index()]
		br.children[rest[0]] = leafID
		f.branches[branchID.index()] = br
	}
	place(pathA, valueA)
	place(pathB, valueB)

	if cp == 0 {
		return branchID
	}
	f.extensions = append(f.extensions, extensionNode{path: append([]byte(nil), pathA[:cp]...), next: branchID})
	return kindExtension | NodeId(len(f.extensions)-1)
}

func (f *Forest) splitExtension(ext extensionNode, cp int, path, value []byte) NodeId {
	f.branches = append(f.branches, branchNode{})
	branchID := kindBranch | NodeId(len(f.branches)-1)

	remExt := ext.path[cp:]
	br := f.branches[branchID.index()]
	if len(remExt) == 1 {
		br.children[remExt[0]] = ext.next
	} else {
		f.extensions = append(f.extensions, extensionNode{path: append([]byte(nil), remExt[1:]...), next: ext.next})
		br.children[remExt[0]] = kindExtension | NodeId(len(f.extensions)-1)
	}

	remNew := path[cp:]
	if len(remNew) == 0 {
		br.value = value
	} else {
		f.leaves = append(f.leaves, leafNode{path: append([]byte(nil), remNew[1:]...), value: value})
		br.children[remNew[0]] = kindLeaf | NodeId(len(f.leaves)-1)
	}
	f.branches[branchID.index()] = br

	if cp == 0 {
		return branchID
	}
	f.extensions = append(f.extensions, extensionNode{path: append([]byte(nil), ext.path[:cp]...), next: branchID})
	return kindExtension | NodeId(len(f.extensions)-1)
}

// Get looks up key under root.
func (f *Forest) Get(root NodeId, key []byte) ([]byte, bool) {
	return f.get(root, toNibbles(key))
}

func (f *Forest) get(id NodeId, path []byte) ([]byte, bool) {
	switch id.kind() {
	case kindEmpty:
		return nil, false
	case kindLeaf:
		leaf := f.leaves[id.index()]
		if string(leaf.path) == string(path) {
			return leaf.value, true
		}
		return nil, false
	case kindExtension:
		ext := f.extensions[id.index()]
		cp := commonPrefixLen(ext.path, path)
		if cp != len(ext.path) {
			return nil, false
		}
		return f.get(ext.next, path[cp:])
	case kindBranch:
		br := f.branches[id.index()]
		if len(path) == 0 {
			return br.value, br.value != nil
		}
		return f.get(br.children[path[0]], path[1:])
	}
	return nil, false
}

// Hash computes the root's Merkle hash: SHA256 over a node-kind tag
// followed by its canonical child/value encoding, recursively.
func (f *Forest) Hash(id NodeId) common.Hash {
	h := sha256.New()
	switch id.kind() {
	case kindEmpty:
		return common.Hash{}
	case kindLeaf:
		leaf := f.leaves[id.index()]
		h.Write([]byte{0x01})
		h.Write(leaf.path)
		h.Write(leaf.value)
	case kindExtension:
		ext := f.extensions[id.index()]
		childHash := f.Hash(ext.next)
		h.Write([]byte{0x02})
		h.Write(ext.path)
		h.Write(childHash[:])
	case kindBranch:
		br := f.branches[id.index()]
		h.Write([]byte{0x03})
		for _, c := range br.children {
			childHash := f.Hash(c)
			h.Write(childHash[:])
		}
		h.Write(br.value)
	}
	var out common.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// NumNodes reports the arena's total allocated node count, across kinds.
func (f *Forest) NumNodes() int {
	return len(f.leaves) + len(f.extensions) + len(f.branches)
}

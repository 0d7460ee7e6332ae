// Copyright 2024 The Carmen Authors
// This file is part of Carmen.
//
// Carmen is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package snapshot implements the page-granular Merkle proof protocol
// (§12), grounded on the teacher's hash-tree reduction (backend/hashtree):
// a part-by-part proof a peer can verify without holding the whole store,
// stopping short of a full SMT-style proof per the spec's Non-goals.
package snapshot

import (
	"github.com/Fantom-foundation/Carmen/go/backend/hashtree"
	"github.com/Fantom-foundation/Carmen/go/common"
)

// Part is one unit of a snapshot: a page's raw bytes plus its index.
type Part struct {
	Index uint64
	Data  []byte
}

// Snapshotable is implemented by any page-backed component willing to
// hand out page-granular proofs of its current content.
type Snapshotable interface {
	NumPages() uint64
	GetPart(index uint64) (Part, error)
	GetProof(index uint64) (hashtree.Proof, error)
	GetHash() (common.Hash, error)
}

// BranchingFactor is the arity snapshot proofs are generated and verified
// against; it must match the Snapshotable's underlying hash tree.
const BranchingFactor = hashtree.DefaultBranchingFactor

// VerifyPart checks that part, combined with proof, reduces to root under
// the default branching factor -- the receiving side's half of the
// protocol, requiring neither the whole store nor the hash tree.
func VerifyPart(root common.Hash, part Part, proof hashtree.Proof) bool {
	leaf := sha256Sum(part.Data)
	return hashtree.VerifyProof(root, BranchingFactor, part.Index, leaf, proof)
}

func sha256Sum(data []byte) common.Hash {
	return common.Sha256Concat(data)
}

// Source adapts a page pool / store's raw page accessor plus hash tree
// into a Snapshotable.
type Source struct {
	Pages func(index uint64) ([]byte, error)
	Tree  *hashtree.Tree
}

func (s *Source) NumPages() uint64 { return s.Tree.NumPages() }

func (s *Source) GetPart(index uint64) (Part, error) {
	data, err := s.Pages(index)
	if err != nil {
		return Part{}, err
	}
	return Part{Index: index, Data: data}, nil
}

func (s *Source) GetProof(index uint64) (hashtree.Proof, error) { return s.Tree.Proof(index) }

func (s *Source) GetHash() (common.Hash, error) { return s.Tree.GetHash() }

// Copyright 2024 The Carmen Authors
// This file is part of Carmen.
//
// Carmen is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package depot implements the L3 variable-length blob store (§4.7):
// consecutive dense integer keys are grouped into fixed-size boxes, and a
// hash tree over box contents yields the depot root. Two backends share
// this hashing scheme: an in-memory store and a LevelDB key->bytes store.
package depot

import (
	"encoding/binary"

	"github.com/Fantom-foundation/Carmen/go/backend/hashtree"
	"github.com/Fantom-foundation/Carmen/go/backend/ldb"
	"github.com/Fantom-foundation/Carmen/go/common"
)

// DefaultBoxSize is the typical number of entries grouped per hashed box
// (§4.7: "typically 4-8").
const DefaultBoxSize = 8

// blobStore is the narrow persistence contract the two depot backends
// implement; Depot's box-grouped hashing logic is shared across both.
type blobStore interface {
	get(id uint32) ([]byte, error)
	set(id uint32, data []byte) error
	close() error
}

// Depot is the box-hashed, variable-length blob store described by §4.7.
type Depot struct {
	store   blobStore
	boxSize int
	size    uint32
	tree    *hashtree.Tree
}

func newDepot(store blobStore, boxSize int) *Depot {
	if boxSize <= 0 {
		boxSize = DefaultBoxSize
	}
	d := &Depot{store: store, boxSize: boxSize}
	d.tree = hashtree.New(boxSourceOf(d), hashtree.DefaultBranchingFactor)
	return d
}

// NewMemory creates an in-memory depot.
func NewMemory(boxSize int) *Depot {
	return newDepot(&memoryStore{entries: map[uint32][]byte{}}, boxSize)
}

// NewLevelDB creates a depot backed by a LevelDB key->bytes table rooted
// at dir.
func NewLevelDB(dir string, boxSize int) (*Depot, error) {
	db, err := ldb.Open(dir)
	if err != nil {
		return nil, err
	}
	return newDepot(&levelDBStore{db: db, owned: true}, boxSize), nil
}

// NewLevelDBWithDB creates a depot over an already-open, possibly shared,
// LevelDB handle, namespaced under the single-byte prefix. Close is a
// no-op; the caller owns db's lifetime (the internal/ctxreg sharing
// pattern).
func NewLevelDBWithDB(db *ldb.DB, prefix byte, boxSize int) *Depot {
	return newDepot(&levelDBStore{db: db, prefix: prefix}, boxSize)
}

func (d *Depot) boxOf(id uint32) uint32 { return id / uint32(d.boxSize) }

// Get returns the blob stored at id, or nil if id has never been set.
func (d *Depot) Get(id uint32) ([]byte, error) {
	if id >= d.size {
		return nil, nil
	}
	return d.store.get(id)
}

// Set stores data at id, growing the depot's size if necessary, and
// dirties the box containing id (§4.7: "Set dirties the containing box").
func (d *Depot) Set(id uint32, data []byte) error {
	if err := d.store.set(id, data); err != nil {
		return err
	}
	if id+1 > d.size {
		d.size = id + 1
	}
	d.tree.MarkDirty(uint64(d.boxOf(id)))
	return nil
}

// Size returns one past the highest id ever set.
func (d *Depot) Size() uint32 { return d.size }

// GetHash returns the depot's root hash over every box.
func (d *Depot) GetHash() (common.Hash, error) { return d.tree.GetHash() }

func (d *Depot) Flush() error { return nil }
func (d *Depot) Close() error { return d.store.close() }

// boxSource adapts a Depot to hashtree.PageSource, composing each box's
// buffer as H little-endian uint32 length prefixes (0 if absent) followed
// by the concatenated present blobs (§4.7).
type boxSource struct{ d *Depot }

func boxSourceOf(d *Depot) hashtree.PageSource { return boxSource{d: d} }

func (s boxSource) GetPageData(box uint64) ([]byte, error) {
	d := s.d
	h := d.boxSize
	base := uint32(box) * uint32(h)

	blobs := make([][]byte, h)
	for i := 0; i < h; i++ {
		id := base + uint32(i)
		if id >= d.size {
			continue
		}
		blob, err := d.store.get(id)
		if err != nil {
			return nil, err
		}
		blobs[i] = blob
	}

	buf := make([]byte, 4*h)
	for i, blob := range blobs {
		binary.LittleEndian.PutUint32(buf[4*i:4*i+4], uint32(len(blob)))
	}
	for _, blob := range blobs {
		buf = append(buf, blob...)
	}
	return buf, nil
}

// memoryStore is the in-memory blobStore backend, analogous to a
// deque<bytes> indexed by dense integer id.
type memoryStore struct {
	entries map[uint32][]byte
}

func (m *memoryStore) get(id uint32) ([]byte, error) { return m.entries[id], nil }
func (m *memoryStore) set(id uint32, data []byte) error {
	m.entries[id] = append([]byte(nil), data...)
	return nil
}
func (m *memoryStore) close() error { return nil }

// levelDBStore is the LevelDB-backed blobStore, keyed by a one-byte
// key-space prefix plus the id's 4-byte big-endian encoding.
type levelDBStore struct {
	db     *ldb.DB
	prefix byte
	owned  bool
}

func (l *levelDBStore) key(id uint32) []byte {
	var b [5]byte
	b[0] = l.prefix
	binary.BigEndian.PutUint32(b[1:], id)
	return b[:]
}

func (l *levelDBStore) get(id uint32) ([]byte, error) {
	v, found, err := l.db.Get(l.key(id))
	if err != nil || !found {
		return nil, err
	}
	return v, nil
}

func (l *levelDBStore) set(id uint32, data []byte) error {
	return l.db.Put(l.key(id), data)
}

func (l *levelDBStore) close() error {
	if l.owned {
		return l.db.Close()
	}
	return nil
}

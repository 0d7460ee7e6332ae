// Copyright 2024 The Carmen Authors
// This file is part of Carmen.
//
// Carmen is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package filehash implements the file-based Index backend (§4.6, §4.6.1):
// a linear hash map persisted over an L1 page pool, splitting one bucket
// per capacity breach instead of rehashing in bulk. The stable hash used
// to place keys is grounded on
// cpp/backend/index/file/stable_hash.h's Mix-based construction, ported to
// Go's native uint64 arithmetic.
package filehash

import (
	"encoding/binary"

	"github.com/Fantom-foundation/Carmen/go/backend/eviction"
	"github.com/Fantom-foundation/Carmen/go/backend/pagefile"
	"github.com/Fantom-foundation/Carmen/go/backend/pagepool"
	"github.com/Fantom-foundation/Carmen/go/common"
)

// mix is the absl-style mixing step from stable_hash.h, adapted to a
// single 64-bit multiply since Go has no native 128-bit integer type.
const mixMul = 0x9ddfea08eb382d69

func mix(a, b uint64) uint64 {
	m := a + b
	m *= mixMul
	return m ^ (m >> 32)
}

// StableHash computes stable_hash.h's hash over an arbitrary byte key, one
// 8-byte word at a time.
func StableHash(key []byte) uint64 {
	var h uint64
	for len(key) > 0 {
		var word [8]byte
		n := copy(word[:], key)
		key = key[n:]
		h = mix(h, binary.LittleEndian.Uint64(word[:]))
	}
	return h
}

const headerSize = 2 // uint16 entry count

type pageEntry struct {
	hash uint64
	key  []byte
	id   uint32
}

// Index is the linear-hash, page-pool-backed index backend.
type Index[K common.Keyer] struct {
	pool      *pagepool.Pool
	keyLen    int
	entrySize int
	perPage   int

	lowMask     uint64
	highMask    uint64
	nextToSplit uint64
	buckets     [][]pagefile.PageId // bucket index -> overflow chain of page ids
	nextPageID  pagefile.PageId

	size  uint32
	chain common.ChainHash
	queue []K
}

// New creates a linear-hash index over file, using a page pool of the
// given capacity. keyLen is the fixed encoded length of K.Bytes().
func New[K common.Keyer](file pagefile.File, poolCapacity int, keyLen int) *Index[K] {
	pool := pagepool.New(file, poolCapacity, eviction.NewLRU())
	entrySize := 8 + keyLen + 4
	perPage := (pool.PageSize() - headerSize) / entrySize
	if perPage < 1 {
		perPage = 1
	}
	idx := &Index[K]{
		pool:      pool,
		keyLen:    keyLen,
		entrySize: entrySize,
		perPage:   perPage,
		lowMask:   1,
		highMask:  3,
	}
	idx.buckets = [][]pagefile.PageId{{idx.allocPage()}, {idx.allocPage()}}
	return idx
}

func (idx *Index[K]) allocPage() pagefile.PageId {
	id := idx.nextPageID
	idx.nextPageID++
	return id
}

func (idx *Index[K]) bucketFor(h uint64) int {
	b := h & idx.highMask
	if b >= uint64(len(idx.buckets)) {
		b = h & idx.lowMask
	}
	return int(b)
}

func (idx *Index[K]) readPage(id pagefile.PageId) ([]pageEntry, error) {
	buf, err := idx.pool.Get(id)
	if err != nil {
		return nil, err
	}
	count := int(binary.LittleEndian.Uint16(buf[0:2]))
	entries := make([]pageEntry, 0, count)
	off := headerSize
	for i := 0; i < count; i++ {
		h := binary.LittleEndian.Uint64(buf[off : off+8])
		key := make([]byte, idx.keyLen)
		copy(key, buf[off+8:off+8+idx.keyLen])
		id32 := binary.LittleEndian.Uint32(buf[off+8+idx.keyLen : off+8+idx.keyLen+4])
		entries = append(entries, pageEntry{hash: h, key: key, id: id32})
		off += idx.entrySize
	}
	return entries, nil
}

func (idx *Index[K]) writePage(id pagefile.PageId, entries []pageEntry) error {
	buf, err := idx.pool.Get(id)
	if err != nil {
		return err
	}
	for i := range buf {
		buf[i] = 0
	}
	binary.LittleEndian.PutUint16(buf[0:2], uint16(len(entries)))
	off := headerSize
	for _, e := range entries {
		binary.LittleEndian.PutUint64(buf[off:off+8], e.hash)
		copy(buf[off+8:off+8+idx.keyLen], e.key)
		binary.LittleEndian.PutUint32(buf[off+8+idx.keyLen:off+8+idx.keyLen+4], e.id)
		off += idx.entrySize
	}
	idx.pool.MarkAsDirty(id)
	return nil
}

// lookupInChain searches every page of a bucket's chain for key, returning
// its id if present.
func (idx *Index[K]) lookupInChain(chain []pagefile.PageId, h uint64, key []byte) (uint32, bool, error) {
	for _, pid := range chain {
		entries, err := idx.readPage(pid)
		if err != nil {
			return common.NotFoundId, false, err
		}
		for _, e := range entries {
			if e.hash == h && string(e.key) == string(key) {
				return e.id, true, nil
			}
		}
	}
	return common.NotFoundId, false, nil
}

func (idx *Index[K]) Get(k K) (uint32, bool, error) {
	h := StableHash(k.Bytes())
	b := idx.bucketFor(h)
	return idx.lookupInChain(idx.buckets[b], h, k.Bytes())
}

func (idx *Index[K]) GetOrAdd(k K) (uint32, bool, error) {
	key := k.Bytes()
	h := StableHash(key)
	b := idx.bucketFor(h)

	if id, found, err := idx.lookupInChain(idx.buckets[b], h, key); err != nil {
		return 0, false, err
	} else if found {
		return id, false, nil
	}

	id := idx.size
	entry := pageEntry{hash: h, key: append([]byte(nil), key...), id: id}

	// Try to fit into the chain's last page without growing it.
	chain := idx.buckets[b]
	last := chain[len(chain)-1]
	entries, err := idx.readPage(last)
	if err != nil {
		return 0, false, err
	}
	if len(entries) < idx.perPage {
		entries = insertSorted(entries, entry)
		if err := idx.writePage(last, entries); err != nil {
			return 0, false, err
		}
	} else {
		// Overflow: chain in a fresh page, then split next_to_split.
		newPage := idx.allocPage()
		if err := idx.writePage(newPage, []pageEntry{entry}); err != nil {
			return 0, false, err
		}
		idx.buckets[b] = append(chain, newPage)
		if err := idx.split(); err != nil {
			return 0, false, err
		}
	}

	idx.size++
	idx.queue = append(idx.queue, k)
	return id, true, nil
}

func insertSorted(entries []pageEntry, e pageEntry) []pageEntry {
	i := 0
	for i < len(entries) && entries[i].hash < e.hash {
		i++
	}
	entries = append(entries, pageEntry{})
	copy(entries[i+1:], entries[i:])
	entries[i] = e
	return entries
}

// split redistributes bucket next_to_split into itself and a freshly
// appended bucket, by the newly discriminating high_mask bit (§4.6.1).
func (idx *Index[K]) split() error {
	s := idx.nextToSplit
	chain := idx.buckets[s]

	var all []pageEntry
	for _, pid := range chain {
		entries, err := idx.readPage(pid)
		if err != nil {
			return err
		}
		all = append(all, entries...)
	}

	newIndex := uint64(len(idx.buckets))
	var keep, moved []pageEntry
	for _, e := range all {
		if e.hash&idx.highMask == newIndex {
			moved = append(moved, e)
		} else {
			keep = append(keep, e)
		}
	}

	keepPages, err := idx.layout(keep)
	if err != nil {
		return err
	}
	movedPages, err := idx.layout(moved)
	if err != nil {
		return err
	}

	idx.buckets[s] = keepPages
	idx.buckets = append(idx.buckets, movedPages)

	idx.nextToSplit++
	if idx.nextToSplit > idx.lowMask {
		idx.lowMask = idx.highMask
		idx.highMask = (idx.highMask << 1) | 1
		idx.nextToSplit = 0
	}
	return nil
}

// layout writes entries (already hash-sorted is not assumed) into freshly
// allocated, sorted, capacity-bounded pages, returning the chain.
func (idx *Index[K]) layout(entries []pageEntry) ([]pagefile.PageId, error) {
	sortByHash(entries)
	if len(entries) == 0 {
		pid := idx.allocPage()
		if err := idx.writePage(pid, nil); err != nil {
			return nil, err
		}
		return []pagefile.PageId{pid}, nil
	}
	var chain []pagefile.PageId
	for len(entries) > 0 {
		n := idx.perPage
		if n > len(entries) {
			n = len(entries)
		}
		pid := idx.allocPage()
		if err := idx.writePage(pid, entries[:n]); err != nil {
			return nil, err
		}
		chain = append(chain, pid)
		entries = entries[n:]
	}
	return chain, nil
}

func sortByHash(entries []pageEntry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j-1].hash > entries[j].hash; j-- {
			entries[j-1], entries[j] = entries[j], entries[j-1]
		}
	}
}

func (idx *Index[K]) Size() uint32 { return idx.size }

// GetHash drains the insertion queue into the chain hash (§4.6).
func (idx *Index[K]) GetHash() (common.Hash, error) {
	for _, k := range idx.queue {
		idx.chain.Add(k.Bytes())
	}
	idx.queue = idx.queue[:0]
	return idx.chain.Hash(), nil
}

func (idx *Index[K]) Flush() error { return idx.pool.Flush() }
func (idx *Index[K]) Close() error { return idx.pool.Close() }

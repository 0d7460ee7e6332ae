// Copyright 2024 The Carmen Authors
// This file is part of Carmen.
//
// Carmen is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package pagepool implements the L1 bounded in-memory page cache (§4.3):
// a fixed-capacity pool of page buffers fetched from an L0 pagefile.File,
// dirty tracking, pluggable eviction, and a synchronous load/evict
// listener contract.
package pagepool

import (
	"math/rand"

	"github.com/Fantom-foundation/Carmen/go/backend/eviction"
	"github.com/Fantom-foundation/Carmen/go/backend/pagefile"
)

// AccessPattern hints the pool's eviction bias at open time (§12, grounded
// on cpp/backend/common/access_pattern.h).
type AccessPattern int

const (
	AccessUnknown AccessPattern = iota
	AccessSequential
	AccessRandom
)

// DefaultPolicyFor returns the eviction policy conventionally paired with
// an access pattern hint: LRU for sequential/unknown workloads (temporal
// locality pays off), Random (clean-first) for random access (avoids LRU's
// pathological full-cache-miss behavior under scans).
func DefaultPolicyFor(pattern AccessPattern) eviction.Policy {
	if pattern == AccessRandom {
		return eviction.NewRandom(rand.New(rand.NewSource(rand.Int63())))
	}
	return eviction.NewLRU()
}

// Listener observes page lifecycle events, synchronously, within Get and
// eviction (§4.3's "Listener contract").
type Listener interface {
	// AfterLoad is called once a page's bytes are resident in the pool
	// and before Get returns them to its caller.
	AfterLoad(id pagefile.PageId, page []byte)
	// BeforeEvict is called before any I/O or state mutation caused by
	// evicting id.
	BeforeEvict(id pagefile.PageId, page []byte, dirty bool)
}

// Pool is the bounded, listener-observed page cache described by §4.3.
// Pool is not safe for concurrent use; synchronization is the caller's
// responsibility (§4.1, §5).
type Pool struct {
	file     pagefile.File
	capacity int
	pageSize int

	buffers   [][]byte
	idToSlot  map[pagefile.PageId]int
	slotToId  map[int]pagefile.PageId
	dirty     map[int]bool
	freeSlots []int
	policy    eviction.Policy
	listeners []Listener
}

// New creates a page pool of the given capacity backed by file, using
// policy for victim selection.
func New(file pagefile.File, capacity int, policy eviction.Policy) *Pool {
	p := &Pool{
		file:      file,
		capacity:  capacity,
		pageSize:  file.PageSize(),
		buffers:   make([][]byte, capacity),
		idToSlot:  map[pagefile.PageId]int{},
		slotToId:  map[int]pagefile.PageId{},
		dirty:     map[int]bool{},
		freeSlots: make([]int, capacity),
		policy:    policy,
	}
	for i := 0; i < capacity; i++ {
		p.buffers[i] = make([]byte, p.pageSize)
		p.freeSlots[i] = capacity - 1 - i // pop from the end, order is unobservable
	}
	return p
}

// AddListener registers a listener; AfterLoad/BeforeEvict are invoked in
// registration order.
func (p *Pool) AddListener(l Listener) { p.listeners = append(p.listeners, l) }

// PageSize returns the fixed page size of the backing file.
func (p *Pool) PageSize() int { return p.pageSize }

// Capacity returns the maximum number of resident pages.
func (p *Pool) Capacity() int { return p.capacity }

// Resident returns the number of pages currently cached.
func (p *Pool) Resident() int { return len(p.idToSlot) }

// Get returns the resident buffer for id, loading it from the backing file
// and evicting a victim if necessary (§4.3 step 1-3).
func (p *Pool) Get(id pagefile.PageId) ([]byte, error) {
	if slot, ok := p.idToSlot[id]; ok {
		p.policy.Read(slot)
		return p.buffers[slot], nil
	}

	slot, err := p.acquireSlot()
	if err != nil {
		return nil, err
	}

	buf := p.buffers[slot]
	if err := p.file.LoadPage(id, buf); err != nil {
		p.freeSlots = append(p.freeSlots, slot)
		return nil, err
	}
	p.idToSlot[id] = slot
	p.slotToId[slot] = id
	p.dirty[slot] = false
	p.policy.Read(slot)

	for _, l := range p.listeners {
		l.AfterLoad(id, buf)
	}
	return buf, nil
}

// MarkAsDirty flags id as modified in place through the buffer returned by
// Get, and notifies the eviction policy of the write (§4.3).
func (p *Pool) MarkAsDirty(id pagefile.PageId) {
	slot, ok := p.idToSlot[id]
	if !ok {
		return
	}
	p.dirty[slot] = true
	p.policy.Written(slot)
}

// IsDirty reports whether id has unflushed modifications.
func (p *Pool) IsDirty(id pagefile.PageId) bool {
	slot, ok := p.idToSlot[id]
	return ok && p.dirty[slot]
}

func (p *Pool) acquireSlot() (int, error) {
	if n := len(p.freeSlots); n > 0 {
		slot := p.freeSlots[n-1]
		p.freeSlots = p.freeSlots[:n-1]
		return slot, nil
	}
	victim, ok := p.policy.GetPageToEvict()
	if !ok {
		return 0, ErrPoolExhausted
	}
	if err := p.evictSlot(victim); err != nil {
		return 0, err
	}
	return victim, nil
}

// evictSlot evicts the page resident in slot, invoking listeners and
// writing back if dirty, in the order fixed by §4.3.
func (p *Pool) evictSlot(slot int) error {
	id := p.slotToId[slot]
	buf := p.buffers[slot]
	isDirty := p.dirty[slot]

	for _, l := range p.listeners {
		l.BeforeEvict(id, buf, isDirty)
	}
	if isDirty {
		if err := p.file.StorePage(id, buf); err != nil {
			return err
		}
		p.dirty[slot] = false
	}
	delete(p.idToSlot, id)
	delete(p.slotToId, slot)
	p.policy.Removed(slot)
	return nil
}

// Flush writes back every dirty page without evicting or touching the
// eviction policy (§4.3).
func (p *Pool) Flush() error {
	for slot, id := range p.slotToId {
		if p.dirty[slot] {
			if err := p.file.StorePage(id, p.buffers[slot]); err != nil {
				return err
			}
			p.dirty[slot] = false
		}
	}
	return p.file.Flush()
}

// Close flushes the pool then closes the backing file.
func (p *Pool) Close() error {
	if err := p.Flush(); err != nil {
		p.file.Close()
		return err
	}
	return p.file.Close()
}

// ErrPoolExhausted is returned if the pool is full, has no free slots, and
// the eviction policy reports no tracked slot to evict — which should not
// happen as long as every resident page is tracked by the policy.
var ErrPoolExhausted = errPoolExhausted{}

type errPoolExhausted struct{}

func (errPoolExhausted) Error() string { return "page pool exhausted: no victim available" }

// Copyright 2024 The Carmen Authors
// This file is part of Carmen.
//
// Carmen is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package multimap implements the L3 key -> value-set mapping used by
// schema 1/2 live state to track each address's live storage slots (§4.8).
// The in-memory backend is the only implementation required by the live
// state; the package's contract is kept narrow enough that a persistent
// backend could be dropped in later without touching callers.
package multimap

// MultiMap maps keys to unordered sets of values.
type MultiMap[K comparable, V comparable] interface {
	// Insert adds v to the set associated with k.
	Insert(k K, v V) error
	// Erase removes v from the set associated with k.
	Erase(k K, v V) error
	// EraseAll drops the entire set associated with k.
	EraseAll(k K) error
	// ForEach visits exactly the values currently associated with k, in
	// unspecified order.
	ForEach(k K, fn func(v V)) error
	// Contains reports whether v is currently associated with k.
	Contains(k K, v V) (bool, error)
}

// Memory is the in-memory MultiMap backend (§4.8).
type Memory[K comparable, V comparable] struct {
	sets map[K]map[V]struct{}
}

// NewMemory creates an empty in-memory MultiMap.
func NewMemory[K comparable, V comparable]() *Memory[K, V] {
	return &Memory[K, V]{sets: map[K]map[V]struct{}{}}
}

func (m *Memory[K, V]) Insert(k K, v V) error {
	set, ok := m.sets[k]
	if !ok {
		set = map[V]struct{}{}
		m.sets[k] = set
	}
	set[v] = struct{}{}
	return nil
}

func (m *Memory[K, V]) Erase(k K, v V) error {
	set, ok := m.sets[k]
	if !ok {
		return nil
	}
	delete(set, v)
	if len(set) == 0 {
		delete(m.sets, k)
	}
	return nil
}

func (m *Memory[K, V]) EraseAll(k K) error {
	delete(m.sets, k)
	return nil
}

func (m *Memory[K, V]) ForEach(k K, fn func(v V)) error {
	for v := range m.sets[k] {
		fn(v)
	}
	return nil
}

func (m *Memory[K, V]) Contains(k K, v V) (bool, error) {
	set, ok := m.sets[k]
	if !ok {
		return false, nil
	}
	_, ok = set[v]
	return ok, nil
}

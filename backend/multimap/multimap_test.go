// Copyright 2024 The Carmen Authors
// This file is part of Carmen.

package multimap

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsertAndContains(t *testing.T) {
	m := NewMemory[uint32, uint32]()
	require.NoError(t, m.Insert(1, 10))
	require.NoError(t, m.Insert(1, 20))

	ok, err := m.Contains(1, 10)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = m.Contains(1, 99)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestForEachVisitsExactlyTheAssociatedValues(t *testing.T) {
	m := NewMemory[uint32, uint32]()
	require.NoError(t, m.Insert(1, 10))
	require.NoError(t, m.Insert(1, 20))
	require.NoError(t, m.Insert(2, 99))

	var got []uint32
	require.NoError(t, m.ForEach(1, func(v uint32) { got = append(got, v) }))
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	require.Equal(t, []uint32{10, 20}, got)
}

func TestEraseRemovesOnlyThatValue(t *testing.T) {
	m := NewMemory[uint32, uint32]()
	require.NoError(t, m.Insert(1, 10))
	require.NoError(t, m.Insert(1, 20))
	require.NoError(t, m.Erase(1, 10))

	ok, err := m.Contains(1, 10)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = m.Contains(1, 20)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEraseAllDropsWholeSet(t *testing.T) {
	m := NewMemory[uint32, uint32]()
	require.NoError(t, m.Insert(1, 10))
	require.NoError(t, m.Insert(1, 20))
	require.NoError(t, m.EraseAll(1))

	var got []uint32
	require.NoError(t, m.ForEach(1, func(v uint32) { got = append(got, v) }))
	require.Empty(t, got)
}

func TestEraseOnUnknownKeyIsNoop(t *testing.T) {
	m := NewMemory[uint32, uint32]()
	require.NoError(t, m.Erase(1, 10))
	require.NoError(t, m.EraseAll(2))
}

// Copyright 2024 The Carmen Authors
// This file is part of Carmen.

package memory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Fantom-foundation/Carmen/go/common"
)

func addr(b byte) common.Address {
	var a common.Address
	a[len(a)-1] = b
	return a
}

// TestIndexStability is §8's index stability invariant: once inserted, a
// key keeps the same ID for the rest of the lifetime.
func TestIndexStability(t *testing.T) {
	idx := New[common.Address]()
	id, isNew, err := idx.GetOrAdd(addr(1))
	require.NoError(t, err)
	require.True(t, isNew)
	require.Equal(t, uint32(0), id)

	again, isNew, err := idx.GetOrAdd(addr(1))
	require.NoError(t, err)
	require.False(t, isNew)
	require.Equal(t, id, again)

	got, found, err := idx.Get(addr(1))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, id, got)
}

func TestIndexAssignsContiguousIds(t *testing.T) {
	idx := New[common.Address]()
	for i := byte(0); i < 5; i++ {
		id, _, err := idx.GetOrAdd(addr(i))
		require.NoError(t, err)
		require.Equal(t, uint32(i), id)
	}
	require.Equal(t, uint32(5), idx.Size())
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	idx := New[common.Address]()
	_, found, err := idx.Get(addr(9))
	require.NoError(t, err)
	require.False(t, found)
}

func TestGetHashMatchesChainHashDefinition(t *testing.T) {
	idx := New[common.Address]()
	_, _, err := idx.GetOrAdd(addr(1))
	require.NoError(t, err)
	_, _, err = idx.GetOrAdd(addr(2))
	require.NoError(t, err)

	got, err := idx.GetHash()
	require.NoError(t, err)

	want := common.NewChainHash()
	want.Add(addr(1).Bytes())
	want.Add(addr(2).Bytes())
	require.Equal(t, want.Hash(), got)
}

func TestGetHashIsIdempotentBetweenInsertions(t *testing.T) {
	idx := New[common.Address]()
	_, _, _ = idx.GetOrAdd(addr(1))
	h1, err := idx.GetHash()
	require.NoError(t, err)
	h2, err := idx.GetHash()
	require.NoError(t, err)
	require.Equal(t, h1, h2)
}

// Copyright 2024 The Carmen Authors
// This file is part of Carmen.

package filehash

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Fantom-foundation/Carmen/go/backend/pagefile"
	"github.com/Fantom-foundation/Carmen/go/common"
)

func addr(b byte) common.Address {
	var a common.Address
	a[len(a)-1] = b
	return a
}

func newTestIndex() *Index[common.Address] {
	file := pagefile.NewMemory(128)
	return New[common.Address](file, 4, common.AddressLength)
}

func TestGetOrAddAssignsStableIds(t *testing.T) {
	idx := newTestIndex()
	id, isNew, err := idx.GetOrAdd(addr(1))
	require.NoError(t, err)
	require.True(t, isNew)

	again, isNew, err := idx.GetOrAdd(addr(1))
	require.NoError(t, err)
	require.False(t, isNew)
	require.Equal(t, id, again)
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	idx := newTestIndex()
	id, found, err := idx.Get(addr(1))
	require.NoError(t, err)
	require.False(t, found)
	require.Equal(t, common.NotFoundId, id)
}

func TestManyInsertsSurviveBucketSplits(t *testing.T) {
	idx := newTestIndex()
	want := map[common.Address]uint32{}
	for i := 0; i < 500; i++ {
		var a common.Address
		copy(a[:], fmt.Appendf(nil, "addr-%d", i))
		id, isNew, err := idx.GetOrAdd(a)
		require.NoError(t, err)
		require.True(t, isNew)
		want[a] = id
	}
	for a, id := range want {
		got, found, err := idx.Get(a)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, id, got)
	}
	require.Equal(t, uint32(500), idx.Size())
}

func TestGetHashMatchesChainHashDefinition(t *testing.T) {
	idx := newTestIndex()
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

func TestStableHashDeterministic(t *testing.T) {
	require.Equal(t, StableHash(addr(7).Bytes()), StableHash(addr(7).Bytes()))
	require.NotEqual(t, StableHash(addr(7).Bytes()), StableHash(addr(8).Bytes()))
}

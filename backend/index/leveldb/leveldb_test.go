// Copyright 2024 The Carmen Authors
// This file is part of Carmen.

package leveldb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Fantom-foundation/Carmen/go/backend/ldb"
	"github.com/Fantom-foundation/Carmen/go/common"
)

func addr(b byte) common.Address {
	var a common.Address
	a[len(a)-1] = b
	return a
}

func TestGetOrAddAssignsSequentialIds(t *testing.T) {
	idx, err := Open[common.Address](t.TempDir(), 0x01)
	require.NoError(t, err)
	defer idx.Close()

	id0, isNew, err := idx.GetOrAdd(addr(1))
	require.NoError(t, err)
	require.True(t, isNew)
	require.Equal(t, uint32(0), id0)

	id1, isNew, err := idx.GetOrAdd(addr(2))
	require.NoError(t, err)
	require.True(t, isNew)
	require.Equal(t, uint32(1), id1)

	again, isNew, err := idx.GetOrAdd(addr(1))
	require.NoError(t, err)
	require.False(t, isNew)
	require.Equal(t, id0, again)
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	idx, err := Open[common.Address](t.TempDir(), 0x01)
	require.NoError(t, err)
	defer idx.Close()

	id, found, err := idx.Get(addr(9))
	require.NoError(t, err)
	require.False(t, found)
	require.Equal(t, common.NotFoundId, id)
}

func TestStateSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	idx, err := Open[common.Address](dir, 0x01)
	require.NoError(t, err)
	_, _, err = idx.GetOrAdd(addr(1))
	require.NoError(t, err)
	_, _, err = idx.GetOrAdd(addr(2))
	require.NoError(t, err)
	wantHash, err := idx.GetHash()
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	reopened, err := Open[common.Address](dir, 0x01)
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, uint32(2), reopened.Size())
	id, found, err := reopened.Get(addr(1))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint32(0), id)

	gotHash, err := reopened.GetHash()
	require.NoError(t, err)
	require.Equal(t, wantHash, gotHash)
}

func TestTwoPrefixesDoNotCollide(t *testing.T) {
	db, err := ldb.Open(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	a, err := New[common.Address](db, 0x01)
	require.NoError(t, err)
	b, err := New[common.Address](db, 0x02)
	require.NoError(t, err)

	_, _, err = a.GetOrAdd(addr(1))
	require.NoError(t, err)

	_, found, err := b.Get(addr(1))
	require.NoError(t, err)
	require.False(t, found)
}

// Copyright 2024 The Carmen Authors
// This file is part of Carmen.

package archive

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Fantom-foundation/Carmen/go/common"
)

func addr(b byte) common.Address {
	var a common.Address
	a[len(a)-1] = b
	return a
}

func key(b byte) common.Key {
	var k common.Key
	k[len(k)-1] = b
	return k
}

func val(b byte) common.Value {
	var v common.Value
	v[len(v)-1] = b
	return v
}

func openBackends(t *testing.T) map[string]Archive {
	t.Helper()
	dir := t.TempDir()

	ldbArchive, err := OpenLevelDB(filepath.Join(dir, "ldb"))
	require.NoError(t, err)

	sqliteArchive, err := OpenSQLite(filepath.Join(dir, "archive.sqlite"))
	require.NoError(t, err)

	return map[string]Archive{
		"leveldb": ldbArchive,
		"sqlite":  sqliteArchive,
	}
}

func forEachBackend(t *testing.T, f func(t *testing.T, a Archive)) {
	for name, a := range openBackends(t) {
		a := a
		t.Run(name, func(t *testing.T) {
			defer a.Close()
			f(t, a)
		})
	}
}

func TestAddRejectsNonIncreasingBlock(t *testing.T) {
	forEachBackend(t, func(t *testing.T, a Archive) {
		require.NoError(t, a.Add(5, &common.Update{CreatedAccounts: []common.Address{addr(1)}}))
		require.ErrorIs(t, a.Add(5, &common.Update{}), ErrBlockNotIncreasing)
		require.ErrorIs(t, a.Add(4, &common.Update{}), ErrBlockNotIncreasing)
		require.NoError(t, a.Add(6, &common.Update{}))
	})
}

func TestAddAcceptsBlockZeroOnEmptyArchive(t *testing.T) {
	forEachBackend(t, func(t *testing.T, a Archive) {
		require.NoError(t, a.Add(0, &common.Update{CreatedAccounts: []common.Address{addr(1)}}))
		latest, err := a.GetLatestBlock()
		require.NoError(t, err)
		require.Equal(t, common.BlockId(0), latest)
	})
}

func TestPointInTimeReadsReturnMostRecentPredecessor(t *testing.T) {
	forEachBackend(t, func(t *testing.T, a Archive) {
		require.NoError(t, a.Add(1, &common.Update{
			CreatedAccounts: []common.Address{addr(1)},
			Balances:        []common.BalanceUpdate{{Account: addr(1), Balance: common.ToBalance([]byte{10})}},
		}))
		require.NoError(t, a.Add(5, &common.Update{
			Balances: []common.BalanceUpdate{{Account: addr(1), Balance: common.ToBalance([]byte{20})}},
		}))

		b0, err := a.GetBalance(0, addr(1))
		require.NoError(t, err)
		require.Equal(t, common.Balance{}, b0)

		b1, err := a.GetBalance(1, addr(1))
		require.NoError(t, err)
		require.Equal(t, common.ToBalance([]byte{10}), b1)

		b3, err := a.GetBalance(3, addr(1))
		require.NoError(t, err)
		require.Equal(t, common.ToBalance([]byte{10}), b3, "reads must return the most recent predecessor, not exact match")

		b5, err := a.GetBalance(5, addr(1))
		require.NoError(t, err)
		require.Equal(t, common.ToBalance([]byte{20}), b5)
	})
}

func TestStorageIsClearedOnAccountRecreation(t *testing.T) {
	forEachBackend(t, func(t *testing.T, a Archive) {
		require.NoError(t, a.Add(1, &common.Update{
			CreatedAccounts: []common.Address{addr(1)},
			Slots:           []common.SlotUpdate{{Account: addr(1), Key: key(1), Value: val(9)}},
		}))

		v1, err := a.GetStorage(1, addr(1), key(1))
		require.NoError(t, err)
		require.Equal(t, val(9), v1)

		require.NoError(t, a.Add(2, &common.Update{
			DeletedAccounts: []common.Address{addr(1)},
			CreatedAccounts: []common.Address{addr(1)},
		}))

		v2, err := a.GetStorage(2, addr(1), key(1))
		require.NoError(t, err)
		require.Equal(t, common.Value{}, v2, "storage must not leak across a reincarnation")

		exists, err := a.Exists(2, addr(1))
		require.NoError(t, err)
		require.True(t, exists)
	})
}

func TestGetAccountListReflectsKnownAccountsAtBlock(t *testing.T) {
	forEachBackend(t, func(t *testing.T, a Archive) {
		require.NoError(t, a.Add(1, &common.Update{CreatedAccounts: []common.Address{addr(1)}}))
		require.NoError(t, a.Add(2, &common.Update{CreatedAccounts: []common.Address{addr(2)}}))

		at1, err := a.GetAccountList(1)
		require.NoError(t, err)
		require.Equal(t, []common.Address{addr(1)}, at1)

		at2, err := a.GetAccountList(2)
		require.NoError(t, err)
		require.Equal(t, []common.Address{addr(1), addr(2)}, at2)
	})
}

func TestGetHashChangesAcrossBlocksAndVerifySucceeds(t *testing.T) {
	forEachBackend(t, func(t *testing.T, a Archive) {
		require.NoError(t, a.Add(1, &common.Update{
			CreatedAccounts: []common.Address{addr(1)},
			Balances:        []common.BalanceUpdate{{Account: addr(1), Balance: common.ToBalance([]byte{1})}},
		}))
		h1, err := a.GetHash(1)
		require.NoError(t, err)

		require.NoError(t, a.Add(2, &common.Update{
			Balances: []common.BalanceUpdate{{Account: addr(1), Balance: common.ToBalance([]byte{2})}},
		}))
		h2, err := a.GetHash(2)
		require.NoError(t, err)
		require.NotEqual(t, h1, h2)

		var visited []string
		require.NoError(t, a.Verify(2, h2, func(addr string) { visited = append(visited, addr) }))
		require.Len(t, visited, 1)

		require.Error(t, a.Verify(2, common.Hash{}, nil))
	})
}

func TestGetAccountHashIsStableOncePastAccountsBlock(t *testing.T) {
	forEachBackend(t, func(t *testing.T, a Archive) {
		require.NoError(t, a.Add(1, &common.Update{
			CreatedAccounts: []common.Address{addr(1)},
			Nonces:          []common.NonceUpdate{{Account: addr(1), Nonce: common.ToNonce([]byte{1})}},
		}))
		require.NoError(t, a.Add(2, &common.Update{
			CreatedAccounts: []common.Address{addr(2)},
		}))

		h1, err := a.GetAccountHash(1, addr(1))
		require.NoError(t, err)
		h2, err := a.GetAccountHash(2, addr(1))
		require.NoError(t, err)
		require.Equal(t, h1, h2, "addr(1)'s hash must not change once block 2 touches only addr(2)")
	})
}

func TestSetCodeIsReadableAtBlock(t *testing.T) {
	forEachBackend(t, func(t *testing.T, a Archive) {
		require.NoError(t, a.Add(1, &common.Update{
			CreatedAccounts: []common.Address{addr(1)},
			Codes:           []common.CodeUpdate{{Account: addr(1), Code: []byte{1, 2, 3}}},
		}))

		got, err := a.GetCode(1, addr(1))
		require.NoError(t, err)
		require.Equal(t, common.Code{1, 2, 3}, got)
	})
}

// Copyright 2024 The Carmen Authors
// This file is part of Carmen.

package state

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Fantom-foundation/Carmen/go/archive"
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

func allSchemas() []Schema { return []Schema{Schema1, Schema2, Schema3} }

func TestGettersOnUnknownAddressReturnZero(t *testing.T) {
	for _, schema := range allSchemas() {
		s, err := Open(schema, Parameters{})
		require.NoError(t, err)

		exists, err := s.Exists(addr(1))
		require.NoError(t, err)
		require.False(t, exists)

		balance, err := s.GetBalance(addr(1))
		require.NoError(t, err)
		require.Equal(t, common.Balance{}, balance)

		value, err := s.GetStorage(addr(1), key(1))
		require.NoError(t, err)
		require.Equal(t, common.Value{}, value)

		require.NoError(t, s.Close())
	}
}

func TestApplyCreateSetBalanceAndStorage(t *testing.T) {
	for _, schema := range allSchemas() {
		s, err := Open(schema, Parameters{})
		require.NoError(t, err)

		update := &common.Update{
			CreatedAccounts: []common.Address{addr(1)},
			Balances:        []common.BalanceUpdate{{Account: addr(1), Balance: common.ToBalance([]byte{7})}},
			Slots:           []common.SlotUpdate{{Account: addr(1), Key: key(1), Value: val(9)}},
		}
		require.NoError(t, s.Apply(1, update))

		exists, err := s.Exists(addr(1))
		require.NoError(t, err)
		require.True(t, exists)

		balance, err := s.GetBalance(addr(1))
		require.NoError(t, err)
		require.Equal(t, common.ToBalance([]byte{7}), balance)

		value, err := s.GetStorage(addr(1), key(1))
		require.NoError(t, err)
		require.Equal(t, val(9), value)

		require.NoError(t, s.Close())
	}
}

func TestRecreateAccountClearsStorage(t *testing.T) {
	for _, schema := range allSchemas() {
		s, err := Open(schema, Parameters{})
		require.NoError(t, err)

		require.NoError(t, s.Apply(1, &common.Update{
			CreatedAccounts: []common.Address{addr(1)},
			Slots:           []common.SlotUpdate{{Account: addr(1), Key: key(1), Value: val(9)}},
		}))

		value, err := s.GetStorage(addr(1), key(1))
		require.NoError(t, err)
		require.Equal(t, val(9), value)

		// Delete then recreate in the same block; creation must win
		// (§4.9.4's deletions-before-creations ordering).
		require.NoError(t, s.Apply(2, &common.Update{
			DeletedAccounts: []common.Address{addr(1)},
			CreatedAccounts: []common.Address{addr(1)},
		}))

		exists, err := s.Exists(addr(1))
		require.NoError(t, err)
		require.True(t, exists)

		value, err = s.GetStorage(addr(1), key(1))
		require.NoError(t, err)
		require.Equal(t, common.Value{}, value, "storage must be cleared on recreation")

		require.NoError(t, s.Close())
	}
}

func TestSetCodeUpdatesCodeAndCodeHash(t *testing.T) {
	for _, schema := range allSchemas() {
		s, err := Open(schema, Parameters{})
		require.NoError(t, err)

		code := []byte{1, 2, 3}
		require.NoError(t, s.Apply(1, &common.Update{
			CreatedAccounts: []common.Address{addr(1)},
			Codes:           []common.CodeUpdate{{Account: addr(1), Code: code}},
		}))

		got, err := s.GetCode(addr(1))
		require.NoError(t, err)
		require.Equal(t, common.Code(code), got)

		hash, err := s.GetCodeHash(addr(1))
		require.NoError(t, err)
		require.Equal(t, common.Hash(codeHash(code)), hash)

		require.NoError(t, s.Close())
	}
}

func TestGetHashChangesOnApplyAndIsStableWithoutChanges(t *testing.T) {
	for _, schema := range allSchemas() {
		s, err := Open(schema, Parameters{})
		require.NoError(t, err)

		h0, err := s.GetHash()
		require.NoError(t, err)

		require.NoError(t, s.Apply(1, &common.Update{
			CreatedAccounts: []common.Address{addr(1)},
			Balances:        []common.BalanceUpdate{{Account: addr(1), Balance: common.ToBalance([]byte{5})}},
		}))

		h1, err := s.GetHash()
		require.NoError(t, err)
		require.NotEqual(t, h0, h1)

		h2, err := s.GetHash()
		require.NoError(t, err)
		require.Equal(t, h1, h2)

		require.NoError(t, s.Close())
	}
}

func TestSchema1And2HaveDifferentHashesForIdenticalHistory(t *testing.T) {
	update := &common.Update{
		CreatedAccounts: []common.Address{addr(1)},
		Slots:           []common.SlotUpdate{{Account: addr(1), Key: key(1), Value: val(2)}},
	}

	s1, err := Open(Schema1, Parameters{})
	require.NoError(t, err)
	require.NoError(t, s1.Apply(1, update))
	h1, err := s1.GetHash()
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(Schema2, Parameters{})
	require.NoError(t, err)
	require.NoError(t, s2.Apply(1, update))
	h2, err := s2.GetHash()
	require.NoError(t, err)
	require.NoError(t, s2.Close())

	require.NotEqual(t, h1, h2, "schema 1 folds key/slot index hashes into the state hash, schema 2 does not")
}

func TestOpenRejectsUnknownSchema(t *testing.T) {
	_, err := Open(Schema(99), Parameters{})
	require.Error(t, err)
}

func TestApplyForwardsUpdatesToArchive(t *testing.T) {
	arch, err := archive.OpenLevelDB(t.TempDir())
	require.NoError(t, err)

	s, err := Open(Schema1, Parameters{Archive: arch})
	require.NoError(t, err)

	update := &common.Update{
		CreatedAccounts: []common.Address{addr(1)},
		Balances:        []common.BalanceUpdate{{Account: addr(1), Balance: common.ToBalance([]byte{3})}},
	}
	require.NoError(t, s.Apply(1, update))

	exists, err := arch.Exists(1, addr(1))
	require.NoError(t, err)
	require.True(t, exists, "archive must receive the same update applied to the live state")

	balance, err := arch.GetBalance(1, addr(1))
	require.NoError(t, err)
	require.Equal(t, common.ToBalance([]byte{3}), balance)

	require.NoError(t, s.Close(), "closing the wrapped state must also close the archive")
}

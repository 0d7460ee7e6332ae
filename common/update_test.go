// Copyright 2024 The Carmen Authors
// This file is part of Carmen.

package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func addr(b byte) Address {
	var a Address
	a[len(a)-1] = b
	return a
}

func key(b byte) Key {
	var k Key
	k[len(k)-1] = b
	return k
}

func val(b byte) Value {
	var v Value
	v[len(v)-1] = b
	return v
}

// TestUpdateRoundTrip exercises §8 scenario 5: an update with one of each
// sub-kind must survive a ToBytes/FromBytes round trip unchanged.
func TestUpdateRoundTrip(t *testing.T) {
	u := &Update{
		DeletedAccounts: []Address{addr(0x02)},
		CreatedAccounts: []Address{addr(0x01)},
		Balances:        []BalanceUpdate{{Account: addr(0x03), Balance: ToBalance([]byte{0xB1})}},
		Nonces:          []NonceUpdate{{Account: addr(0x04), Nonce: ToNonce([]byte{0xA1})}},
		Codes:           []CodeUpdate{{Account: addr(0x06), Code: Code{0x01, 0x02}}},
		Slots:           []SlotUpdate{{Account: addr(0x05), Key: key(0x06), Value: val(0x07)}},
	}
	data, err := u.ToBytes()
	require.NoError(t, err)

	got, err := UpdateFromBytes(data)
	require.NoError(t, err)
	require.Equal(t, u, got)

	data2, err := u.ToBytes()
	require.NoError(t, err)
	require.Equal(t, data, data2, "ToBytes must be deterministic for equal updates")
}

func TestUpdateFromBytesRejectsBadVersion(t *testing.T) {
	data := []byte{1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	_, err := UpdateFromBytes(data)
	require.Error(t, err)
	var cErr *Error
	require.ErrorAs(t, err, &cErr)
	require.Equal(t, KindInvalidArgument, cErr.Kind)
}

func TestUpdateFromBytesRejectsTruncated(t *testing.T) {
	_, err := UpdateFromBytes([]byte{0, 0, 0, 0, 1})
	require.Error(t, err)
}

func TestUpdateToBytesRejectsOversizeCode(t *testing.T) {
	u := &Update{Codes: []CodeUpdate{{Account: addr(1), Code: make(Code, 0x10000)}}}
	_, err := u.ToBytes()
	require.Error(t, err)
}

func TestProjectOrdersAndDeduplicatesSlots(t *testing.T) {
	a := addr(1)
	u := &Update{
		CreatedAccounts: []Address{a},
		Slots: []SlotUpdate{
			{Account: a, Key: key(3), Value: val(1)},
			{Account: a, Key: key(1), Value: val(2)},
			{Account: a, Key: key(1), Value: val(2)}, // exact duplicate, collapses
		},
	}
	projected, err := u.Project()
	require.NoError(t, err)
	au := projected[a]
	require.True(t, au.Created)
	require.Len(t, au.Storage, 2)
	require.Equal(t, key(1), au.Storage[0].Key)
	require.Equal(t, key(3), au.Storage[1].Key)
}

func TestProjectDetectsSlotConflict(t *testing.T) {
	a := addr(1)
	u := &Update{
		Slots: []SlotUpdate{
			{Account: a, Key: key(1), Value: val(1)},
			{Account: a, Key: key(1), Value: val(2)},
		},
	}
	_, err := u.Project()
	require.Error(t, err)
}

func TestAccountStateDefaultIsUnknown(t *testing.T) {
	var s AccountState
	require.Equal(t, Unknown, s)
}

func TestValueIsZero(t *testing.T) {
	var v Value
	require.True(t, v.IsZero())
	v[0] = 1
	require.False(t, v.IsZero())
}

func TestChainHashMatchesSpecDefinition(t *testing.T) {
	c := NewChainHash()
	h1 := c.Add([]byte("a"))
	h2 := c.Add([]byte("b"))
	require.NotEqual(t, h1, h2)

	want1 := Sha256Concat(Hash{}[:], []byte("a"))
	require.Equal(t, want1, h1)
	want2 := Sha256Concat(h1[:], []byte("b"))
	require.Equal(t, want2, h2)
}

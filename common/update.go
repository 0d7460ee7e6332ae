// Copyright 2024 The Carmen Authors
// This file is part of Carmen.
//
// Carmen is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package common

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// UpdateVersion is the only version of the Update wire format this
// implementation accepts (§6.2).
const UpdateVersion byte = 0

// BalanceUpdate pairs an address with its new balance.
type BalanceUpdate struct {
	Account Address
	Balance Balance
}

// NonceUpdate pairs an address with its new nonce.
type NonceUpdate struct {
	Account Address
	Nonce   Nonce
}

// CodeUpdate pairs an address with its new code.
type CodeUpdate struct {
	Account Address
	Code    Code
}

// SlotUpdate pairs an address+key with a new storage value.
type SlotUpdate struct {
	Account Address
	Key     Key
	Value   Value
}

// Update is the set of state changes produced by processing one block
// (§6.2, Glossary). Sub-slices are applied to a live state in the fixed
// order documented in §4.9.4: deletions, creations, balances, nonces,
// codes, storage.
type Update struct {
	DeletedAccounts []Address
	CreatedAccounts []Address
	Balances        []BalanceUpdate
	Nonces          []NonceUpdate
	Codes           []CodeUpdate
	Slots           []SlotUpdate
}

// Empty reports whether the update carries no changes at all.
func (u *Update) Empty() bool {
	return len(u.DeletedAccounts) == 0 && len(u.CreatedAccounts) == 0 &&
		len(u.Balances) == 0 && len(u.Nonces) == 0 && len(u.Codes) == 0 && len(u.Slots) == 0
}

// ToBytes serializes u using the big-endian wire format fixed by §6.2.
func (u *Update) ToBytes() ([]byte, error) {
	for _, c := range u.Codes {
		if len(c.Code) > 0xFFFF {
			return nil, NewError(KindInvalidArgument, fmt.Sprintf("code for %s exceeds u16 length", c.Account), nil)
		}
	}

	size := 1 + 4*6
	size += len(u.DeletedAccounts) * AddressLength
	size += len(u.CreatedAccounts) * AddressLength
	size += len(u.Balances) * (AddressLength + BalanceLength)
	for _, c := range u.Codes {
		size += AddressLength + 2 + len(c.Code)
	}
	size += len(u.Nonces) * (AddressLength + NonceLength)
	size += len(u.Slots) * (AddressLength + KeyLength + ValueLength)

	buf := make([]byte, size)
	pos := 0
	buf[pos] = UpdateVersion
	pos++

	putU32 := func(v int) {
		binary.BigEndian.PutUint32(buf[pos:], uint32(v))
		pos += 4
	}
	putU32(len(u.DeletedAccounts))
	putU32(len(u.CreatedAccounts))
	putU32(len(u.Balances))
	putU32(len(u.Codes))
	putU32(len(u.Nonces))
	putU32(len(u.Slots))

	for _, a := range u.DeletedAccounts {
		pos += copy(buf[pos:], a[:])
	}
	for _, a := range u.CreatedAccounts {
		pos += copy(buf[pos:], a[:])
	}
	for _, b := range u.Balances {
		pos += copy(buf[pos:], b.Account[:])
		pos += copy(buf[pos:], b.Balance[:])
	}
	for _, c := range u.Codes {
		pos += copy(buf[pos:], c.Account[:])
		binary.BigEndian.PutUint16(buf[pos:], uint16(len(c.Code)))
		pos += 2
		pos += copy(buf[pos:], c.Code)
	}
	for _, n := range u.Nonces {
		pos += copy(buf[pos:], n.Account[:])
		pos += copy(buf[pos:], n.Nonce[:])
	}
	for _, s := range u.Slots {
		pos += copy(buf[pos:], s.Account[:])
		pos += copy(buf[pos:], s.Key[:])
		pos += copy(buf[pos:], s.Value[:])
	}
	return buf, nil
}

// UpdateFromBytes parses the wire format produced by Update.ToBytes,
// rejecting any version other than 0 (§6.2).
func UpdateFromBytes(data []byte) (*Update, error) {
	if len(data) < 1+4*6 {
		return nil, NewError(KindInvalidArgument, "update too short", nil)
	}
	if data[0] != UpdateVersion {
		return nil, NewError(KindInvalidArgument, fmt.Sprintf("unsupported update version %d", data[0]), nil)
	}
	pos := 1
	getU32 := func() int {
		v := binary.BigEndian.Uint32(data[pos:])
		pos += 4
		return int(v)
	}
	numDeleted := getU32()
	numCreated := getU32()
	numBalances := getU32()
	numCodes := getU32()
	numNonces := getU32()
	numSlots := getU32()

	u := &Update{}
	need := func(n int) error {
		if pos+n > len(data) {
			return NewError(KindInvalidArgument, "update truncated", nil)
		}
		return nil
	}

	u.DeletedAccounts = make([]Address, numDeleted)
	for i := 0; i < numDeleted; i++ {
		if err := need(AddressLength); err != nil {
			return nil, err
		}
		copy(u.DeletedAccounts[i][:], data[pos:])
		pos += AddressLength
	}
	u.CreatedAccounts = make([]Address, numCreated)
	for i := 0; i < numCreated; i++ {
		if err := need(AddressLength); err != nil {
			return nil, err
		}
		copy(u.CreatedAccounts[i][:], data[pos:])
		pos += AddressLength
	}
	u.Balances = make([]BalanceUpdate, numBalances)
	for i := 0; i < numBalances; i++ {
		if err := need(AddressLength + BalanceLength); err != nil {
			return nil, err
		}
		copy(u.Balances[i].Account[:], data[pos:])
		pos += AddressLength
		copy(u.Balances[i].Balance[:], data[pos:])
		pos += BalanceLength
	}
	u.Codes = make([]CodeUpdate, numCodes)
	for i := 0; i < numCodes; i++ {
		if err := need(AddressLength + 2); err != nil {
			return nil, err
		}
		copy(u.Codes[i].Account[:], data[pos:])
		pos += AddressLength
		codeLen := int(binary.BigEndian.Uint16(data[pos:]))
		pos += 2
		if err := need(codeLen); err != nil {
			return nil, err
		}
		code := make([]byte, codeLen)
		copy(code, data[pos:])
		pos += codeLen
		u.Codes[i].Code = code
	}
	u.Nonces = make([]NonceUpdate, numNonces)
	for i := 0; i < numNonces; i++ {
		if err := need(AddressLength + NonceLength); err != nil {
			return nil, err
		}
		copy(u.Nonces[i].Account[:], data[pos:])
		pos += AddressLength
		copy(u.Nonces[i].Nonce[:], data[pos:])
		pos += NonceLength
	}
	u.Slots = make([]SlotUpdate, numSlots)
	for i := 0; i < numSlots; i++ {
		if err := need(AddressLength + KeyLength + ValueLength); err != nil {
			return nil, err
		}
		copy(u.Slots[i].Account[:], data[pos:])
		pos += AddressLength
		copy(u.Slots[i].Key[:], data[pos:])
		pos += KeyLength
		copy(u.Slots[i].Value[:], data[pos:])
		pos += ValueLength
	}
	return u, nil
}

// AccountUpdate is the per-account projection of an Update (§6.3).
type AccountUpdate struct {
	Created bool
	Deleted bool
	Balance *Balance
	Nonce   *Nonce
	Code    *Code
	Storage []SlotUpdate
}

// Project splits u into one AccountUpdate per address touched, normalizing
// each account's storage updates: sorted by key, duplicates collapsed, with
// an error if two entries disagree on the value for the same key (§6.3).
func (u *Update) Project() (map[Address]*AccountUpdate, error) {
	out := map[Address]*AccountUpdate{}
	get := func(a Address) *AccountUpdate {
		if au, ok := out[a]; ok {
			return au
		}
		au := &AccountUpdate{}
		out[a] = au
		return au
	}
	for _, a := range u.DeletedAccounts {
		get(a).Deleted = true
	}
	for _, a := range u.CreatedAccounts {
		get(a).Created = true
	}
	for _, b := range u.Balances {
		v := b.Balance
		get(b.Account).Balance = &v
	}
	for _, n := range u.Nonces {
		v := n.Nonce
		get(n.Account).Nonce = &v
	}
	for _, c := range u.Codes {
		v := c.Code
		get(c.Account).Code = &v
	}
	for _, s := range u.Slots {
		au := get(s.Account)
		au.Storage = append(au.Storage, s)
	}
	for addr, au := range out {
		normalized, err := NormalizeSlots(au.Storage)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", addr, err)
		}
		au.Storage = normalized
	}
	return out, nil
}

// NormalizeSlots sorts slot updates by key and collapses duplicates,
// failing if two entries share a key with different values (§4.10.4, §6.3).
func NormalizeSlots(slots []SlotUpdate) ([]SlotUpdate, error) {
	if len(slots) == 0 {
		return nil, nil
	}
	sorted := make([]SlotUpdate, len(slots))
	copy(sorted, slots)
	sort.Slice(sorted, func(i, j int) bool {
		return bytesLess(sorted[i].Key[:], sorted[j].Key[:])
	})
	out := sorted[:1]
	for _, s := range sorted[1:] {
		last := &out[len(out)-1]
		if s.Key == last.Key {
			if s.Value != last.Value {
				return nil, NewError(KindInvalidArgument, fmt.Sprintf("conflicting values for key %s", s.Key), nil)
			}
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func bytesLess(a, b []byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

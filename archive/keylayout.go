// Copyright 2024 The Carmen Authors
// This file is part of Carmen.
//
// Carmen is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package archive

import (
	"encoding/binary"

	"github.com/Fantom-foundation/Carmen/go/common"
)

// kind tags distinguish the different facts recorded per account, per
// §4.10.1's composite key layout.
const (
	kindExists        byte = 0x01
	kindBalance       byte = 0x02
	kindNonce         byte = 0x03
	kindCode          byte = 0x04
	kindStorage       byte = 0x05
	kindReincarnation byte = 0x06
	kindAccountChange byte = 0x07 // per-account per-block update-hash log, used by GetAccountHash
	kindAccountSeen   byte = 0x08 // marks an address as known to the archive
)

// encodeKey builds the big-endian composite key (kind, address, [key,]
// [reincarnation,] block) described by §4.10.1. reincarnation is included
// only for kindStorage.
func encodeKey(kind byte, addr common.Address, key *common.Key, reincarnation uint32, block common.BlockId) []byte {
	size := 1 + common.AddressLength + 8
	if key != nil {
		size += common.KeyLength
	}
	if kind == kindStorage {
		size += 4
	}
	buf := make([]byte, 0, size)
	buf = append(buf, kind)
	buf = append(buf, addr[:]...)
	if key != nil {
		buf = append(buf, key[:]...)
	}
	if kind == kindStorage {
		var r [4]byte
		binary.BigEndian.PutUint32(r[:], reincarnation)
		buf = append(buf, r[:]...)
	}
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], block)
	return append(buf, b[:]...)
}

// prefixFor returns the key prefix shared by every record of the given
// kind/address/[key]/[reincarnation], i.e. encodeKey without its trailing
// block component.
func prefixFor(kind byte, addr common.Address, key *common.Key, reincarnation uint32) []byte {
	full := encodeKey(kind, addr, key, reincarnation, 0)
	return full[:len(full)-8]
}

// seekTarget returns the smallest key lexicographically >= the smallest
// possible key for (prefix, block+1) -- the search key used by the
// generic point-in-time read algorithm (§4.10.2).
func seekTarget(prefix []byte, block common.BlockId) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], block+1)
	return append(append([]byte(nil), prefix...), b[:]...)
}

func hasPrefix(key, prefix []byte) bool {
	if len(key) < len(prefix) {
		return false
	}
	for i := range prefix {
		if key[i] != prefix[i] {
			return false
		}
	}
	return true
}

func blockOf(key []byte) common.BlockId {
	return binary.BigEndian.Uint64(key[len(key)-8:])
}

// accountUpdateHash computes the per-account update hash of §4.10.4: a
// one-byte change flag, the updated fields in a fixed order, and the
// account's normalized slot updates as ascending (key, value) pairs.
func accountUpdateHash(au *common.AccountUpdate) common.Hash {
	var flag byte
	if au.Created {
		flag |= 0x01
	}
	if au.Deleted {
		flag |= 0x02
	}
	if au.Balance != nil {
		flag |= 0x04
	}
	if au.Nonce != nil {
		flag |= 0x08
	}
	if au.Code != nil {
		flag |= 0x10
	}

	parts := [][]byte{{flag}}
	if au.Balance != nil {
		parts = append(parts, au.Balance[:])
	}
	if au.Nonce != nil {
		parts = append(parts, au.Nonce[:])
	}
	if au.Code != nil {
		var l [4]byte
		binary.BigEndian.PutUint32(l[:], uint32(len(*au.Code)))
		parts = append(parts, l[:], *au.Code)
	}
	for _, s := range au.Storage {
		parts = append(parts, s.Key[:], s.Value[:])
	}
	return common.Sha256Concat(parts...)
}

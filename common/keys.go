// Copyright 2024 The Carmen Authors
// This file is part of Carmen.
//
// Carmen is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package common

import "encoding/binary"

// Keyer is satisfied by every domain key type an Index can be built over:
// a stable byte encoding used both for hashing and for the insertion-order
// chain hash (§3.2, §4.6).
type Keyer interface {
	comparable
	Bytes() []byte
}

func (a Address) Bytes() []byte { b := a; return b[:] }
func (k Key) Bytes() []byte     { b := k; return b[:] }

// AddressKeyId is the (AddressId, KeyId) composite key the schema-1/2 slot
// index is built over (§3.2).
type AddressKeyId struct {
	Address AddressId
	Key     KeyId
}

func (p AddressKeyId) Bytes() []byte {
	var b [8]byte
	binary.BigEndian.PutUint32(b[0:4], p.Address)
	binary.BigEndian.PutUint32(b[4:8], p.Key)
	return b[:]
}

// AddressKey is the (AddressId, Key) composite key schema 3 stores its
// slot values under directly, skipping the key index (§4.9 schema 3).
type AddressKey struct {
	Address AddressId
	Key     Key
}

func (p AddressKey) Bytes() []byte {
	b := make([]byte, 4+KeyLength)
	binary.BigEndian.PutUint32(b, p.Address)
	copy(b[4:], p.Key[:])
	return b
}

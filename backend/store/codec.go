// Copyright 2024 The Carmen Authors
// This file is part of Carmen.

package store

import "github.com/Fantom-foundation/Carmen/go/common"

// BalanceCodec packs/unpacks common.Balance values.
type BalanceCodec struct{}

func (BalanceCodec) Size() int { return common.BalanceLength }
func (BalanceCodec) Write(dst []byte, v common.Balance) { copy(dst, v[:]) }
func (BalanceCodec) Read(src []byte) common.Balance {
	var v common.Balance
	copy(v[:], src)
	return v
}

// NonceCodec packs/unpacks common.Nonce values.
type NonceCodec struct{}

func (NonceCodec) Size() int { return common.NonceLength }
func (NonceCodec) Write(dst []byte, v common.Nonce) { copy(dst, v[:]) }
func (NonceCodec) Read(src []byte) common.Nonce {
	var v common.Nonce
	copy(v[:], src)
	return v
}

// ValueCodec packs/unpacks common.Value values.
type ValueCodec struct{}

func (ValueCodec) Size() int { return common.ValueLength }
func (ValueCodec) Write(dst []byte, v common.Value) { copy(dst, v[:]) }
func (ValueCodec) Read(src []byte) common.Value {
	var v common.Value
	copy(v[:], src)
	return v
}

// HashCodec packs/unpacks common.Hash values (used for the code-hash
// store).
type HashCodec struct{}

func (HashCodec) Size() int { return common.HashLength }
func (HashCodec) Write(dst []byte, v common.Hash) { copy(dst, v[:]) }
func (HashCodec) Read(src []byte) common.Hash {
	var v common.Hash
	copy(v[:], src)
	return v
}

// AccountStateCodec packs/unpacks common.AccountState values.
type AccountStateCodec struct{}

func (AccountStateCodec) Size() int { return 1 }
func (AccountStateCodec) Write(dst []byte, v common.AccountState) { dst[0] = byte(v) }
func (AccountStateCodec) Read(src []byte) common.AccountState {
	return common.AccountState(src[0])
}

// Uint32Codec packs/unpacks little-endian uint32 values (used for SlotId
// and Reincarnation stores).
type Uint32Codec struct{}

func (Uint32Codec) Size() int { return 4 }
func (Uint32Codec) Write(dst []byte, v uint32) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v >> 16)
	dst[3] = byte(v >> 24)
}
func (Uint32Codec) Read(src []byte) uint32 {
	return uint32(src[0]) | uint32(src[1])<<8 | uint32(src[2])<<16 | uint32(src[3])<<24
}

// ReincarnatedValueCodec packs/unpacks a (Reincarnation, Value) pair, the
// schema-3 slot value representation (§4.9 schema 3).
type ReincarnatedValueCodec struct{}

func (ReincarnatedValueCodec) Size() int { return 4 + common.ValueLength }
func (ReincarnatedValueCodec) Write(dst []byte, v ReincarnatedValue) {
	Uint32Codec{}.Write(dst, v.Reincarnation)
	copy(dst[4:], v.Value[:])
}
func (ReincarnatedValueCodec) Read(src []byte) ReincarnatedValue {
	var out ReincarnatedValue
	out.Reincarnation = Uint32Codec{}.Read(src)
	copy(out.Value[:], src[4:])
	return out
}

// ReincarnatedValue is the schema-3 slot value: a storage word paired with
// the reincarnation counter value that was current when it was written
// (§3.3 reincarnation coherence).
type ReincarnatedValue struct {
	Reincarnation uint32
	Value         common.Value
}

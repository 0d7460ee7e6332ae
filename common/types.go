// Copyright 2024 The Carmen Authors
// This file is part of Carmen.
//
// Carmen is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Carmen is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Carmen. If not, see <http://www.gnu.org/licenses/>.

// Package common defines the primitive domain types shared by every layer
// of Carmen: addresses, storage keys and values, account balances, nonces,
// hashes, and the dense identifiers the live state assigns to them.
package common

import (
	"encoding/hex"
	"fmt"

	"github.com/holiman/uint256"
)

// AddressLength is the size in bytes of an Address (§3.1).
const AddressLength = 20

// KeyLength is the size in bytes of a storage Key (§3.1).
const KeyLength = 32

// ValueLength is the size in bytes of a storage Value (§3.1).
const ValueLength = 32

// BalanceLength is the size in bytes of a Balance (§3.1).
const BalanceLength = 16

// NonceLength is the size in bytes of a Nonce (§3.1).
const NonceLength = 8

// HashLength is the size in bytes of a Hash (§3.1).
const HashLength = 32

// Address is the 20-byte opaque identity of an account.
type Address [AddressLength]byte

func (a Address) String() string { return "0x" + hex.EncodeToString(a[:]) }

// Key identifies a storage slot within an account.
type Key [KeyLength]byte

func (k Key) String() string { return "0x" + hex.EncodeToString(k[:]) }

// Value is the 32-byte content of a storage slot. The zero Value is the
// implicit default for every never-written slot (§3.1).
type Value [ValueLength]byte

func (v Value) String() string { return "0x" + hex.EncodeToString(v[:]) }

// IsZero reports whether v is the all-zero default value.
func (v Value) IsZero() bool { return v == Value{} }

// Balance is a 16-byte big-endian account balance.
type Balance [BalanceLength]byte

func (b Balance) String() string { return "0x" + hex.EncodeToString(b[:]) }

// Nonce is an 8-byte big-endian account transaction counter.
type Nonce [NonceLength]byte

func (n Nonce) String() string { return "0x" + hex.EncodeToString(n[:]) }

// Hash is a 32-byte cryptographic digest, used for both SHA-256 structural
// hashes and Keccak-256 code hashes.
type Hash [HashLength]byte

func (h Hash) String() string { return "0x" + hex.EncodeToString(h[:]) }

// IsZero reports whether h is the all-zero hash.
func (h Hash) IsZero() bool { return h == Hash{} }

// AccountState describes whether an account currently exists (§3.1). The
// zero value is Unknown, matching the default state of every address never
// touched by a CreateAccount.
type AccountState byte

const (
	Unknown AccountState = 0
	Exists  AccountState = 1
)

func (s AccountState) String() string {
	if s == Exists {
		return "Exists"
	}
	return "Unknown"
}

// BlockId is an unsigned block height, as used by the archive.
type BlockId = uint64

// Code is a variable-length contract code blob.
type Code []byte

// AddressId is the dense 32-bit identifier the address index assigns to an
// Address on first encounter (§3.2).
type AddressId = uint32

// KeyId is the dense 32-bit identifier the key index assigns to a Key in
// schemas 1 and 2 (§3.2).
type KeyId = uint32

// SlotId is the dense 32-bit identifier assigned to an (AddressId, KeyId)
// pair in schemas 1-2, or used directly as a per-account slot handle in
// schema 3 (§3.2).
type SlotId = uint32

// Reincarnation is the per-account counter bumped on every create/delete in
// schema 3, used to lazily invalidate old storage (§3.2, §3.3).
type Reincarnation = uint32

// ToBalance converts a big-endian byte slice no longer than BalanceLength
// into a right-aligned Balance.
func ToBalance(b []byte) Balance {
	var out Balance
	if len(b) > BalanceLength {
		b = b[len(b)-BalanceLength:]
	}
	copy(out[BalanceLength-len(b):], b)
	return out
}

func (b Balance) toUint256() *uint256.Int {
	return new(uint256.Int).SetBytes(b[:])
}

func balanceFromUint256(v *uint256.Int) (Balance, error) {
	if v.BitLen() > BalanceLength*8 {
		return Balance{}, NewError(KindInvalidArgument, "balance exceeds 16 bytes", nil)
	}
	full := v.Bytes32()
	var out Balance
	copy(out[:], full[32-BalanceLength:])
	return out, nil
}

// AddBalance returns a+b, using 256-bit arithmetic so the intermediate sum
// cannot itself wrap before the BalanceLength overflow check runs.
func AddBalance(a, b Balance) (Balance, error) {
	return balanceFromUint256(new(uint256.Int).Add(a.toUint256(), b.toUint256()))
}

// SubBalance returns a-b, failing if b exceeds a.
func SubBalance(a, b Balance) (Balance, error) {
	av, bv := a.toUint256(), b.toUint256()
	if av.Lt(bv) {
		return Balance{}, NewError(KindInvalidArgument, "balance underflow", nil)
	}
	return balanceFromUint256(new(uint256.Int).Sub(av, bv))
}

// CompareBalance returns -1, 0, or 1 as a is less than, equal to, or greater
// than b.
func CompareBalance(a, b Balance) int {
	return a.toUint256().Cmp(b.toUint256())
}

// ToNonce converts a big-endian byte slice no longer than NonceLength into
// a right-aligned Nonce.
func ToNonce(b []byte) Nonce {
	var out Nonce
	if len(b) > NonceLength {
		b = b[len(b)-NonceLength:]
	}
	copy(out[NonceLength-len(b):], b)
	return out
}

// NotFoundId is the sentinel AddressId/KeyId/SlotId returned by Index.Get
// when the queried key has never been inserted.
const NotFoundId = ^uint32(0)

// ErrorKind classifies an error crossing the Carmen API boundary (§7).
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindNotFound
	KindInvalidArgument
	KindFailedPrecondition
	KindInternal
	KindUnimplemented
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindFailedPrecondition:
		return "FailedPrecondition"
	case KindInternal:
		return "Internal"
	case KindUnimplemented:
		return "Unimplemented"
	default:
		return "None"
	}
}

// Error is a Carmen error tagged with a Kind for boundary classification
// (§7). It wraps an underlying cause when one exists.
type Error struct {
	Kind  ErrorKind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds an Error of the given kind.
func NewError(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

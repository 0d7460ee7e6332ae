// Copyright 2024 The Carmen Authors
// This file is part of Carmen.
//
// Carmen is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package archive implements the L4 append-only, block-keyed archive
// (§4.10): every Update is recorded atomically under its block number,
// supporting point-in-time reads of balance, nonce, code and storage, and
// per-block/per-account cryptographic hashes. Two backends, LevelDB and
// SQLite, share one key layout and semantic contract.
package archive

import "github.com/Fantom-foundation/Carmen/go/common"

// Archive is the append-only history capability described by §4.10.
type Archive interface {
	// Add records update atomically under block. It fails if block is
	// not strictly greater than the latest recorded block, except that
	// block == 0 is permitted on an empty archive (§4.10).
	Add(block common.BlockId, update *common.Update) error

	Exists(block common.BlockId, addr common.Address) (bool, error)
	GetBalance(block common.BlockId, addr common.Address) (common.Balance, error)
	GetNonce(block common.BlockId, addr common.Address) (common.Nonce, error)
	GetCode(block common.BlockId, addr common.Address) (common.Code, error)
	GetStorage(block common.BlockId, addr common.Address, key common.Key) (common.Value, error)

	// GetLatestBlock returns the largest recorded block, or 0 if empty.
	GetLatestBlock() (common.BlockId, error)

	// GetHash returns the archive root at block (§4.10.3).
	GetHash(block common.BlockId) (common.Hash, error)
	// GetAccountHash returns addr's per-account fingerprint at block
	// (§4.10.3).
	GetAccountHash(block common.BlockId, addr common.Address) (common.Hash, error)
	// GetAccountList returns every address with a change recorded at or
	// before block, sorted ascending.
	GetAccountList(block common.BlockId) ([]common.Address, error)

	// Verify recomputes the archive root and every account hash through
	// block, comparing the root against expected and invoking progress
	// between accounts (§4.10.5).
	Verify(block common.BlockId, expected common.Hash, progress func(addr string)) error

	Close() error
}

// ErrBlockNotIncreasing is returned by Add when block does not strictly
// exceed the archive's latest recorded block (§4.10's documented edge
// case for block 0 on an empty archive aside).
var ErrBlockNotIncreasing = common.NewError(common.KindInvalidArgument, "archive block must strictly increase", nil)

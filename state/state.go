// Copyright 2024 The Carmen Authors
// This file is part of Carmen.
//
// Carmen is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package state composes the L3 backends into the L4 live world state
// described by §4.9: an address-keyed account database with balance,
// nonce, code and storage, hashed as a fixed composition of its
// sub-component hashes. Three schemas are provided, differing in how
// storage slots are indexed and how their hash is assembled.
package state

import (
	"github.com/Fantom-foundation/Carmen/go/archive"
	"github.com/Fantom-foundation/Carmen/go/common"
	"github.com/Fantom-foundation/Carmen/go/internal/clog"
)

var log = clog.New("state")

// Schema identifies one of the supported live-state layouts (§4.9).
type Schema int

const (
	// Schema1 indexes storage slots by (AddressId, KeyId) -> SlotId and
	// includes the key and slot index hashes in the state hash.
	Schema1 Schema = iota + 1
	// Schema2 has the same on-disk layout as Schema1 but omits the key
	// and slot index hashes from the composed state hash.
	Schema2
	// Schema3 skips the key index, keying slots directly by (AddressId,
	// Key) and pairing each value with a per-address reincarnation
	// counter instead of clearing slot sets on account reset.
	Schema3
)

// Parameters configures where and how a State's backends are stored.
type Parameters struct {
	// Directory is the base directory for on-disk backends. An empty
	// Directory selects fully in-memory backends, intended for tests and
	// short-lived simulations.
	Directory string
	// PoolSize is the page-pool capacity given to every page-backed
	// store opened by this state (§4.3).
	PoolSize int
	// Archive, if set, receives every applied Update alongside the live
	// state (§4.9's "optional archive").
	Archive archive.Archive
}

func (p Parameters) withDefaults() Parameters {
	if p.PoolSize <= 0 {
		p.PoolSize = 1024
	}
	return p
}

// State is the live world-state capability exposed to the C-ABI boundary
// and the archive (§4.9).
type State interface {
	// Exists reports whether addr currently has an account entry.
	Exists(addr common.Address) (bool, error)
	GetBalance(addr common.Address) (common.Balance, error)
	GetNonce(addr common.Address) (common.Nonce, error)
	GetCode(addr common.Address) (common.Code, error)
	GetCodeHash(addr common.Address) (common.Hash, error)
	GetStorage(addr common.Address, key common.Key) (common.Value, error)

	// Apply performs the state transition for one block, in the fixed
	// sub-phase order required by §4.9.4.
	Apply(block common.BlockId, update *common.Update) error

	// GetHash returns the current state's root hash (§4.9.5).
	GetHash() (common.Hash, error)

	Flush() error
	Close() error
}

// Open creates or resumes a live state of the given schema at params.
func Open(schema Schema, params Parameters) (State, error) {
	params = params.withDefaults()

	var (
		s   State
		err error
	)
	switch schema {
	case Schema1, Schema2:
		s, err = newSchema12(schema, params)
	case Schema3:
		s, err = newSchema3(params)
	default:
		return nil, common.NewError(common.KindInvalidArgument, "unknown live state schema", nil)
	}
	if err != nil {
		return nil, err
	}
	if params.Archive != nil {
		s = &withArchive{State: s, archive: params.Archive}
	}
	return s, nil
}

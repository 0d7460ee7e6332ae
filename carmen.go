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

// Package carmen is the public entry point: it composes the live state
// (§4.9) and the optional archive (§4.10) behind a single Open call,
// mirroring the way go-ethereum's top-level `eth` package wires its
// backend out of smaller, independently testable pieces.
package carmen

import (
	"github.com/Fantom-foundation/Carmen/go/archive"
	"github.com/Fantom-foundation/Carmen/go/common"
	"github.com/Fantom-foundation/Carmen/go/state"
)

// Re-exported domain types so callers need only import this package.
type (
	Address = common.Address
	Key     = common.Key
	Value   = common.Value
	Balance = common.Balance
	Nonce   = common.Nonce
	Hash    = common.Hash
	Code    = common.Code
	Update  = common.Update
	BlockId = common.BlockId
)

// Schema selects the live state's on-disk layout (§4.9).
type Schema = state.Schema

const (
	Schema1 = state.Schema1
	Schema2 = state.Schema2
	Schema3 = state.Schema3
)

// ArchiveKind selects the archive backend, if any.
type ArchiveKind int

const (
	// NoArchive disables the archive entirely.
	NoArchive ArchiveKind = iota
	ArchiveLevelDB
	ArchiveSQLite
)

// Parameters configures Open. The zero value selects Schema1 with fully
// in-memory, archive-less backends, suitable for tests.
type Parameters struct {
	Schema      Schema
	Directory   string
	PoolSize    int
	Archive     ArchiveKind
	ArchivePath string
}

func (p Parameters) withDefaults() Parameters {
	if p.Schema == 0 {
		p.Schema = Schema1
	}
	return p
}

// Instance bundles the live state with its optional archive under one
// handle, so callers needing both don't have to track two lifetimes.
type Instance struct {
	state.State
	archive archive.Archive
}

// Open creates or resumes a Carmen instance per the given Parameters.
func Open(params Parameters) (*Instance, error) {
	params = params.withDefaults()

	var (
		arch archive.Archive
		err  error
	)
	switch params.Archive {
	case NoArchive:
	case ArchiveLevelDB:
		arch, err = archive.OpenLevelDB(params.ArchivePath)
	case ArchiveSQLite:
		arch, err = archive.OpenSQLite(params.ArchivePath)
	default:
		return nil, common.NewError(common.KindInvalidArgument, "unknown archive kind", nil)
	}
	if err != nil {
		return nil, err
	}

	s, err := state.Open(params.Schema, state.Parameters{
		Directory: params.Directory,
		PoolSize:  params.PoolSize,
		Archive:   arch,
	})
	if err != nil {
		if arch != nil {
			_ = arch.Close()
		}
		return nil, err
	}

	return &Instance{State: s, archive: arch}, nil
}

// Archive returns the instance's archive, or nil if none was configured.
func (i *Instance) Archive() archive.Archive { return i.archive }

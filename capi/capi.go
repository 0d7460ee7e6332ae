// Copyright 2024 The Carmen Authors
// This file is part of Carmen.
//
// Carmen is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package capi renders the host ABI boundary described by §6.1 in
// Go-callable form: narrow, handle-based entry points a cgo shim would
// forward to almost verbatim, rather than a cgo-exported shim itself
// (§14's Non-goals exclude the C binding proper).
package capi

import (
	"sync"
	"sync/atomic"

	carmen "github.com/Fantom-foundation/Carmen/go"
	"github.com/Fantom-foundation/Carmen/go/common"
	"github.com/Fantom-foundation/Carmen/go/crypto/keccak"
	"github.com/Fantom-foundation/Carmen/go/internal/cmemory"
)

// Handle identifies an open State or archive view across the ABI boundary.
type Handle uint64

// reader is the read surface shared by a live state and a block-bound
// archive view, letting the getters below be handle-kind agnostic.
type reader interface {
	Exists(addr common.Address) (bool, error)
	GetBalance(addr common.Address) (common.Balance, error)
	GetNonce(addr common.Address) (common.Nonce, error)
	GetCode(addr common.Address) (common.Code, error)
	GetCodeHash(addr common.Address) (common.Hash, error)
	GetStorage(addr common.Address, key common.Key) (common.Value, error)
}

type archiveReader struct {
	inst  *carmen.Instance
	block common.BlockId
}

func (r archiveReader) Exists(addr common.Address) (bool, error) {
	return r.inst.Archive().Exists(r.block, addr)
}
func (r archiveReader) GetBalance(addr common.Address) (common.Balance, error) {
	return r.inst.Archive().GetBalance(r.block, addr)
}
func (r archiveReader) GetNonce(addr common.Address) (common.Nonce, error) {
	return r.inst.Archive().GetNonce(r.block, addr)
}
func (r archiveReader) GetCode(addr common.Address) (common.Code, error) {
	return r.inst.Archive().GetCode(r.block, addr)
}
func (r archiveReader) GetCodeHash(addr common.Address) (common.Hash, error) {
	code, err := r.inst.Archive().GetCode(r.block, addr)
	if err != nil {
		return common.Hash{}, err
	}
	return common.Hash(keccak.Sum256(code)), nil
}
func (r archiveReader) GetStorage(addr common.Address, key common.Key) (common.Value, error) {
	return r.inst.Archive().GetStorage(r.block, addr, key)
}

var (
	mu       sync.Mutex
	nextID   uint64
	open     = map[Handle]*carmen.Instance{}
	archived = map[Handle]archiveReader{}
)

func newHandle() Handle { return Handle(atomic.AddUint64(&nextID, 1)) }

// OpenState is the ABI entry point for acquiring a State (§6.1).
func OpenState(schema carmen.Schema, archiveKind carmen.ArchiveKind, dir, archivePath string) (Handle, error) {
	inst, err := carmen.Open(carmen.Parameters{
		Schema:      schema,
		Directory:   dir,
		Archive:     archiveKind,
		ArchivePath: archivePath,
	})
	if err != nil {
		return 0, err
	}
	h := newHandle()
	mu.Lock()
	open[h] = inst
	mu.Unlock()
	return h, nil
}

// lookupReader resolves h to its read surface, whether a live state or a
// block-bound archive view.
func lookupReader(h Handle) (reader, error) {
	mu.Lock()
	defer mu.Unlock()
	if view, ok := archived[h]; ok {
		return view, nil
	}
	if inst, ok := open[h]; ok {
		return inst, nil
	}
	return nil, carmen.ErrClosed
}

// lookupState resolves h to a live, writable state. It fails for handles
// obtained from GetArchiveState, which are read-only.
func lookupState(h Handle) (*carmen.Instance, error) {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := archived[h]; ok {
		return nil, common.NewError(common.KindFailedPrecondition, "handle is a read-only archive view", nil)
	}
	inst, ok := open[h]
	if !ok {
		return nil, carmen.ErrClosed
	}
	return inst, nil
}

// ReleaseState closes and forgets h (§6.1). Releasing an archive-view
// handle only forgets the view; the underlying state is untouched.
func ReleaseState(h Handle) error {
	mu.Lock()
	if _, ok := archived[h]; ok {
		delete(archived, h)
		mu.Unlock()
		return nil
	}
	inst, ok := open[h]
	delete(open, h)
	mu.Unlock()
	if !ok {
		return nil
	}
	return inst.Close()
}

// Flush persists h's buffered writes without closing it.
func Flush(h Handle) error {
	inst, err := lookupState(h)
	if err != nil {
		return err
	}
	return inst.Flush()
}

// Close is an alias of ReleaseState kept for ABI naming parity with §6.1.
func Close(h Handle) error { return ReleaseState(h) }

// GetAccountState reports whether addr exists as of h.
func GetAccountState(h Handle, addr common.Address) (bool, error) {
	r, err := lookupReader(h)
	if err != nil {
		return false, err
	}
	return r.Exists(addr)
}

func GetBalance(h Handle, addr common.Address) (common.Balance, error) {
	r, err := lookupReader(h)
	if err != nil {
		return common.Balance{}, err
	}
	return r.GetBalance(addr)
}

func GetNonce(h Handle, addr common.Address) (common.Nonce, error) {
	r, err := lookupReader(h)
	if err != nil {
		return common.Nonce{}, err
	}
	return r.GetNonce(addr)
}

func GetStorageValue(h Handle, addr common.Address, key common.Key) (common.Value, error) {
	r, err := lookupReader(h)
	if err != nil {
		return common.Value{}, err
	}
	return r.GetStorage(addr, key)
}

// GetCode writes addr's code into buf, returning the code's true length.
// If len(buf) is smaller than that length, buf is left untouched and the
// caller must retry with a buffer of at least the returned size, matching
// §6.1's in/out length parameter convention.
func GetCode(h Handle, addr common.Address, buf []byte) (int, error) {
	r, err := lookupReader(h)
	if err != nil {
		return 0, err
	}
	code, err := r.GetCode(addr)
	if err != nil {
		return 0, err
	}
	if len(buf) < len(code) {
		return len(code), nil
	}
	return copy(buf, code), nil
}

func GetCodeSize(h Handle, addr common.Address) (int, error) {
	r, err := lookupReader(h)
	if err != nil {
		return 0, err
	}
	code, err := r.GetCode(addr)
	if err != nil {
		return 0, err
	}
	return len(code), nil
}

func GetCodeHash(h Handle, addr common.Address) (common.Hash, error) {
	r, err := lookupReader(h)
	if err != nil {
		return common.Hash{}, err
	}
	return r.GetCodeHash(addr)
}

// Apply decodes a wire-format Update (§6.2) and applies it under block.
// Only valid for live-state handles.
func Apply(h Handle, block common.BlockId, serializedUpdate []byte) error {
	inst, err := lookupState(h)
	if err != nil {
		return err
	}
	update, err := common.UpdateFromBytes(serializedUpdate)
	if err != nil {
		return err
	}
	return inst.Apply(block, update)
}

// GetHash returns the live state's current root, or an archive view's
// root as of its bound block.
func GetHash(h Handle) (common.Hash, error) {
	mu.Lock()
	view, isArchiveView := archived[h]
	inst, isLive := open[h]
	mu.Unlock()
	switch {
	case isArchiveView:
		return view.inst.Archive().GetHash(view.block)
	case isLive:
		return inst.GetHash()
	default:
		return common.Hash{}, carmen.ErrClosed
	}
}

// GetArchiveState returns a new handle bound to a read-only view of h's
// archive as of block (§6.1). The returned handle supports the same
// getters as a live state handle, but not Apply.
func GetArchiveState(h Handle, block common.BlockId) (Handle, error) {
	inst, err := lookupState(h)
	if err != nil {
		return 0, err
	}
	if inst.Archive() == nil {
		return 0, common.NewError(common.KindFailedPrecondition, "state has no archive", nil)
	}
	view := newHandle()
	mu.Lock()
	archived[view] = archiveReader{inst: inst, block: block}
	mu.Unlock()
	return view, nil
}

// GetMemoryFootprint reports h's approximate in-memory footprint (§12).
// This top-level rendition reports a single node; per-component footprint
// wiring through every backend is left to future work.
func GetMemoryFootprint(h Handle) (cmemory.Footprint, error) {
	if _, err := lookupReader(h); err != nil {
		return cmemory.Footprint{}, err
	}
	return cmemory.New("carmen.State", 0), nil
}

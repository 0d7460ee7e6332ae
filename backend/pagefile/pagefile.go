// Copyright 2024 The Carmen Authors
// This file is part of Carmen.
//
// Carmen is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package pagefile implements the L0 paged-file abstraction (§4.1): fixed
// size page I/O over a random-access byte store, auto-extending and
// zero-filling new pages. Neither implementation is safe for concurrent
// use; callers (the page pool) serialize all access.
package pagefile

import (
	"io"
	"os"
)

// PageId identifies a page by its index within the file.
type PageId = uint64

// File is the L0 paged-file contract shared by every backend.
type File interface {
	// LoadPage reads the page at id into dst, which must have length
	// PageSize(). Pages beyond the current file length are returned as
	// zero and the file is grown to cover them.
	LoadPage(id PageId, dst []byte) error
	// StorePage writes src (length PageSize()) to the page at id,
	// growing the file if necessary.
	StorePage(id PageId, src []byte) error
	// PageSize returns the fixed page size this file was opened with.
	PageSize() int
	// Flush ensures all written pages are durable.
	Flush() error
	// Close flushes and releases the file's resources.
	Close() error
}

// Memory is an in-memory File backend, intended for tests and benchmarks.
type Memory struct {
	pageSize int
	pages    [][]byte
}

// NewMemory creates an empty memory-backed paged file with the given page
// size.
func NewMemory(pageSize int) *Memory {
	return &Memory{pageSize: pageSize}
}

func (m *Memory) PageSize() int { return m.pageSize }

func (m *Memory) LoadPage(id PageId, dst []byte) error {
	m.growTo(id)
	copy(dst, m.pages[id])
	return nil
}

func (m *Memory) StorePage(id PageId, src []byte) error {
	m.growTo(id)
	copy(m.pages[id], src)
	return nil
}

func (m *Memory) growTo(id PageId) {
	for uint64(len(m.pages)) <= id {
		m.pages = append(m.pages, make([]byte, m.pageSize))
	}
}

func (m *Memory) Flush() error { return nil }
func (m *Memory) Close() error { return nil }

// OnDisk is a single-file-on-disk File backend.
type OnDisk struct {
	pageSize int
	file     *os.File
}

// OpenOnDisk opens (creating if absent) a single paged file at path.
func OpenOnDisk(path string, pageSize int) (*OnDisk, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	return &OnDisk{pageSize: pageSize, file: f}, nil
}

func (f *OnDisk) PageSize() int { return f.pageSize }

func (f *OnDisk) LoadPage(id PageId, dst []byte) error {
	off := int64(id) * int64(f.pageSize)
	n, err := f.file.ReadAt(dst, off)
	if err != nil && err != io.EOF {
		return err
	}
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
	if n < len(dst) {
		// Zero-extend the file up to and including this page, per §4.1.
		return f.StorePage(id, dst)
	}
	return nil
}

func (f *OnDisk) StorePage(id PageId, src []byte) error {
	off := int64(id) * int64(f.pageSize)
	_, err := f.file.WriteAt(src, off)
	return err
}

func (f *OnDisk) Flush() error { return f.file.Sync() }
func (f *OnDisk) Close() error {
	if err := f.Flush(); err != nil {
		f.file.Close()
		return err
	}
	return f.file.Close()
}

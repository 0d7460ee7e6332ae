// Copyright 2024 The Carmen Authors
// This file is part of Carmen.
//
// Carmen is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package ldb wraps the github.com/syndtr/goleveldb/leveldb dependency
// behind a narrow surface (Get, Put, Delete, WriteBatch, SeekPrev, Close),
// per Design Notes §9's guidance to keep third-party handles PImpl-style
// behind a thin module that owns all lifetime management.
package ldb

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/Fantom-foundation/Carmen/go/common"
)

// DB is a thin, type-identity-free wrapper around a LevelDB handle. It is
// safe for concurrent Get/Put calls; LevelDB provides its own internal
// locking (§5).
type DB struct {
	ldb *leveldb.DB
}

// Open opens (creating if absent) a LevelDB database at dir.
func Open(dir string) (*DB, error) {
	inner, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, common.NewError(common.KindInternal, "opening leveldb", err)
	}
	return &DB{ldb: inner}, nil
}

// Get returns the value stored at key, or (nil, false) if absent.
func (d *DB) Get(key []byte) ([]byte, bool, error) {
	v, err := d.ldb.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, common.NewError(common.KindInternal, "leveldb get", err)
	}
	return v, true, nil
}

// Put writes key->value.
func (d *DB) Put(key, value []byte) error {
	if err := d.ldb.Put(key, value, nil); err != nil {
		return common.NewError(common.KindInternal, "leveldb put", err)
	}
	return nil
}

// Delete removes key, if present.
func (d *DB) Delete(key []byte) error {
	if err := d.ldb.Delete(key, nil); err != nil {
		return common.NewError(common.KindInternal, "leveldb delete", err)
	}
	return nil
}

// Batch accumulates writes for atomic application via WriteBatch.
type Batch struct {
	inner leveldb.Batch
}

func (b *Batch) Put(key, value []byte) { b.inner.Put(key, value) }
func (b *Batch) Delete(key []byte)     { b.inner.Delete(key) }

// NewBatch returns an empty write batch.
func (d *DB) NewBatch() *Batch { return &Batch{} }

// WriteBatch atomically applies the accumulated writes.
func (d *DB) WriteBatch(b *Batch) error {
	if err := d.ldb.Write(&b.inner, nil); err != nil {
		return common.NewError(common.KindInternal, "leveldb batch write", err)
	}
	return nil
}

// SeekPrev seeks to the smallest key >= target and returns the preceding
// record (the most-recent-predecessor read pattern used throughout the
// archive, §4.10.2). ok is false if no such predecessor exists.
func (d *DB) SeekPrev(target []byte) (key, value []byte, ok bool, err error) {
	it := d.ldb.NewIterator(&util.Range{Limit: target}, nil)
	defer it.Release()
	if !it.Last() {
		if err := it.Error(); err != nil {
			return nil, nil, false, common.NewError(common.KindInternal, "leveldb iterator", err)
		}
		return nil, nil, false, nil
	}
	k := append([]byte(nil), it.Key()...)
	v := append([]byte(nil), it.Value()...)
	return k, v, true, nil
}

// Iterator exposes a restricted iteration range, e.g. for enumerating all
// keys under a kind/address prefix.
func (d *DB) Iterator(prefix []byte) iterator.Iterator {
	return d.ldb.NewIterator(util.BytesPrefix(prefix), nil)
}

// Close releases the database's file handles.
func (d *DB) Close() error {
	if err := d.ldb.Close(); err != nil {
		return common.NewError(common.KindInternal, "leveldb close", err)
	}
	return nil
}

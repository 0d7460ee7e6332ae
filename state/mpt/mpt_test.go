// Copyright 2024 The Carmen Authors
// This file is part of Carmen.

package mpt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsertThenGetRoundTrips(t *testing.T) {
	f := NewForest()
	root := EmptyId

	root = f.Insert(root, []byte{0x12, 0x34}, []byte("a"))
	root = f.Insert(root, []byte{0x12, 0x35}, []byte("b"))
	root = f.Insert(root, []byte{0xab, 0xcd}, []byte("c"))

	v, ok := f.Get(root, []byte{0x12, 0x34})
	require.True(t, ok)
	require.Equal(t, []byte("a"), v)

	v, ok = f.Get(root, []byte{0x12, 0x35})
	require.True(t, ok)
	require.Equal(t, []byte("b"), v)

	v, ok = f.Get(root, []byte{0xab, 0xcd})
	require.True(t, ok)
	require.Equal(t, []byte("c"), v)

	_, ok = f.Get(root, []byte{0xff, 0xff})
	require.False(t, ok)
}

func TestOverwriteExistingKey(t *testing.T) {
	f := NewForest()
	root := f.Insert(EmptyId, []byte{0x01}, []byte("first"))
	root = f.Insert(root, []byte{0x01}, []byte("second"))

	v, ok := f.Get(root, []byte{0x01})
	require.True(t, ok)
	require.Equal(t, []byte("second"), v)
}

func TestHashChangesOnInsertAndIsOrderIndependent(t *testing.T) {
	f1 := NewForest()
	r1 := f1.Insert(EmptyId, []byte{0x01}, []byte("a"))
	r1 = f1.Insert(r1, []byte{0x02}, []byte("b"))

	f2 := NewForest()
	r2 := f2.Insert(EmptyId, []byte{0x02}, []byte("b"))
	r2 = f2.Insert(r2, []byte{0x01}, []byte("a"))

	require.Equal(t, f1.Hash(r1), f2.Hash(r2), "final trie shape should not depend on insertion order")
	require.NotEqual(t, f1.Hash(r1), f1.Hash(EmptyId))
}

func TestEmptyRootHashesToZero(t *testing.T) {
	f := NewForest()
	require.Equal(t, [32]byte{}, [32]byte(f.Hash(EmptyId)))
}

func TestSharedPrefixesCollapseIntoExtensionNodes(t *testing.T) {
	f := NewForest()
	root := f.Insert(EmptyId, []byte{0x12, 0x00}, []byte("x"))
	root = f.Insert(root, []byte{0x12, 0x01}, []byte("y"))
	root = f.Insert(root, []byte{0x12, 0x02}, []byte("z"))

	for i, want := range map[byte]string{0x00: "x", 0x01: "y", 0x02: "z"} {
		v, ok := f.Get(root, []byte{0x12, i})
		require.True(t, ok)
		require.Equal(t, []byte(want), v)
	}
}

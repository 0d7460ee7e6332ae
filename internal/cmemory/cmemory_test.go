// Copyright 2024 The Carmen Authors
// This file is part of Carmen.

package cmemory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTotalIncludesChildren(t *testing.T) {
	root := New("store", 100).
		WithChild(New("pool", 200)).
		WithChild(New("hashtree", 50))

	require.Equal(t, uint64(350), root.Total())
}

func TestLeafTotalIsOwnBytes(t *testing.T) {
	leaf := New("index", 42)
	require.Equal(t, uint64(42), leaf.Total())
}

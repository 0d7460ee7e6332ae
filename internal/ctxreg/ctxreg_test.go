// Copyright 2024 The Carmen Authors
// This file is part of Carmen.

package ctxreg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type sharedHandle struct {
	id     int
	closed bool
}

func TestGetOrCreateSharesSingleInstance(t *testing.T) {
	c := New()
	calls := 0
	create := func() (*sharedHandle, func() error, error) {
		calls++
		h := &sharedHandle{id: calls}
		return h, func() error { h.closed = true; return nil }, nil
	}

	h1, err := GetOrCreate(c, create)
	require.NoError(t, err)
	h2, err := GetOrCreate(c, create)
	require.NoError(t, err)

	require.Same(t, h1, h2)
	require.Equal(t, 1, calls)
}

func TestCloseReleasesResources(t *testing.T) {
	c := New()
	h, err := GetOrCreate(c, func() (*sharedHandle, func() error, error) {
		handle := &sharedHandle{}
		return handle, func() error { handle.closed = true; return nil }, nil
	})
	require.NoError(t, err)
	require.NoError(t, c.Close())
	require.True(t, h.closed)
}

// Copyright 2024 The Carmen Authors
// This file is part of Carmen.

package pagepool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Fantom-foundation/Carmen/go/backend/eviction"
	"github.com/Fantom-foundation/Carmen/go/backend/pagefile"
)

func TestGetLoadsAndCaches(t *testing.T) {
	f := pagefile.NewMemory(8)
	require.NoError(t, f.StorePage(3, []byte{1, 2, 3, 4, 5, 6, 7, 8}))

	p := New(f, 2, eviction.NewLRU())
	buf, err := p.Get(3)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, buf)
	require.Equal(t, 1, p.Resident())
}

func TestMarkAsDirtyFlushesOnEviction(t *testing.T) {
	f := pagefile.NewMemory(4)
	p := New(f, 1, eviction.NewLRU())

	buf, err := p.Get(0)
	require.NoError(t, err)
	copy(buf, []byte{9, 9, 9, 9})
	p.MarkAsDirty(0)
	require.True(t, p.IsDirty(0))

	// Capacity 1: fetching a second page forces eviction of page 0.
	_, err = p.Get(1)
	require.NoError(t, err)

	got := make([]byte, 4)
	require.NoError(t, f.LoadPage(0, got))
	require.Equal(t, []byte{9, 9, 9, 9}, got, "dirty page must be written back on eviction")
}

// TestPagePoolCapBound is §8's "page pool cap" invariant: the pool never
// retains more than N resident pages.
func TestPagePoolCapBound(t *testing.T) {
	f := pagefile.NewMemory(4)
	p := New(f, 3, eviction.NewLRU())
	for i := pagefile.PageId(0); i < 100; i++ {
		_, err := p.Get(i)
		require.NoError(t, err)
		require.LessOrEqual(t, p.Resident(), 3)
	}
}

type recordingListener struct {
	loaded  []pagefile.PageId
	evicted []pagefile.PageId
}

func (r *recordingListener) AfterLoad(id pagefile.PageId, _ []byte) { r.loaded = append(r.loaded, id) }
func (r *recordingListener) BeforeEvict(id pagefile.PageId, _ []byte, _ bool) {
	r.evicted = append(r.evicted, id)
}

func TestListenersCalledInOrder(t *testing.T) {
	f := pagefile.NewMemory(4)
	p := New(f, 1, eviction.NewLRU())
	l := &recordingListener{}
	p.AddListener(l)

	_, err := p.Get(0)
	require.NoError(t, err)
	_, err = p.Get(1)
	require.NoError(t, err)

	require.Equal(t, []pagefile.PageId{0, 1}, l.loaded)
	require.Equal(t, []pagefile.PageId{0}, l.evicted)
}

func TestFlushDoesNotEvict(t *testing.T) {
	f := pagefile.NewMemory(4)
	p := New(f, 2, eviction.NewLRU())
	buf, err := p.Get(0)
	require.NoError(t, err)
	copy(buf, []byte{1, 2, 3, 4})
	p.MarkAsDirty(0)

	require.NoError(t, p.Flush())
	require.False(t, p.IsDirty(0))
	require.Equal(t, 1, p.Resident())
}

// Copyright 2024 The Carmen Authors
// This file is part of Carmen.

package carmen

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenDefaultsToInMemorySchema1WithoutArchive(t *testing.T) {
	inst, err := Open(Parameters{})
	require.NoError(t, err)
	require.Nil(t, inst.Archive())
	require.NoError(t, inst.Close())
}

func TestOpenWithLevelDBArchiveForwardsUpdates(t *testing.T) {
	dir := t.TempDir()
	inst, err := Open(Parameters{
		Schema:      Schema2,
		Archive:     ArchiveLevelDB,
		ArchivePath: filepath.Join(dir, "archive"),
	})
	require.NoError(t, err)
	require.NotNil(t, inst.Archive())

	addr := Address{1}
	update := &Update{CreatedAccounts: []Address{addr}}
	require.NoError(t, inst.Apply(1, update))

	exists, err := inst.Archive().Exists(1, addr)
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, inst.Close())
}

func TestOpenRejectsUnknownArchiveKind(t *testing.T) {
	_, err := Open(Parameters{Archive: ArchiveKind(99)})
	require.Error(t, err)
}

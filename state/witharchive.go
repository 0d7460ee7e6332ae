// Copyright 2024 The Carmen Authors
// This file is part of Carmen.
//
// Carmen is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package state

import (
	"github.com/Fantom-foundation/Carmen/go/archive"
	"github.com/Fantom-foundation/Carmen/go/common"
)

// withArchive forwards every applied Update to an archive.Archive after the
// live state accepts it (§4.9.4: "the same update is then forwarded to the
// archive, if present").
type withArchive struct {
	State
	archive archive.Archive
}

func (w *withArchive) Apply(block common.BlockId, update *common.Update) error {
	if err := w.State.Apply(block, update); err != nil {
		return err
	}
	return w.archive.Add(block, update)
}

func (w *withArchive) Close() error {
	err := w.State.Close()
	if archErr := w.archive.Close(); err == nil {
		err = archErr
	}
	return err
}

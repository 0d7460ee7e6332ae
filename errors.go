// Copyright 2024 The Carmen Authors
// This file is part of Carmen.
//
// Carmen is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package carmen

import (
	"errors"

	"github.com/Fantom-foundation/Carmen/go/archive"
	"github.com/Fantom-foundation/Carmen/go/common"
)

// Sentinel errors inspectable via errors.Is (§10.2).
var (
	ErrClosed          = errors.New("carmen: instance is closed")
	ErrNotFound        = errors.New("carmen: not found")
	ErrInvalidArgument = errors.New("carmen: invalid argument")
	ErrUnimplemented   = errors.New("carmen: unimplemented")
	// ErrBlockNotIncreasing aliases the archive package's sentinel so
	// callers need not import archive directly to check for it.
	ErrBlockNotIncreasing = archive.ErrBlockNotIncreasing
)

// Kind classifies an error into one of the five kinds documented in §7.
func Kind(err error) common.ErrorKind {
	var cErr *common.Error
	if errors.As(err, &cErr) {
		return cErr.Kind
	}
	return common.KindInternal
}

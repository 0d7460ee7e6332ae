// Copyright 2024 The Carmen Authors
// This file is part of Carmen.
//
// Carmen is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package state

import "github.com/Fantom-foundation/Carmen/go/crypto/keccak"

// codeHash returns the Keccak-256 hash of code, matching the chain's own
// code-hash convention (§4.9.2: "Keccak of empty for an empty code").
func codeHash(code []byte) [32]byte {
	return keccak.Sum256(code)
}

// Copyright 2024 The Carmen Authors
// This file is part of Carmen.

package keccak

import (
	"bytes"
	"encoding/hex"
	"testing"

	"golang.org/x/crypto/sha3"
)

func TestSum256Empty(t *testing.T) {
	got := Sum256(nil)
	want, _ := hex.DecodeString("c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")
	if !bytes.Equal(got[:], want) {
		t.Fatalf("Sum256(nil) = %x, want %x", got, want)
	}
	if got != EmptyCodeHash {
		t.Fatalf("EmptyCodeHash mismatch: %x vs %x", EmptyCodeHash, got)
	}
}

func TestSum256MatchesReference(t *testing.T) {
	data := []byte("carmen live state")
	ref := sha3.NewLegacyKeccak256()
	ref.Write(data)
	want := ref.Sum(nil)

	got := Sum256(data)
	if !bytes.Equal(got[:], want) {
		t.Fatalf("Sum256 mismatch: got %x want %x", got, want)
	}
}

func TestNewHasherStreaming(t *testing.T) {
	data := []byte("a somewhat longer piece of contract bytecode to hash")
	h := NewHasher()
	for i := 0; i < len(data); i += 7 {
		end := i + 7
		if end > len(data) {
			end = len(data)
		}
		h.Write(data[i:end])
	}
	var got [Size]byte
	copy(got[:], h.Sum(nil))

	want := Sum256(data)
	if got != want {
		t.Fatalf("streaming hasher mismatch: got %x want %x", got, want)
	}
}

func BenchmarkSum256(b *testing.B) {
	data := make([]byte, 4096)
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))
	for i := 0; i < b.N; i++ {
		Sum256(data)
	}
}

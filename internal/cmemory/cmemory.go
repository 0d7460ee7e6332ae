// Copyright 2024 The Carmen Authors
// This file is part of Carmen.
//
// Carmen is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package cmemory defines the Footprint tree reported by
// GetMemoryFootprint at the host ABI boundary (§6.1, §12), grounded in
// cpp/common/memory_usage.h. Components do not implement a footprint
// method; the host ABI reports a single top-level node.
package cmemory

import "fmt"

// Footprint is one node of a memory-usage tree: a component's own byte
// count plus the footprints of any named children.
type Footprint struct {
	Name     string
	Bytes    uint64
	Children []Footprint
}

// Total returns Bytes plus the recursive total of every child.
func (f Footprint) Total() uint64 {
	total := f.Bytes
	for _, c := range f.Children {
		total += c.Total()
	}
	return total
}

// New creates a leaf footprint.
func New(name string, bytes uint64) Footprint {
	return Footprint{Name: name, Bytes: bytes}
}

// WithChild appends a child footprint and returns the receiver for
// chaining.
func (f Footprint) WithChild(child Footprint) Footprint {
	f.Children = append(f.Children, child)
	return f
}

func (f Footprint) String() string {
	return fmt.Sprintf("%s: %d bytes (%d with children)", f.Name, f.Bytes, f.Total())
}

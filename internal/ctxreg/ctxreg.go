// Copyright 2024 The Carmen Authors
// This file is part of Carmen.
//
// Carmen is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package ctxreg implements the shared-resource Context registry described
// in Design Notes §9 and grounded in cpp/common/heterogenous_map.h: an
// explicit, type-keyed registry of opened shared resources created once
// per Open and passed down explicitly, rather than relying on process
// global state. Its canonical use is multiplexing one shared LevelDB
// handle across an index's several key-spaces in the single-DB schema 1
// configuration (§5).
package ctxreg

import (
	"fmt"
	"reflect"
	"sync"
)

// Context is a registry of opened resources keyed by their type identity.
// It is created once per Open call and passed to every component that
// might need to share a resource with a sibling component.
type Context struct {
	mu        sync.Mutex
	resources map[reflect.Type]any
	closers   []func() error
}

// New creates an empty Context.
func New() *Context {
	return &Context{resources: map[reflect.Type]any{}}
}

// GetOrCreate returns the resource registered for T, creating it with
// create (and registering its Close, if non-nil) the first time T is
// requested.
func GetOrCreate[T any](c *Context, create func() (T, func() error, error)) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	t := reflect.TypeOf(zero)
	if existing, ok := c.resources[t]; ok {
		return existing.(T), nil
	}
	v, closer, err := create()
	if err != nil {
		return zero, err
	}
	c.resources[t] = v
	if closer != nil {
		c.closers = append(c.closers, closer)
	}
	return v, nil
}

// Close releases every resource registered with this Context, in reverse
// registration order, collecting (not stopping on) the first error.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing shared resource: %w", err)
		}
	}
	c.closers = nil
	c.resources = map[reflect.Type]any{}
	return firstErr
}

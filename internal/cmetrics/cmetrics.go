// Copyright 2024 The Carmen Authors
// This file is part of Carmen.
//
// Carmen is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package cmetrics provides the lightweight counter/timer registry idiom
// used across go-ethereum's own metrics package (§11): named counters and
// timers a component can register once and update cheaply, read out by a
// host for monitoring. It deliberately does not pull in a push-based
// metrics backend. No other package of this module imports it, so no
// component reports metrics through it.
package cmetrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Counter is a monotonic, concurrency-safe counter.
type Counter struct {
	v int64
}

func (c *Counter) Inc(delta int64) { atomic.AddInt64(&c.v, delta) }
func (c *Counter) Value() int64    { return atomic.LoadInt64(&c.v) }

// Timer records a running count and total duration of timed events.
type Timer struct {
	count int64
	total int64 // nanoseconds
}

func (t *Timer) Update(d time.Duration) {
	atomic.AddInt64(&t.count, 1)
	atomic.AddInt64(&t.total, int64(d))
}

func (t *Timer) Count() int64 { return atomic.LoadInt64(&t.count) }
func (t *Timer) Mean() time.Duration {
	n := atomic.LoadInt64(&t.count)
	if n == 0 {
		return 0
	}
	return time.Duration(atomic.LoadInt64(&t.total) / n)
}

// Registry is a named set of counters/timers, one per component instance.
type Registry struct {
	mu       sync.Mutex
	counters map[string]*Counter
	timers   map[string]*Timer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{counters: map[string]*Counter{}, timers: map[string]*Timer{}}
}

// Counter returns (creating if absent) the named counter.
func (r *Registry) Counter(name string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.counters[name]
	if !ok {
		c = &Counter{}
		r.counters[name] = c
	}
	return c
}

// Timer returns (creating if absent) the named timer.
func (r *Registry) Timer(name string) *Timer {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.timers[name]
	if !ok {
		t = &Timer{}
		r.timers[name] = t
	}
	return t
}

// Snapshot returns a point-in-time copy of every counter's value, for
// host-side reporting.
func (r *Registry) Snapshot() map[string]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int64, len(r.counters))
	for name, c := range r.counters {
		out[name] = c.Value()
	}
	return out
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package window

import "github.com/relabs-tech/marine_scale/internal/stats"

type entry struct {
	value float64
	ts    int64 // monotonic milliseconds
}

// Ring is a fixed-capacity circular buffer of timestamped scalars. Once
// full, Push overwrites the oldest entry. Time windows are always relative
// to the newest sample in the buffer, not wall-clock now, so a ring that
// stops receiving data reports a static window until data resumes.
type Ring struct {
	entries []entry
	head    int // next write position
	count   int
}

// NewRing returns a ring holding at most capacity entries. Capacity is
// clamped to at least 1.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{entries: make([]entry, capacity)}
}

// Push appends a value with its timestamp, overwriting the oldest entry
// when the ring is full.
func (r *Ring) Push(value float64, tsMillis int64) {
	r.entries[r.head] = entry{value: value, ts: tsMillis}
	r.head = (r.head + 1) % len(r.entries)
	if r.count < len(r.entries) {
		r.count++
	}
}

// Len returns the number of entries currently held.
func (r *Ring) Len() int {
	return r.count
}

// Cap returns the fixed capacity the ring was constructed with.
func (r *Ring) Cap() int {
	return len(r.entries)
}

// Clear drops all entries.
func (r *Ring) Clear() {
	r.head = 0
	r.count = 0
}

// ValuesInWindow returns, in chronological order, every value whose
// timestamp is within durMillis of the newest entry's timestamp.
func (r *Ring) ValuesInWindow(durMillis int64) []float64 {
	if r.count == 0 {
		return nil
	}
	newestIdx := (r.head - 1 + len(r.entries)) % len(r.entries)
	cutoff := r.entries[newestIdx].ts - durMillis

	out := make([]float64, 0, r.count)
	start := (r.head - r.count + len(r.entries)) % len(r.entries)
	for i := 0; i < r.count; i++ {
		e := r.entries[(start+i)%len(r.entries)]
		if e.ts >= cutoff {
			out = append(out, e.value)
		}
	}
	return out
}

// RMSInWindow returns the RMS of the values within durMillis of the newest
// entry. An empty ring reports 0.
func (r *Ring) RMSInWindow(durMillis int64) float64 {
	return stats.RMS(r.ValuesInWindow(durMillis))
}

/* SPDX-License-Identifier: GPL-3.0-or-later
 *
 * camworker
 * Copyright (C) 2026 coldharbor
 *
 * This file is part of camworker.
 *
 * camworker is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * camworker is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with camworker.  If not, see <https://www.gnu.org/licenses/>.
 */

// Package metrics holds the capture pipeline's per-phase performance ring
// and an optional Prometheus exporter over it.
package metrics

import (
	"sync"
	"time"
)

// ringSize mirrors METRIC_SAMPLES (25*5) from the original capture
// worker: a rolling window of the last 125 timings per phase.
const ringSize = 125

// Phase identifies one of the timed sections of a capture loop iteration.
type Phase int

const (
	PhaseLoop Phase = iota
	PhaseDecode
	PhaseJPEGFull
	PhaseJPEGScaled
	PhaseSerializeFull
	PhaseSerializeScaled
	phaseCount
)

func (p Phase) String() string {
	switch p {
	case PhaseLoop:
		return "loop_time"
	case PhaseDecode:
		return "decode_time"
	case PhaseJPEGFull:
		return "jpeg_encode_time"
	case PhaseJPEGScaled:
		return "scaled_jpeg_encode_time"
	case PhaseSerializeFull:
		return "jpeg_serialize_time"
	case PhaseSerializeScaled:
		return "scaled_jpeg_serialize_time"
	default:
		return "unknown"
	}
}

// Ring is a fixed-size per-phase ring of millisecond interval samples. It
// is purely for telemetry; nothing in the pipeline's correctness depends
// on it.
type Ring struct {
	mu      sync.Mutex
	samples [phaseCount][ringSize]float64
	index   int
	filled  bool
}

// NewRing returns an empty ring.
func NewRing() *Ring {
	return &Ring{}
}

// Record stores one sample for phase at the ring's current slot. Call
// Advance once per loop iteration after recording all phases for it.
func (r *Ring) Record(phase Phase, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples[phase][r.index] = float64(d.Milliseconds())
}

// Advance moves the ring to its next slot, wrapping after ringSize
// iterations. It returns true every ringSize-th call, signaling that a
// summary is due (the capture loop logs a summary every 125 iterations).
func (r *Ring) Advance() (dueForSummary bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.index++
	if r.index >= ringSize {
		r.index = 0
		r.filled = true
		return true
	}
	return false
}

// Average returns the mean of all recorded samples for phase (only the
// portion of the ring that has been written so far).
func (r *Ring) Average(phase Phase) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.index
	if r.filled {
		n = ringSize
	}
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += r.samples[phase][i]
	}
	return sum / float64(n)
}

// Snapshot returns the current average for every phase, keyed by its
// label, for use in a summary log line.
func (r *Ring) Snapshot() map[string]float64 {
	out := make(map[string]float64, phaseCount)
	for p := Phase(0); p < phaseCount; p++ {
		out[p.String()] = r.Average(p)
	}
	return out
}

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

package video

import (
	"time"

	"github.com/coldharbor/camworker/internal/clock"
)

// exTimeout is EX_TIMEOUT_MS from spec.md §5: a blocked read is cancelled
// after this much monotonic time has passed since the last successful
// read. A var, not a const, so ApplyProfile can override it for a
// non-default deployment without a rebuild.
var exTimeout = 5000 * time.Millisecond

// watchdog backs the interrupt callback installed on an input session's
// demuxer (spec.md §5, "Watchdog / cancellation"). Its state is written
// only by the owning pipeline loop (via touch) and read only by the
// interrupt callback the wrapped library polls from its own read thread;
// the two never race because the library only invokes the callback while
// the owning goroutine is blocked inside the same read call that will next
// call touch.
type watchdog struct {
	lastFrameTime  time.Time
	streamOpenTime time.Time
	hungUp         func() bool
}

func newWatchdog(hungUp func() bool) *watchdog {
	now := clock.Monotonic()
	return &watchdog{
		lastFrameTime:  now,
		streamOpenTime: now,
		hungUp:         hungUp,
	}
}

// touch records that a read just made progress. Call it after every
// successful packet read.
func (w *watchdog) touch() {
	w.lastFrameTime = clock.Monotonic()
}

// shouldCancel implements the interrupt callback's cancellation policy:
// cancel once either the stall timeout has elapsed or the supervisor has
// hung up standard input.
func (w *watchdog) shouldCancel() bool {
	elapsed := clock.MillisBetween(w.lastFrameTime, clock.Monotonic())
	if elapsed > exTimeout.Milliseconds() {
		return true
	}
	if w.hungUp != nil && w.hungUp() {
		return true
	}
	return false
}

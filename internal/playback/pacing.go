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

package playback

import "time"

// catchUpCap is the longest single sleep shouldEmitNow asks for while a
// frame's target presentation time is still ahead; a frame that is already
// due (or late by any amount) is emitted immediately.
const catchUpCap = 2 * time.Second

// shouldEmitNow is the pure pacing decision for one decoded frame:
// compare how much wall-clock time has elapsed since playback began
// against how far into the recording this frame's PTS places it. It
// returns whether the frame should be emitted immediately and, if not,
// how long to sleep before checking again. The sleep is capped at
// catchUpCap so a frame whose target time is far in the future (a seek
// discontinuity, a paused debugger, a clock jump) never produces a
// single unbounded sleep — the caller loops, re-reading the clock each
// time, until elapsed finally catches up.
func shouldEmitNow(elapsed, ptsDuration time.Duration) (emit bool, sleep time.Duration) {
	if elapsed >= ptsDuration {
		return true, 0
	}
	remaining := ptsDuration - elapsed
	if remaining > catchUpCap {
		return false, catchUpCap
	}
	return false, remaining
}

// dividePTS applies the playback-rate compression described in the
// component design: fast-forward divides the presentation timeline by
// the rate so frame N arrives N/rate times sooner.
func dividePTS(pts int64, rate int) int64 {
	if rate <= 1 {
		return pts
	}
	return pts / int64(rate)
}

// keepsFrame reports whether frameCount (1-based) should be emitted at
// the given playback rate: at rate 1 every frame is kept; at rate N only
// every Nth frame is kept.
func keepsFrame(frameCount int64, rate int) bool {
	if rate <= 1 {
		return true
	}
	return frameCount%int64(rate) == 0
}

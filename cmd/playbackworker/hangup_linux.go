//go:build linux

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

package main

import "golang.org/x/sys/unix"

// stdinHungUp polls standard input for POLLHUP without blocking, letting
// the playback loop notice a disconnected supervisor between packets
// (spec.md §4.7 step 4) without needing its own watchdog goroutine.
func stdinHungUp() bool {
	fds := []unix.PollFd{{Fd: 0, Events: 0}}
	if _, err := unix.Poll(fds, 0); err != nil {
		return false
	}
	return fds[0].Revents&unix.POLLHUP != 0
}

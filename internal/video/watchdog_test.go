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
	"testing"
	"time"
)

func TestWatchdogDoesNotCancelBeforeTimeout(t *testing.T) {
	w := newWatchdog(func() bool { return false })
	w.lastFrameTime = w.lastFrameTime.Add(-4 * time.Second)
	if w.shouldCancel() {
		t.Fatal("shouldCancel() = true before the 5s timeout elapsed")
	}
}

func TestWatchdogCancelsAfterTimeout(t *testing.T) {
	w := newWatchdog(func() bool { return false })
	w.lastFrameTime = w.lastFrameTime.Add(-6 * time.Second)
	if !w.shouldCancel() {
		t.Fatal("shouldCancel() = false after the 5s timeout elapsed")
	}
}

func TestWatchdogCancelsOnHangupRegardlessOfTimeout(t *testing.T) {
	w := newWatchdog(func() bool { return true })
	if !w.shouldCancel() {
		t.Fatal("shouldCancel() = false despite hang-up")
	}
}

func TestWatchdogTouchResetsTimer(t *testing.T) {
	w := newWatchdog(func() bool { return false })
	w.lastFrameTime = w.lastFrameTime.Add(-6 * time.Second)
	w.touch()
	if w.shouldCancel() {
		t.Fatal("shouldCancel() = true immediately after touch()")
	}
}

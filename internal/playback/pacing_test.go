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

import (
	"testing"
	"time"
)

func TestShouldEmitNowWhenCaughtUp(t *testing.T) {
	emit, sleep := shouldEmitNow(100*time.Millisecond, 90*time.Millisecond)
	if !emit || sleep != 0 {
		t.Fatalf("shouldEmitNow() = (%v, %v), want (true, 0)", emit, sleep)
	}
}

func TestShouldEmitNowWhenExactlyOnTime(t *testing.T) {
	emit, sleep := shouldEmitNow(50*time.Millisecond, 50*time.Millisecond)
	if !emit || sleep != 0 {
		t.Fatalf("shouldEmitNow() = (%v, %v), want (true, 0)", emit, sleep)
	}
}

func TestShouldEmitNowSleepsWhenAhead(t *testing.T) {
	emit, sleep := shouldEmitNow(10*time.Millisecond, 40*time.Millisecond)
	if emit || sleep != 30*time.Millisecond {
		t.Fatalf("shouldEmitNow() = (%v, %v), want (false, 30ms)", emit, sleep)
	}
}

func TestShouldEmitNowCapsLongSleeps(t *testing.T) {
	emit, sleep := shouldEmitNow(0, 10*time.Second)
	if emit || sleep != catchUpCap {
		t.Fatalf("shouldEmitNow() = (%v, %v), want (false, %v)", emit, sleep, catchUpCap)
	}
}

func TestDividePTSAtRateOne(t *testing.T) {
	if got := dividePTS(12345, 1); got != 12345 {
		t.Fatalf("dividePTS(12345, 1) = %d, want 12345", got)
	}
}

func TestDividePTSAtHigherRate(t *testing.T) {
	if got := dividePTS(100, 4); got != 25 {
		t.Fatalf("dividePTS(100, 4) = %d, want 25", got)
	}
}

func TestKeepsFrameAtRateOneKeepsEverything(t *testing.T) {
	for i := int64(1); i <= 5; i++ {
		if !keepsFrame(i, 1) {
			t.Fatalf("keepsFrame(%d, 1) = false, want true", i)
		}
	}
}

func TestKeepsFrameAtHigherRateKeepsEveryNth(t *testing.T) {
	cases := map[int64]bool{1: false, 2: false, 3: false, 4: true, 5: false, 8: true}
	for frameCount, want := range cases {
		if got := keepsFrame(frameCount, 4); got != want {
			t.Errorf("keepsFrame(%d, 4) = %v, want %v", frameCount, got, want)
		}
	}
}

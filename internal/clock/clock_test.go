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

package clock

import (
	"testing"
	"time"
)

func TestMillisBetweenSigned(t *testing.T) {
	begin := time.Unix(0, 0)
	end := begin.Add(-250 * time.Millisecond)
	if got := MillisBetween(begin, end); got != -250 {
		t.Fatalf("MillisBetween() = %d, want -250", got)
	}
}

func TestISO8601Format(t *testing.T) {
	loc := time.FixedZone("TEST", 3600)
	// ISO8601 formats in the local timezone, so pin it to the fixture's zone.
	origLocal := time.Local
	time.Local = loc
	defer func() { time.Local = origLocal }()
	ts := time.Date(2026, 1, 2, 3, 4, 5, 6_000_000, loc)
	got := ISO8601(ts)
	want := "2026-01-02T03:04:05.006+0100"
	if got != want {
		t.Fatalf("ISO8601() = %q, want %q", got, want)
	}
}

func TestRescaleIdentity(t *testing.T) {
	tb := Rational{Num: 1, Den: 90000}
	if got := Rescale(90000, tb, tb); got != 90000 {
		t.Fatalf("Rescale identity = %d, want 90000", got)
	}
}

func TestRescaleRTPToMicroseconds(t *testing.T) {
	from := Rational{Num: 1, Den: 90000}
	to := Rational{Num: 1, Den: 1_000_000}
	// One 90kHz tick should be ~11.111us, rounds to 11.
	if got := Rescale(1, from, to); got != 11 {
		t.Fatalf("Rescale(1 @ 90kHz -> us) = %d, want 11", got)
	}
	if got := Rescale(45, from, to); got != 500 {
		t.Fatalf("Rescale(45 @ 90kHz -> us) = %d, want 500", got)
	}
}

func TestRescaleRoundsHalfAwayFromZeroNegative(t *testing.T) {
	from := Rational{Num: 1, Den: 2}
	to := Rational{Num: 1, Den: 1}
	if got := Rescale(-1, from, to); got != -1 {
		t.Fatalf("Rescale(-0.5) = %d, want -1 (away from zero)", got)
	}
}

func TestRescaleSaturates(t *testing.T) {
	from := Rational{Num: 1, Den: 1}
	to := Rational{Num: 1, Den: 1000}
	got := Rescale(1<<62, from, to)
	if got != 1<<63-1 {
		t.Fatalf("Rescale() did not saturate, got %d", got)
	}
}

func TestDurationFromTimebase(t *testing.T) {
	tb := Rational{Num: 1, Den: 90000}
	d := Duration(90000, tb)
	if d != time.Second {
		t.Fatalf("Duration(90000 @ 1/90000) = %v, want 1s", d)
	}
}

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

// Package clock centralizes the monotonic/real-time reads and rational
// timebase arithmetic the video substrate leans on: the watchdog timeout,
// the output session's begin/end timestamps, and packet/frame timestamp
// rescaling all go through here so there is exactly one rounding rule in
// the codebase.
package clock

import (
	"math"
	"math/big"
	"time"
)

// Monotonic returns a reading suitable only for measuring elapsed time
// against another Monotonic reading (e.g. via Sub). Do not format it or
// persist it; use Wall for that.
func Monotonic() time.Time {
	return time.Now()
}

// Wall returns the current real (wall-clock) time, stripped of the
// monotonic reading Go normally attaches to time.Now(). Use this whenever
// a timestamp will be formatted, serialized, or compared across process
// boundaries.
func Wall() time.Time {
	return time.Now().Round(0)
}

// MillisBetween returns end-begin in whole milliseconds. Both timestamps
// are treated as signed so that clock skew (end before begin) produces a
// negative interval instead of wrapping.
func MillisBetween(begin, end time.Time) int64 {
	return end.Sub(begin).Milliseconds()
}

// ISO8601 formats t as YYYY-MM-DDTHH:MM:SS.mmm±HHMM in the local timezone.
func ISO8601(t time.Time) string {
	return t.Local().Format("2006-01-02T15:04:05.000-0700")
}

// Rational is a num/den pair such that one unit equals num/den seconds (or
// whatever quantity the caller is rescaling). It mirrors the rational
// timebases streams and packets carry.
type Rational struct {
	Num int64
	Den int64
}

// Rescale converts value from the from timebase into the to timebase,
// rounding to the nearest integer (ties away from zero) and saturating to
// the int64 range instead of overflowing.
func Rescale(value int64, from, to Rational) int64 {
	if from.Den == 0 || to.Num == 0 || to.Den == 0 {
		return 0
	}

	num := new(big.Int).Mul(big.NewInt(value), big.NewInt(from.Num))
	num.Mul(num, big.NewInt(to.Den))

	den := new(big.Int).Mul(big.NewInt(from.Den), big.NewInt(to.Num))
	if den.Sign() == 0 {
		return 0
	}

	q, r := new(big.Int).QuoRem(num, den, new(big.Int))

	twiceR := new(big.Int).Abs(r)
	twiceR.Mul(twiceR, big.NewInt(2))
	if twiceR.Cmp(new(big.Int).Abs(den)) >= 0 {
		if (num.Sign() < 0) != (den.Sign() < 0) {
			q.Sub(q, big.NewInt(1))
		} else {
			q.Add(q, big.NewInt(1))
		}
	}

	max := big.NewInt(math.MaxInt64)
	min := big.NewInt(math.MinInt64)
	switch {
	case q.Cmp(max) > 0:
		return math.MaxInt64
	case q.Cmp(min) < 0:
		return math.MinInt64
	default:
		return q.Int64()
	}
}

// Duration converts a timebase-relative count into a time.Duration.
func Duration(value int64, tb Rational) time.Duration {
	ns := Rescale(value, tb, Rational{Num: 1, Den: int64(time.Second)})
	return time.Duration(ns)
}

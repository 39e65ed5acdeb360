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

import "testing"

func TestAcceptsPacketRejectsNegativePTS(t *testing.T) {
	if acceptsPacket(-1, -1) {
		t.Fatal("accepted a negative PTS")
	}
}

func TestAcceptsPacketRejectsNonMonotonic(t *testing.T) {
	if acceptsPacket(99, 100) {
		t.Fatal("accepted a PTS that moved backward")
	}
}

func TestAcceptsPacketAllowsEqualOrAdvancing(t *testing.T) {
	if !acceptsPacket(100, 100) {
		t.Fatal("rejected a PTS equal to the previous one")
	}
	if !acceptsPacket(101, 100) {
		t.Fatal("rejected a PTS that advanced")
	}
}

func TestAcceptsPacketFirstPacketHasNoPrev(t *testing.T) {
	if !acceptsPacket(0, -1) {
		t.Fatal("rejected the first packet when prevPTS is unset (-1)")
	}
}

func TestShouldRolloverBelowThreshold(t *testing.T) {
	if shouldRollover(9*1024*1024, rolloverThreshold) {
		t.Fatal("rolled over below the threshold")
	}
}

func TestShouldRolloverAtThreshold(t *testing.T) {
	if !shouldRollover(rolloverThreshold, rolloverThreshold) {
		t.Fatal("did not roll over at exactly the threshold")
	}
}

func TestShouldRolloverAboveThreshold(t *testing.T) {
	if !shouldRollover(rolloverThreshold+1, rolloverThreshold) {
		t.Fatal("did not roll over above the threshold")
	}
}

func TestOutputStateString(t *testing.T) {
	cases := map[OutputState]string{
		StateClosed:  "closed",
		StateOpening: "opening",
		StateWriting: "writing",
		StateClosing: "closing",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}

func TestNewOutputStartsClosed(t *testing.T) {
	o := NewOutput("/rec")
	if o.State() != StateClosed {
		t.Fatalf("NewOutput().State() = %v, want Closed", o.State())
	}
	if o.Path() != "" {
		t.Fatalf("NewOutput().Path() = %q, want empty", o.Path())
	}
}

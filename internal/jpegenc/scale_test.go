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

package jpegenc

import "testing"

func TestScaledWidthPreservesAspectRatio(t *testing.T) {
	cases := []struct {
		srcW, srcH, dstH, wantW int
	}{
		{1920, 1080, 480, 853},
		{1280, 720, 480, 853},
		{640, 480, 480, 640},
	}
	for _, c := range cases {
		got := scaledWidth(c.srcW, c.srcH, c.dstH)
		if got != c.wantW {
			t.Errorf("scaledWidth(%d,%d,%d) = %d, want %d", c.srcW, c.srcH, c.dstH, got, c.wantW)
		}
	}
}

func TestScaledWidthHandlesZeroHeight(t *testing.T) {
	if got := scaledWidth(1920, 0, 480); got != 1920 {
		t.Fatalf("scaledWidth with zero src height = %d, want passthrough 1920", got)
	}
}

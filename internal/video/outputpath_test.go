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
	"os"
	"strings"
	"testing"
	"time"
)

func TestGenerateOutputPathFormat(t *testing.T) {
	loc := time.FixedZone("", -7*3600)
	// GenerateOutputPath formats in the local timezone, so pin it to the
	// fixture's zone.
	origLocal := time.Local
	time.Local = loc
	defer func() { time.Local = origLocal }()
	ts := time.Date(2026, 7, 30, 14, 5, 9, 0, loc)
	got := GenerateOutputPath("/rec", ts, 12345)

	want := "/rec/" + itoa(ts.Unix()) + "_2026-07-30T140509-0700_12345.mkv"
	if got != want {
		t.Fatalf("GenerateOutputPath() = %q, want %q", got, want)
	}
}

func TestGenerateOutputPathVariesWithNonce(t *testing.T) {
	ts := time.Now()
	a := GenerateOutputPath("/rec", ts, 1)
	b := GenerateOutputPath("/rec", ts, 2)
	if a == b {
		t.Fatal("paths with different nonces collided")
	}
}

func TestPatchEndTimeSentinelRewritesPlaceholder(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "patch-*.mkv")
	if err != nil {
		t.Fatal(err)
	}
	path := f.Name()
	if _, err := f.WriteString("matroska-header-junk-" + endTimeSentinel + "-trailer"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	replacement := "2026-07-30T14:05:09.123+0000"
	if len(replacement) != len(endTimeSentinel) {
		t.Fatalf("test fixture bug: replacement length %d != sentinel length %d", len(replacement), len(endTimeSentinel))
	}

	if err := PatchEndTimeSentinel(path, replacement); err != nil {
		t.Fatalf("PatchEndTimeSentinel() error = %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(contents), endTimeSentinel) {
		t.Fatal("sentinel still present after patch")
	}
	if !strings.Contains(string(contents), replacement) {
		t.Fatalf("expected patched bytes %q, got %q", replacement, contents)
	}
}

func TestPatchEndTimeSentinelRejectsWrongLength(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "patch-*.mkv")
	if err != nil {
		t.Fatal(err)
	}
	path := f.Name()
	f.WriteString("junk" + endTimeSentinel + "junk")
	f.Close()

	if err := PatchEndTimeSentinel(path, "too-short"); err == nil {
		t.Fatal("expected error for a replacement of the wrong length")
	}
}

func TestPatchEndTimeSentinelMissingSentinel(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "patch-*.mkv")
	if err != nil {
		t.Fatal(err)
	}
	path := f.Name()
	f.WriteString("no sentinel in here")
	f.Close()

	if err := PatchEndTimeSentinel(path, "2026-07-30T14:05:09.123+0000"); err == nil {
		t.Fatal("expected error when sentinel is absent")
	}
}

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

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
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// endTimeSentinel is the placeholder ENDTIME metadata value written at
// file-open time, sized to exactly match the fixed-width ISO8601 format
// clock.ISO8601 produces (YYYY-MM-DDTHH:MM:SS.mmm±HHMM, 28 bytes). The
// muxer only accepts metadata before the header is written, and by then
// the real end time isn't known yet, so Closing patches these bytes in
// place once the file is complete.
const endTimeSentinel = "ENDTIME-PENDING-PLACEHOLDERR"

// GenerateOutputPath builds a recording filename of the form
// <dir>/<unix-seconds>_<YYYY-MM-DDTHHMMSS±HHMM>_<nonce>.mkv.
func GenerateOutputPath(dir string, now time.Time, nonce int32) string {
	local := now.Local()
	compact := local.Format("2006-01-02T150405-0700")
	return fmt.Sprintf("%s/%d_%s_%d.mkv", dir, now.Unix(), compact, nonce)
}

// PatchEndTimeSentinel scans path byte-by-byte for the literal
// endTimeSentinel placeholder and overwrites it in place with endTimeISO,
// which must be exactly len(endTimeSentinel) bytes (clock.ISO8601's
// output always is).
func PatchEndTimeSentinel(path string, endTimeISO string) error {
	if len(endTimeISO) != len(endTimeSentinel) {
		return fmt.Errorf("video: replacement must be %d bytes, got %d (%q)", len(endTimeSentinel), len(endTimeISO), endTimeISO)
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("video: open %s for patch: %w", path, err)
	}
	defer f.Close()

	pos, err := findSentinel(f, endTimeSentinel)
	if err != nil {
		return fmt.Errorf("video: scan %s for sentinel: %w", path, err)
	}
	if pos < 0 {
		return fmt.Errorf("video: sentinel %q not found in %s", endTimeSentinel, path)
	}

	if _, err := f.Seek(pos, io.SeekStart); err != nil {
		return fmt.Errorf("video: seek %s: %w", path, err)
	}
	if _, err := f.WriteString(endTimeISO); err != nil {
		return fmt.Errorf("video: write patch to %s: %w", path, err)
	}
	return nil
}

// findSentinel returns the byte offset of the first occurrence of needle
// in r, or -1 if not found.
func findSentinel(r io.ReadSeeker, needle string) (int64, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return -1, err
	}
	br := bufio.NewReader(r)

	var pos int64
	matched := 0
	for {
		b, err := br.ReadByte()
		if err != nil {
			return -1, nil
		}
		if b == needle[matched] {
			matched++
			if matched == len(needle) {
				return pos - int64(len(needle)) + 1, nil
			}
		} else {
			// Restart from the longest suffix of the bytes matched so far
			// (plus the byte just read) that is still a prefix of needle:
			// the sentinel's leading "E" recurs inside it, so a plain reset
			// could skip an occurrence.
			tail := string([]byte{b})
			if matched > 0 {
				tail = needle[1:matched] + tail
			}
			matched = 0
			for k := len(tail); k > 0; k-- {
				if strings.HasPrefix(needle, tail[len(tail)-k:]) {
					matched = k
					break
				}
			}
		}
		pos++
	}
}

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

package codec

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

// readRecord reads one length-prefixed record from buf and decodes it into
// a generic map, mirroring how a conforming supervisor would parse the
// stream.
func readRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var lenPrefix [4]byte
	if _, err := buf.Read(lenPrefix[:]); err != nil {
		t.Fatalf("read length prefix: %v", err)
	}
	n := binary.BigEndian.Uint32(lenPrefix[:])

	payload := make([]byte, n)
	if _, err := buf.Read(payload); err != nil {
		t.Fatalf("read payload: %v", err)
	}

	var out map[string]any
	if err := msgpack.Unmarshal(payload, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestWriteFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xD9}
	if err := w.WriteFrame(jpeg, 12345, 1920, 1080); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	rec := readRecord(t, &buf)
	if rec["type"] != "frame" {
		t.Errorf("type = %v, want frame", rec["type"])
	}
	if got, want := rec["offset"], int64(12345); got != want {
		t.Errorf("offset = %v (%T), want %v", got, got, want)
	}
	if got, want := rec["unscaledWidth"], int32(1920); got != want {
		t.Errorf("unscaledWidth = %v, want %v", got, want)
	}
	if got, want := rec["unscaledHeight"], int32(1080); got != want {
		t.Errorf("unscaledHeight = %v, want %v", got, want)
	}
	gotJPEG, ok := rec["jpegFrame"].([]byte)
	if !ok || !bytes.Equal(gotJPEG, jpeg) {
		t.Errorf("jpegFrame = %v, want %v", rec["jpegFrame"], jpeg)
	}
	if buf.Len() != 0 {
		t.Errorf("trailing bytes after decode: %d", buf.Len())
	}
}

func TestWriteFrameScaledHasHeightKey(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	if err := w.WriteFrameScaled([]byte{1, 2, 3}, 480, 99, 640, 480); err != nil {
		t.Fatalf("WriteFrameScaled: %v", err)
	}

	rec := readRecord(t, &buf)
	if rec["type"] != "frameScaled" {
		t.Errorf("type = %v, want frameScaled", rec["type"])
	}
	if got, want := rec["height"], int32(480); got != want {
		t.Errorf("height = %v, want %v", got, want)
	}
}

func TestNewFileAndEndFile(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	if err := w.WriteNewFile("/rec/a.mkv", "2026-01-02T03:04:05.000+0000"); err != nil {
		t.Fatalf("WriteNewFile: %v", err)
	}
	if err := w.WriteEndFile("/rec/a.mkv", "2026-01-02T03:05:05.000+0000"); err != nil {
		t.Fatalf("WriteEndFile: %v", err)
	}

	newFile := readRecord(t, &buf)
	if newFile["type"] != "newFile" || newFile["filename"] != "/rec/a.mkv" {
		t.Errorf("newFile record wrong: %v", newFile)
	}

	endFile := readRecord(t, &buf)
	if endFile["type"] != "endFile" || endFile["endTime"] != "2026-01-02T03:05:05.000+0000" {
		t.Errorf("endFile record wrong: %v", endFile)
	}
}

func TestWriteLogLevels(t *testing.T) {
	cases := []struct {
		level LogLevel
		want  string
	}{
		{LogQuiet, "quiet"},
		{LogPanic, "panic"},
		{LogFatal, "fatal"},
		{LogError, "error"},
		{LogWarning, "warning"},
		{LogInfo, "info"},
		{LogDebug, "debug"},
		{LogLevel(99), "unknown"},
	}

	for _, c := range cases {
		var buf bytes.Buffer
		w := NewWriter(&buf)
		if err := w.WriteLog(c.level, "hello"); err != nil {
			t.Fatalf("WriteLog(%v): %v", c.level, err)
		}
		rec := readRecord(t, &buf)
		if rec["level"] != c.want {
			t.Errorf("level = %v, want %v", rec["level"], c.want)
		}
		if rec["message"] != "hello" {
			t.Errorf("message = %v, want hello", rec["message"])
		}
	}
}

// trackingWriter buffers every byte written to it so the test can decode
// the stream afterwards and check that concurrent WriteLog calls did not
// interleave their records.
type trackingWriter struct {
	buf bytes.Buffer
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	return t.buf.Write(p)
}

func TestWriterSerializesConcurrentWrites(t *testing.T) {
	tw := &trackingWriter{}
	w := NewWriter(tw)

	const n = 50
	done := make(chan struct{})
	for i := 0; i < n; i++ {
		go func(i int) {
			_ = w.WriteLog(LogInfo, "concurrent")
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < n; i++ {
		<-done
	}

	count := 0
	for tw.buf.Len() > 0 {
		readRecord(t, &tw.buf)
		count++
	}
	if count != n {
		t.Fatalf("decoded %d complete records, want %d (interleaving corrupted the stream)", count, n)
	}
}

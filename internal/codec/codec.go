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

// Package codec implements the length-prefixed msgpack wire protocol the
// worker uses to stream frames, file-boundary events and log lines back to
// its supervising process over standard output.
package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// LogLevel mirrors the FFmpeg log-level vocabulary the capture worker
// forwards through `log` records.
type LogLevel int

const (
	LogQuiet LogLevel = iota
	LogPanic
	LogFatal
	LogError
	LogWarning
	LogInfo
	LogDebug
	LogUnknown
)

func (l LogLevel) String() string {
	switch l {
	case LogQuiet:
		return "quiet"
	case LogPanic:
		return "panic"
	case LogFatal:
		return "fatal"
	case LogError:
		return "error"
	case LogWarning:
		return "warning"
	case LogInfo:
		return "info"
	case LogDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// ErrSerializeFailure wraps any error the msgpack encoder returns while
// building a record. Per the wire-protocol contract this is always fatal:
// the caller should log it and exit nonzero.
var ErrSerializeFailure = fmt.Errorf("codec: serialize failure")

// Writer serializes records as length-prefixed msgpack maps and writes them
// to an underlying io.Writer (ordinarily the worker's standard output). All
// writes are serialized under a single mutex so concurrent emitters (the
// capture loop and an interrupt-driven log line, say) never interleave two
// records.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter wraps w. w is typically os.Stdout.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

type flusher interface {
	Flush() error
}

// writeRecord encodes one record via build, frames it with a big-endian u32
// length prefix covering only the payload, writes it, and flushes.
func (rw *Writer) writeRecord(build func(enc *msgpack.Encoder) error) error {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := build(enc); err != nil {
		return fmt.Errorf("%w: %v", ErrSerializeFailure, err)
	}

	rw.mu.Lock()
	defer rw.mu.Unlock()

	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(buf.Len()))

	if _, err := rw.w.Write(lenPrefix[:]); err != nil {
		return fmt.Errorf("%w: %v", ErrSerializeFailure, err)
	}
	if _, err := rw.w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("%w: %v", ErrSerializeFailure, err)
	}
	if f, ok := rw.w.(flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("%w: %v", ErrSerializeFailure, err)
		}
	}
	return nil
}

// WriteFrame emits a full-resolution frame record.
func (rw *Writer) WriteFrame(jpeg []byte, offsetMicros int64, unscaledWidth, unscaledHeight int32) error {
	return rw.writeRecord(func(enc *msgpack.Encoder) error {
		if err := enc.EncodeMapLen(5); err != nil {
			return err
		}
		return encodeAll(enc,
			kv{"type", "frame"},
			kv{"jpegFrame", jpeg},
			kv{"offset", offsetMicros},
			kv{"unscaledWidth", unscaledWidth},
			kv{"unscaledHeight", unscaledHeight},
		)
	})
}

// WriteFrameScaled emits a scaled (thumbnail) frame record.
func (rw *Writer) WriteFrameScaled(jpeg []byte, height int32, offsetMicros int64, unscaledWidth, unscaledHeight int32) error {
	return rw.writeRecord(func(enc *msgpack.Encoder) error {
		if err := enc.EncodeMapLen(6); err != nil {
			return err
		}
		if err := enc.EncodeString("type"); err != nil {
			return err
		}
		if err := enc.EncodeString("frameScaled"); err != nil {
			return err
		}
		if err := enc.EncodeString("jpegFrameScaled"); err != nil {
			return err
		}
		if err := enc.EncodeBytes(jpeg); err != nil {
			return err
		}
		if err := enc.EncodeString("height"); err != nil {
			return err
		}
		if err := enc.EncodeInt32(height); err != nil {
			return err
		}
		if err := enc.EncodeString("offset"); err != nil {
			return err
		}
		if err := enc.EncodeInt64(offsetMicros); err != nil {
			return err
		}
		if err := enc.EncodeString("unscaledWidth"); err != nil {
			return err
		}
		if err := enc.EncodeInt32(unscaledWidth); err != nil {
			return err
		}
		if err := enc.EncodeString("unscaledHeight"); err != nil {
			return err
		}
		return enc.EncodeInt32(unscaledHeight)
	})
}

// WriteNewFile emits a new-file boundary record.
func (rw *Writer) WriteNewFile(filename, beginTimeISO string) error {
	return rw.writeRecord(func(enc *msgpack.Encoder) error {
		if err := enc.EncodeMapLen(3); err != nil {
			return err
		}
		if err := enc.EncodeString("type"); err != nil {
			return err
		}
		if err := enc.EncodeString("newFile"); err != nil {
			return err
		}
		if err := enc.EncodeString("filename"); err != nil {
			return err
		}
		if err := enc.EncodeString(filename); err != nil {
			return err
		}
		if err := enc.EncodeString("beginTime"); err != nil {
			return err
		}
		return enc.EncodeString(beginTimeISO)
	})
}

// WriteEndFile emits an end-file boundary record.
func (rw *Writer) WriteEndFile(filename, endTimeISO string) error {
	return rw.writeRecord(func(enc *msgpack.Encoder) error {
		if err := enc.EncodeMapLen(3); err != nil {
			return err
		}
		if err := enc.EncodeString("type"); err != nil {
			return err
		}
		if err := enc.EncodeString("endFile"); err != nil {
			return err
		}
		if err := enc.EncodeString("filename"); err != nil {
			return err
		}
		if err := enc.EncodeString(filename); err != nil {
			return err
		}
		if err := enc.EncodeString("endTime"); err != nil {
			return err
		}
		return enc.EncodeString(endTimeISO)
	})
}

// WriteLog emits a log record. This is the only channel operational
// diagnostics reach the supervisor through; stderr is for crash-time
// debugging only.
func (rw *Writer) WriteLog(level LogLevel, message string) error {
	return rw.writeRecord(func(enc *msgpack.Encoder) error {
		if err := enc.EncodeMapLen(3); err != nil {
			return err
		}
		if err := enc.EncodeString("type"); err != nil {
			return err
		}
		if err := enc.EncodeString("log"); err != nil {
			return err
		}
		if err := enc.EncodeString("level"); err != nil {
			return err
		}
		if err := enc.EncodeString(level.String()); err != nil {
			return err
		}
		if err := enc.EncodeString("message"); err != nil {
			return err
		}
		return enc.EncodeString(message)
	})
}

// kv is a tiny helper for the two-field-per-key records; it only supports
// the field shapes WriteFrame needs ("type"/"jpegFrame"/"offset"/
// "unscaledWidth") and is not meant as a general encoder.
type kv struct {
	key   string
	value any
}

func encodeAll(enc *msgpack.Encoder, fields ...kv) error {
	for _, f := range fields {
		if err := enc.EncodeString(f.key); err != nil {
			return err
		}
		switch v := f.value.(type) {
		case string:
			if err := enc.EncodeString(v); err != nil {
				return err
			}
		case []byte:
			if err := enc.EncodeBytes(v); err != nil {
				return err
			}
		case int32:
			if err := enc.EncodeInt32(v); err != nil {
				return err
			}
		case int64:
			if err := enc.EncodeInt64(v); err != nil {
				return err
			}
		default:
			return fmt.Errorf("codec: unsupported field type %T for %q", v, f.key)
		}
	}
	return nil
}

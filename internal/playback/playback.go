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

// Package playback implements the seek-and-pace worker pipeline: open a
// recording, seek to a requested offset, and emit JPEG snapshots paced
// against monotonic wall-clock time, optionally compressed by an
// integer playback-rate multiplier.
package playback

import (
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	astiav "github.com/asticode/go-astiav"

	"github.com/coldharbor/camworker/internal/clock"
	"github.com/coldharbor/camworker/internal/codec"
	"github.com/coldharbor/camworker/internal/jpegenc"
	"github.com/coldharbor/camworker/internal/video"
)

// endOfPlaybackTime is the epoch the supervisor recognizes as "this is
// the end-of-playback marker, not a real file": an empty filename paired
// with this exact timestamp. Unlike every other timestamp this worker
// emits, it is not run through clock.ISO8601 — the marker value itself
// is part of the wire contract and must match byte for byte.
const endOfPlaybackTime = "1970-01-01T00:00:00Z"

var microsecondTimebase = clock.Rational{Num: 1, Den: 1_000_000}

// Pipeline runs a single playback session against one already-open input.
type Pipeline struct {
	in     *video.Input
	writer *codec.Writer
	rate   int

	requestedOffsetStreamTB int64
	beginTime               time.Time
	firstPTS                int64
	frameCount              int64
	gotKeyframe             bool

	hungUp func() bool

	pkt   *astiav.Packet
	frame *astiav.Frame
}

// New opens a playback pipeline over in, seeking to offsetMicros and
// honoring rate (clamped to at least 1). hungUp lets the caller supply
// the same POLLHUP check the watchdog uses, polled once per packet.
func New(in *video.Input, offsetMicros int64, rate int, writer *codec.Writer, hungUp func() bool) (*Pipeline, error) {
	if rate < 1 {
		rate = 1
	}

	streamTB := clock.Rational{Num: int64(in.Stream().TimeBase().Num()), Den: int64(in.Stream().TimeBase().Den())}
	seekTarget := clock.Rescale(offsetMicros, microsecondTimebase, streamTB)

	if err := in.SeekStream(seekTarget, astiav.NewSeekFlags(astiav.SeekFlagBackward, astiav.SeekFlagFrame)); err != nil {
		// SeekFailure is logged but non-fatal: playback proceeds from
		// wherever the demuxer left off.
		log.Printf("playback: seek to %d failed, continuing from current position: %v", seekTarget, err)
	}
	in.FlushDecoder()

	p := &Pipeline{
		in:                      in,
		writer:                  writer,
		rate:                    rate,
		requestedOffsetStreamTB: seekTarget,
		beginTime:               clock.Monotonic(),
		firstPTS:                -1,
		hungUp:                  hungUp,
		pkt:                     astiav.AllocPacket(),
		frame:                   astiav.AllocFrame(),
	}
	return p, nil
}

// Close releases the pipeline's scratch packet/frame. It does not close
// the input session.
func (p *Pipeline) Close() {
	if p.pkt != nil {
		p.pkt.Free()
	}
	if p.frame != nil {
		p.frame.Free()
	}
}

// Run drives the playback loop until the source is exhausted or the
// supervisor disconnects, then emits the end-of-playback marker.
func (p *Pipeline) Run() error {
	for {
		if p.hungUp != nil && p.hungUp() {
			break
		}

		if err := p.in.ReadPacket(p.pkt); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if errors.Is(err, astiav.ErrEagain) {
				continue
			}
			if errors.Is(err, astiav.ErrExit) {
				// The watchdog interrupted the read (stall timeout or
				// supervisor hang-up): stop cleanly.
				break
			}
			return fmt.Errorf("playback: read packet: %w", err)
		}

		if p.pkt.StreamIndex() != p.in.Stream().Index() {
			p.pkt.Unref()
			continue
		}

		if !p.gotKeyframe {
			if !p.pkt.Flags().Has(astiav.PacketFlagKey) {
				p.pkt.Unref()
				continue
			}
			p.gotKeyframe = true
		}

		if err := p.decodeAndEmit(); err != nil {
			return err
		}
		p.pkt.Unref()
	}

	return p.writer.WriteEndFile("", endOfPlaybackTime)
}

func (p *Pipeline) decodeAndEmit() error {
	if err := p.in.SendPacket(p.pkt); err != nil {
		return nil // decode failure on one packet is dropped, not fatal
	}

	for {
		if err := p.in.ReceiveFrame(p.frame); err != nil {
			return nil
		}

		if p.frame.Pts() < p.requestedOffsetStreamTB {
			p.frame.Unref()
			continue
		}
		if p.firstPTS == -1 {
			p.firstPTS = p.frame.Pts()
		}
		p.frameCount++

		dividedPTS := dividePTS(p.frame.Pts(), p.rate)
		if !keepsFrame(p.frameCount, p.rate) {
			p.frame.Unref()
			continue
		}

		p.pace(dividedPTS)

		if err := p.emit(dividedPTS); err != nil {
			p.frame.Unref()
			return err
		}
		p.frame.Unref()
	}
}

func (p *Pipeline) pace(dividedPTS int64) {
	streamTB := clock.Rational{Num: int64(p.in.Stream().TimeBase().Num()), Den: int64(p.in.Stream().TimeBase().Den())}

	for {
		ptsDuration := clock.Duration(dividedPTS-dividePTS(p.firstPTS, p.rate), streamTB)
		elapsed := clock.Monotonic().Sub(p.beginTime)

		emit, sleep := shouldEmitNow(elapsed, ptsDuration)
		if emit {
			return
		}
		time.Sleep(sleep)
	}
}

// emit serializes the current frame as a WriteFrame record. The offset is
// computed from dividedPTS (the frame's PTS already divided by the
// playback rate), matching playbackworker.c's message.offset =
// av_rescale_q(frame->pts, ...) call, which runs after frame->pts has
// been divided by playback_rate — not from the frame's raw stream PTS,
// which would make every offset rate times too large for rate > 1.
func (p *Pipeline) emit(dividedPTS int64) error {
	jpeg, err := jpegenc.Encode(p.frame, p.in.Backend())
	if err != nil {
		return nil // encode failure on one frame is dropped, not fatal
	}

	streamTB := clock.Rational{Num: int64(p.in.Stream().TimeBase().Num()), Den: int64(p.in.Stream().TimeBase().Den())}
	offsetMicros := clock.Rescale(dividedPTS, streamTB, microsecondTimebase)

	return p.writer.WriteFrame(jpeg, offsetMicros, int32(p.frame.Width()), int32(p.frame.Height()))
}

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
	"errors"
	"fmt"
	"io"
	"time"

	astiav "github.com/asticode/go-astiav"

	"github.com/coldharbor/camworker/internal/clock"
)

// ErrNoVideoStream is returned when an opened input has no video stream.
var ErrNoVideoStream = errors.New("video: input has no video stream")

// rtpTimebase is the 90kHz clock RTSP/RTP streams report packet timestamps
// in, independent of whatever timebase the demuxer assigns the stream.
var rtpTimebase = clock.Rational{Num: 1, Den: 90000}

// monotonicWarmupPackets is how many packets are trusted before the
// emit-timestamp computation starts checking for non-monotonic PTS and
// falling back to wall-clock pacing.
const monotonicWarmupPackets = 100

// Input is a single RTSP/RTP capture session: a demuxer, a decoder, and
// the bookkeeping needed to derive sane output timestamps from a stream
// that may misbehave (non-monotonic PTS, stalls, hang-ups).
type Input struct {
	fmtCtx   *astiav.FormatContext
	decCtx   *astiav.CodecContext
	stream   *astiav.Stream
	streamIx int

	backend Backend
	wd      *watchdog

	packetCount   int64
	lastPTS       int64
	useWallclock  bool
	firstOpenTime time.Time
	lastReadTime  time.Time
}

// Open starts demuxing url with the requested hardware backend, falling
// back to software decoding when the stream's profile can't use it
// (h264 Baseline never runs on QSV).
func Open(url string, backend Backend) (*Input, error) {
	in := &Input{
		backend:       backend,
		lastPTS:       -1,
		firstOpenTime: clock.Monotonic(),
	}
	in.wd = newWatchdog(stdinHungUp)

	fc := astiav.AllocFormatContext()
	if fc == nil {
		return nil, errors.New("video: AllocFormatContext failed")
	}
	fc.SetInterruptCallback(func() int {
		if in.wd.shouldCancel() {
			return 1
		}
		return 0
	})

	opts := astiav.NewDictionary()
	defer opts.Free()
	_ = opts.Set("buffer_size", "26214400", 0)
	_ = opts.Set("rtsp_transport", "udp", 0)
	_ = opts.Set("reorder_queue_size", "2500", 0)
	fc.SetMaxDelay(500000)

	in.lastReadTime = clock.Monotonic()
	in.wd.touch()
	if err := fc.OpenInput(url, nil, opts); err != nil {
		fc.Free()
		return nil, fmt.Errorf("video: open input %s: %w", url, err)
	}
	in.fmtCtx = fc

	fc.SetFPSProbeSize(500)
	in.wd.touch()
	if err := fc.FindStreamInfo(nil); err != nil {
		in.Close()
		return nil, fmt.Errorf("video: find stream info: %w", err)
	}

	in.wd.touch()
	streamIx := -1
	for i, s := range fc.Streams() {
		if s.CodecParameters().MediaType() == astiav.MediaTypeVideo {
			streamIx = i
			break
		}
	}
	if streamIx < 0 {
		in.Close()
		return nil, ErrNoVideoStream
	}
	in.streamIx = streamIx
	in.stream = fc.Streams()[streamIx]

	effectiveBackend := backend
	if in.stream.CodecParameters().Profile() == astiav.ProfileH264Baseline && backend == BackendQSV {
		effectiveBackend = BackendNone
	}
	in.backend = effectiveBackend

	if err := in.openDecoder(effectiveBackend); err != nil {
		in.Close()
		return nil, err
	}

	return in, nil
}

func (in *Input) openDecoder(backend Backend) error {
	par := in.stream.CodecParameters()

	var dec *astiav.Codec
	if name := backend.DecoderName(); name != "" {
		dec = astiav.FindDecoderByName(name)
	}
	if dec == nil {
		dec = astiav.FindDecoder(par.CodecID())
	}
	if dec == nil {
		return fmt.Errorf("video: no decoder for codec id %v", par.CodecID())
	}

	ctx := astiav.AllocCodecContext(dec)
	if ctx == nil {
		return errors.New("video: AllocCodecContext failed")
	}
	if err := par.ToCodecContext(ctx); err != nil {
		ctx.Free()
		return fmt.Errorf("video: codec parameters to context: %w", err)
	}

	if backend.UsesHardwareDecode() {
		if err := attachHardwareDevice(ctx, backend); err != nil {
			ctx.Free()
			return fmt.Errorf("video: hardware device init: %w", err)
		}
	}

	if err := ctx.Open(dec, nil); err != nil {
		ctx.Free()
		return fmt.Errorf("video: open codec: %w", err)
	}

	in.decCtx = ctx
	return nil
}

// ReadPacket blocks until the next packet of the selected video stream
// arrives, skipping packets belonging to other streams. End of stream is
// returned as io.EOF so callers can tell it apart from a real failure;
// every other astiav error is returned unmodified.
func (in *Input) ReadPacket(pkt *astiav.Packet) error {
	for {
		in.wd.touch()
		if err := in.fmtCtx.ReadFrame(pkt); err != nil {
			if errors.Is(err, astiav.ErrEof) {
				return io.EOF
			}
			return err
		}
		if pkt.StreamIndex() == in.streamIx {
			in.packetCount++
			return nil
		}
		pkt.Unref()
	}
}

// SendPacket and ReceiveFrame forward to the underlying decoder context;
// they exist on Input so callers never need to reach into astiav types
// directly for the common decode path.
func (in *Input) SendPacket(pkt *astiav.Packet) error { return in.decCtx.SendPacket(pkt) }
func (in *Input) ReceiveFrame(f *astiav.Frame) error  { return in.decCtx.ReceiveFrame(f) }

func (in *Input) CodecContext() *astiav.CodecContext { return in.decCtx }
func (in *Input) Stream() *astiav.Stream             { return in.stream }
func (in *Input) Backend() Backend                   { return in.backend }

// EmitTimestamp derives an output timestamp, in the stream's timebase,
// for a packet's PTS. For the first monotonicWarmupPackets packets it
// trusts the stream's own PTS, rescaled from the 90kHz RTP clock into the
// stream's timebase. After that, once it observes a PTS that doesn't
// advance, it permanently (for this Input) switches to wall-clock pacing:
// the monotonic time elapsed since the session opened, in microseconds,
// rescaled into the stream's timebase.
func (in *Input) EmitTimestamp(pts int64) int64 {
	if !in.useWallclock && in.packetCount > monotonicWarmupPackets && pts <= in.lastPTS {
		in.useWallclock = true
	}

	in.lastPTS = pts

	streamTB := clock.Rational{Num: int64(in.stream.TimeBase().Num()), Den: int64(in.stream.TimeBase().Den())}
	if in.useWallclock {
		elapsedMicros := clock.MillisBetween(in.firstOpenTime, clock.Monotonic()) * 1000
		return clock.Rescale(elapsedMicros, clock.Rational{Num: 1, Den: 1_000_000}, streamTB)
	}
	return clock.Rescale(pts, rtpTimebase, streamTB)
}

// SeekStream seeks the selected video stream to targetPTS (in the
// stream's own timebase) using the given seek flags. Used by playback to
// land on the I-frame at or before a requested offset.
func (in *Input) SeekStream(targetPTS int64, flags astiav.SeekFlags) error {
	return in.fmtCtx.SeekFrame(in.streamIx, targetPTS, flags)
}

// FlushDecoder discards any buffered decode state left over from before
// a seek.
func (in *Input) FlushDecoder() {
	in.decCtx.FlushBuffers()
}

// Close tears down the input session: the decoder context first, then
// the format context.
func (in *Input) Close() error {
	if in.decCtx != nil {
		in.decCtx.Free()
		in.decCtx = nil
	}
	if in.fmtCtx != nil {
		in.fmtCtx.CloseInput()
		in.fmtCtx.Free()
		in.fmtCtx = nil
	}
	return nil
}

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
	"math/rand"
	"time"

	astiav "github.com/asticode/go-astiav"

	"github.com/coldharbor/camworker/internal/clock"
)

// OutputState is one state of the rolling-file output session state
// machine (Closed -> Opening -> Writing -> Closing -> Closed).
type OutputState int

const (
	StateClosed OutputState = iota
	StateOpening
	StateWriting
	StateClosing
)

func (s OutputState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpening:
		return "opening"
	case StateWriting:
		return "writing"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// rolloverThreshold is the size at which a Writing output session closes
// the current file and opens a new one at the next keyframe. A var so
// ApplyProfile can raise or lower it for a deployment with different
// storage characteristics.
var rolloverThreshold int64 = 10 * 1024 * 1024

// Output manages a single recording file: it waits for a keyframe before
// opening a new segment, rescales and filters incoming packets, and
// rolls over to a new file once the current one crosses
// rolloverThreshold, always cutting on a keyframe boundary.
type Output struct {
	dir string

	state      OutputState
	fmtCtx     *astiav.FormatContext
	outStream  *astiav.Stream
	path       string
	beginTime  time.Time
	size       int64
	firstPTS   int64
	prevPTS    int64
	rolloverAt int64

	lastClosedPath    string
	lastClosedEndTime string
}

// NewOutput creates an output session that writes rolling segments into
// dir. The session starts Closed; DriveState opens the first segment when
// it is given the first keyframe.
func NewOutput(dir string) *Output {
	return &Output{
		dir:        dir,
		state:      StateClosed,
		firstPTS:   -1,
		prevPTS:    -1,
		rolloverAt: rolloverThreshold,
	}
}

func (o *Output) State() OutputState { return o.state }

// shouldRollover reports whether a Writing session that has grown to
// size bytes should close on the next keyframe instead of continuing.
func shouldRollover(size, threshold int64) bool {
	return size >= threshold
}

// acceptsPacket is the pure packet-admission decision WritePacket uses:
// a packet is written only if its PTS is non-negative and, once a
// previous PTS has been recorded, not less than it (spec.md §4.4
// monotonicity filter).
func acceptsPacket(pts, prevPTS int64) bool {
	if pts < 0 {
		return false
	}
	if prevPTS >= 0 && pts < prevPTS {
		return false
	}
	return true
}

// DriveState advances the output state machine's open/rollover
// transitions for one incoming packet, per the run loop's step 3: open a
// fresh segment if the session is Closed and pkt is a keyframe; close and
// immediately reopen if the session is Writing, oversize, and pkt is a
// keyframe. It reports whether a segment was opened or closed this call
// so the caller can emit the matching newFile/endFile record.
func (o *Output) DriveState(in *Input, pkt *astiav.Packet) (opened, closed bool, err error) {
	isKeyframe := pkt.Flags().Has(astiav.PacketFlagKey)

	if o.state == StateClosed {
		if !isKeyframe {
			return false, false, nil
		}
		if err := o.open(in, pkt); err != nil {
			return false, false, err
		}
		return true, false, nil
	}

	if o.state == StateWriting && isKeyframe && shouldRollover(o.size, o.rolloverAt) {
		if err := o.Close(); err != nil {
			return false, false, err
		}
		closed = true
		if err := o.open(in, pkt); err != nil {
			return false, closed, err
		}
		opened = true
	}

	return opened, closed, nil
}

// WritePacket rescales and writes one packet into the currently open
// segment (step 8 of the run loop). It is a no-op if the session is not
// Writing, and silently drops packets that fail the PTS admission check
// (negative PTS, or PTS that regresses within the file).
func (o *Output) WritePacket(in *Input, pkt *astiav.Packet) error {
	if o.state != StateWriting {
		return nil
	}

	if !acceptsPacket(pkt.Pts(), o.prevPTS) {
		return nil
	}
	o.prevPTS = pkt.Pts()

	inTB := clock.Rational{Num: int64(in.Stream().TimeBase().Num()), Den: int64(in.Stream().TimeBase().Den())}
	outTB := clock.Rational{Num: int64(o.outStream.TimeBase().Num()), Den: int64(o.outStream.TimeBase().Den())}

	shiftedPTS := pkt.Pts() - o.firstPTS
	rescaledPTS := clock.Rescale(shiftedPTS, inTB, outTB)
	rescaledDuration := clock.Rescale(pkt.Duration(), inTB, outTB)

	pkt.SetPts(rescaledPTS)
	pkt.SetDts(rescaledPTS)
	pkt.SetDuration(rescaledDuration)
	pkt.SetStreamIndex(o.outStream.Index())

	o.size += int64(pkt.Size())
	if err := o.fmtCtx.WriteFrame(pkt); err != nil {
		return fmt.Errorf("video: write output packet: %w", err)
	}
	// A null-packet flush after every write trades a little throughput
	// for durability: the rolling file is never more than one packet
	// behind what's on disk if the worker is killed.
	_ = o.fmtCtx.WriteFrame(nil)
	return nil
}

func (o *Output) open(in *Input, openingPkt *astiav.Packet) error {
	o.state = StateOpening
	o.beginTime = clock.Wall()
	o.path = GenerateOutputPath(o.dir, o.beginTime, rand.Int31())

	fmtCtx, err := astiav.AllocOutputFormatContext(nil, "", o.path)
	if err != nil || fmtCtx == nil {
		o.state = StateClosed
		return fmt.Errorf("video: alloc output context for %s: %w", o.path, err)
	}

	outStream := fmtCtx.NewStream(nil)
	if outStream == nil {
		fmtCtx.Free()
		o.state = StateClosed
		return errors.New("video: allocate output stream failed")
	}
	if err := in.Stream().CodecParameters().Copy(outStream.CodecParameters()); err != nil {
		fmtCtx.Free()
		o.state = StateClosed
		return fmt.Errorf("video: copy codec parameters to output stream: %w", err)
	}
	outStream.CodecParameters().SetCodecTag(0)
	outStream.SetTimeBase(in.Stream().TimeBase())

	metadata := fmtCtx.Metadata()
	_ = metadata.Set("BEGINTIME", clock.ISO8601(o.beginTime), 0)
	_ = metadata.Set("ENDTIME", endTimeSentinel, 0)

	ioCtx, err := astiav.OpenIOContext(o.path, astiav.NewIOContextFlags(astiav.IOContextFlagWrite), nil, nil)
	if err != nil {
		fmtCtx.Free()
		o.state = StateClosed
		return fmt.Errorf("video: open io context for %s: %w", o.path, err)
	}
	fmtCtx.SetPb(ioCtx)

	muxerOpts := astiav.NewDictionary()
	defer muxerOpts.Free()
	_ = muxerOpts.Set("fflags", "+flush_packets", 0)
	_ = muxerOpts.Set("avioflags", "+direct", 0)

	if err := fmtCtx.WriteHeader(muxerOpts); err != nil {
		ioCtx.Close()
		fmtCtx.Free()
		o.state = StateClosed
		return fmt.Errorf("video: write header for %s: %w", o.path, err)
	}

	o.fmtCtx = fmtCtx
	o.outStream = outStream
	o.size = 0
	// Latched from the opening keyframe itself (spec.md §4.4's Opening
	// transition), not from the first packet WritePacket later sees: a
	// decoder that emits the keyframe's frame in the same loop iteration
	// would otherwise compute its offset against firstPTS == -1.
	o.firstPTS = openingPkt.Pts()
	o.prevPTS = -1
	o.state = StateWriting
	return nil
}

// Close flushes the trailer, patches in the real end time over the
// endTimeSentinel placeholder, and releases the output session's resources. It is
// a no-op when the session is already Closed.
func (o *Output) Close() error {
	if o.state == StateClosed {
		return nil
	}
	o.state = StateClosing

	writeErr := o.fmtCtx.WriteTrailer()

	pb := o.fmtCtx.Pb()
	if pb != nil {
		pb.Close()
	}
	o.fmtCtx.Free()
	o.fmtCtx = nil
	o.outStream = nil

	endTimeISO := clock.ISO8601(clock.Wall())
	o.lastClosedPath = o.path
	o.lastClosedEndTime = endTimeISO
	if patchErr := PatchEndTimeSentinel(o.path, endTimeISO); patchErr != nil {
		o.state = StateClosed
		if writeErr != nil {
			return fmt.Errorf("video: write trailer: %w (also failed to patch end time: %v)", writeErr, patchErr)
		}
		return fmt.Errorf("video: patch end time for %s: %w", o.path, patchErr)
	}

	o.state = StateClosed
	if writeErr != nil {
		return fmt.Errorf("video: write trailer for %s: %w", o.path, writeErr)
	}
	return nil
}

// Path returns the current segment's filename. It is "" until the first
// segment opens; after Close it still holds the closed segment's path.
func (o *Output) Path() string { return o.path }

// FirstPTS returns the PTS of the keyframe that opened the current
// segment (the subtrahend used for this file's output timestamps), or -1
// before any segment has been opened.
func (o *Output) FirstPTS() int64 { return o.firstPTS }

// BeginTimeISO returns the current segment's begin time, formatted the
// same way it was written into the BEGINTIME metadata key.
func (o *Output) BeginTimeISO() string { return clock.ISO8601(o.beginTime) }

// LastClosedPath and LastClosedEndTime report the path and patched end
// time of the most recently closed segment, for the endFile record a
// caller emits right after a DriveState call reports closed=true.
func (o *Output) LastClosedPath() string     { return o.lastClosedPath }
func (o *Output) LastClosedEndTime() string  { return o.lastClosedEndTime }

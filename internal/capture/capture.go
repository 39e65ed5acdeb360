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

// Package capture implements the live-ingest worker pipeline: read
// packets from an RTSP input session, drive the rolling output file,
// periodically decode and JPEG-encode a snapshot at full and thumbnail
// resolution, and emit everything as framed records to the supervisor.
package capture

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
	"github.com/coldharbor/camworker/internal/metrics"
	"github.com/coldharbor/camworker/internal/video"
)

// microsecondTimebase is the (1, 1_000_000) rational the capture
// pipeline reports frame offsets in, regardless of the stream's own
// timebase.
var microsecondTimebase = clock.Rational{Num: 1, Den: 1_000_000}

// Pipeline runs the capture run loop described in the component design:
// read, gate through the rolling output file, periodically decode and
// emit JPEGs, record per-phase timings.
type Pipeline struct {
	in     *video.Input
	out    *video.Output
	writer *codec.Writer
	ring   *metrics.Ring
	exp    *metrics.Exporter

	pkt   *astiav.Packet
	frame *astiav.Frame

	iterations int
}

// New builds a capture pipeline over an already-open input session,
// writing rolling recordings into outputDir and framed records to w.
func New(in *video.Input, outputDir string, w *codec.Writer) *Pipeline {
	return &Pipeline{
		in:     in,
		out:    video.NewOutput(outputDir),
		writer: w,
		ring:   metrics.NewRing(),
		pkt:    astiav.AllocPacket(),
		frame:  astiav.AllocFrame(),
	}
}

// EnableMetricsExporter attaches a Prometheus exporter that is refreshed
// every time the ring completes a lap. Optional; callers that don't pass
// -metrics-addr never call this.
func (p *Pipeline) EnableMetricsExporter(exp *metrics.Exporter) {
	p.exp = exp
}

// Ring exposes the pipeline's performance sample ring so a caller can
// build a metrics.Exporter over it before attaching the exporter back via
// EnableMetricsExporter.
func (p *Pipeline) Ring() *metrics.Ring {
	return p.ring
}

// Close releases the pipeline's packet/frame scratch buffers and any
// still-open output file. It does not close the input session, which
// outlives the pipeline in cmd/captureworker's shutdown sequence.
func (p *Pipeline) Close() error {
	var err error
	if p.out.State() != video.StateClosed {
		err = p.out.Close()
		if werr := p.writer.WriteEndFile(p.out.LastClosedPath(), p.out.LastClosedEndTime()); werr != nil {
			log.Printf("capture: write endFile record on shutdown: %v", werr)
		}
	}
	if p.pkt != nil {
		p.pkt.Free()
	}
	if p.frame != nil {
		p.frame.Free()
	}
	return err
}

// Run executes the capture loop until the input session reaches
// end-of-stream, is interrupted by the watchdog, or a fatal I/O error
// occurs. EOF and interruption are reported as nil error (clean exit);
// anything else is returned for the caller to translate into an exit
// code.
func (p *Pipeline) Run() error {
	for {
		loopStart := clock.Monotonic()

		if err := p.in.ReadPacket(p.pkt); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if errors.Is(err, astiav.ErrEagain) {
				continue
			}
			if errors.Is(err, astiav.ErrExit) {
				// The interrupt callback fired, either on a stall timeout or
				// on supervisor stdin hang-up. Both are a request to stop,
				// not a failure: exit clean.
				return nil
			}
			return fmt.Errorf("capture: read packet: %w", err)
		}

		if p.pkt.StreamIndex() != p.in.Stream().Index() {
			p.pkt.Unref()
			continue
		}

		opened, closed, err := p.out.DriveState(p.in, p.pkt)
		if err != nil {
			log.Printf("capture: output session error: %v", err)
		}
		if closed {
			if err := p.writer.WriteEndFile(p.out.LastClosedPath(), p.out.LastClosedEndTime()); err != nil {
				log.Printf("capture: write endFile record: %v", err)
			}
		}
		if opened {
			if err := p.writer.WriteNewFile(p.out.Path(), p.out.BeginTimeISO()); err != nil {
				log.Printf("capture: write newFile record: %v", err)
			}
		}

		if p.out.State() == video.StateClosed {
			p.pkt.Unref()
			continue
		}

		p.decodeAndEmit()

		if err := p.out.WritePacket(p.in, p.pkt); err != nil {
			log.Printf("capture: write to output session: %v", err)
		}

		p.pkt.Unref()

		p.ring.Record(metrics.PhaseLoop, time.Since(loopStart))
		p.iterations++
		if p.ring.Advance() {
			p.logSummary()
		}
	}
}

func (p *Pipeline) decodeAndEmit() {
	decodeStart := clock.Monotonic()
	if err := p.in.SendPacket(p.pkt); err != nil {
		log.Printf("capture: decode send: %v", err)
		return
	}

	for {
		err := p.in.ReceiveFrame(p.frame)
		if err != nil {
			break
		}
		p.ring.Record(metrics.PhaseDecode, time.Since(decodeStart))
		p.emitFrame()
		p.frame.Unref()
	}
}

func (p *Pipeline) emitFrame() {
	inTB := clock.Rational{Num: int64(p.in.Stream().TimeBase().Num()), Den: int64(p.in.Stream().TimeBase().Den())}
	offsetMicros := clock.Rescale(p.frame.Pts()-p.out.FirstPTS(), inTB, microsecondTimebase)

	width, height := p.frame.Width(), p.frame.Height()

	fullStart := clock.Monotonic()
	fullJPEG, err := jpegenc.Encode(p.frame, p.in.Backend())
	p.ring.Record(metrics.PhaseJPEGFull, time.Since(fullStart))
	if err != nil {
		log.Printf("capture: jpeg encode: %v", err)
		return
	}

	serializeStart := clock.Monotonic()
	if err := p.writer.WriteFrame(fullJPEG, offsetMicros, int32(width), int32(height)); err != nil {
		log.Printf("capture: write frame record: %v", err)
	}
	p.ring.Record(metrics.PhaseSerializeFull, time.Since(serializeStart))

	scaledStart := clock.Monotonic()
	scaledHeight := 480
	scaledJPEG, err := jpegenc.EncodeScaled(p.frame, scaledHeight, p.in.Backend())
	p.ring.Record(metrics.PhaseJPEGScaled, time.Since(scaledStart))
	if err != nil {
		log.Printf("capture: scaled jpeg encode: %v", err)
		return
	}

	serializeScaledStart := clock.Monotonic()
	if err := p.writer.WriteFrameScaled(scaledJPEG, int32(scaledHeight), offsetMicros, int32(width), int32(height)); err != nil {
		log.Printf("capture: write scaled frame record: %v", err)
	}
	p.ring.Record(metrics.PhaseSerializeScaled, time.Since(serializeScaledStart))
}

func (p *Pipeline) logSummary() {
	if p.exp != nil {
		p.exp.Refresh()
	}
	snap := p.ring.Snapshot()
	log.Printf("capture: summary after %d iterations: loop=%.2fms decode=%.2fms jpeg=%.2fms scaled_jpeg=%.2fms",
		p.iterations, snap["loop_time"], snap["decode_time"], snap["jpeg_encode_time"], snap["scaled_jpeg_encode_time"])
}

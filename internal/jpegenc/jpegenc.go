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

// Package jpegenc turns a decoded video frame into a single JPEG image,
// either through the host's MJPEG hardware encoder (VAAPI/QSV) or
// through a software libavcodec MJPEG encoder opened fresh for each
// call. There is no persistent encoder state between frames: each call
// allocates a codec context, encodes exactly one frame, and tears it
// down, matching the one-shot-per-frame behavior of the worker this
// pipeline is modeled on.
package jpegenc

import (
	"errors"
	"fmt"

	astiav "github.com/asticode/go-astiav"

	"github.com/coldharbor/camworker/internal/video"
)

// Quality mirrors the qmin/qmax pair the software encoder is opened
// with; 2..10 corresponds to roughly JPEG quality 80 at 4:2:0 with the
// fast DCT variant libavcodec picks for that quality band.
const (
	qualityMin = 2
	qualityMax = 10
)

// ffQP2Lambda is FF_QP2LAMBDA from libavcodec, used to convert a
// quantizer value into the mb_lmin/mb_lmax lambda range the encoder
// actually reads.
const ffQP2Lambda = 118

// Encode produces a single JPEG image from src at its native resolution.
// When backend has a hardware MJPEG pipeline, the frame (already
// resident in the matching hardware pixel format) is encoded through the
// platform's mjpeg_qsv/mjpeg_vaapi encoder; otherwise a fresh software
// MJPEG encoder context handles it.
func Encode(src *astiav.Frame, backend video.Backend) ([]byte, error) {
	if backend.HasHardwarePipeline() {
		return encodeHardware(src, backend)
	}
	if backend.NeedsSystemMemoryTransfer() {
		sysFrame, err := video.TransferToSystemMemory(src)
		if err != nil {
			return nil, err
		}
		defer sysFrame.Free()
		return encodeSoftware(sysFrame)
	}
	return encodeSoftware(src)
}

// EncodeScaled behaves like Encode but first resizes src to height
// dstHeight, preserving aspect ratio. VAAPI frames are resized by a
// scale_vaapi filter graph; every other backend's frame (CUDA frames after
// transfer to system memory) is resized with swscale before encoding.
func EncodeScaled(src *astiav.Frame, dstHeight int, backend video.Backend) ([]byte, error) {
	if backend.NeedsFilterGraphForScale() {
		scaled, err := scaleViaFilterGraph(src, dstHeight)
		if err != nil {
			return nil, err
		}
		defer scaled.Free()
		return encodeHardware(scaled, backend)
	}

	if backend.NeedsSystemMemoryTransfer() {
		sysFrame, err := video.TransferToSystemMemory(src)
		if err != nil {
			return nil, err
		}
		defer sysFrame.Free()
		src = sysFrame
	}

	scaled, err := scaleViaSoftware(src, dstHeight)
	if err != nil {
		return nil, err
	}
	defer scaled.Free()

	if backend.HasHardwarePipeline() {
		return encodeHardware(scaled, backend)
	}
	return encodeSoftware(scaled)
}

func encodeSoftware(src *astiav.Frame) ([]byte, error) {
	codec := astiav.FindEncoder(astiav.CodecIDMjpeg)
	if codec == nil {
		return nil, errors.New("jpegenc: mjpeg encoder not available")
	}

	ctx := astiav.AllocCodecContext(codec)
	if ctx == nil {
		return nil, errors.New("jpegenc: AllocCodecContext failed")
	}
	defer ctx.Free()

	width, height := src.Width(), src.Height()
	ctx.SetWidth(width)
	ctx.SetHeight(height)
	ctx.SetPixelFormat(astiav.PixelFormatYuvj420P)
	ctx.SetTimeBase(astiav.NewRational(5, 1))
	ctx.SetQMin(qualityMin)
	ctx.SetQMax(qualityMax)
	ctx.SetMbLMin(qualityMin * ffQP2Lambda)
	ctx.SetMbLMax(qualityMax * ffQP2Lambda)

	if err := ctx.Open(codec, nil); err != nil {
		return nil, fmt.Errorf("jpegenc: open mjpeg encoder: %w", err)
	}

	frame := src.Clone()
	defer frame.Free()
	frame.SetPixelFormat(astiav.PixelFormatYuvj420P)
	frame.SetWidth(width)
	frame.SetHeight(height)
	frame.SetPts(1)

	return runSingleShotEncode(ctx, frame)
}

func encodeHardware(src *astiav.Frame, backend video.Backend) ([]byte, error) {
	name := backend.MJPEGEncoderName()
	codec := astiav.FindEncoderByName(name)
	if codec == nil {
		return nil, fmt.Errorf("jpegenc: encoder %s not available", name)
	}

	ctx := astiav.AllocCodecContext(codec)
	if ctx == nil {
		return nil, errors.New("jpegenc: AllocCodecContext failed")
	}
	defer ctx.Free()

	ctx.SetWidth(src.Width())
	ctx.SetHeight(src.Height())
	ctx.SetPixelFormat(src.PixelFormat())
	ctx.SetTimeBase(astiav.NewRational(5, 1))

	if hwFramesCtx := src.HardwareFramesContext(); hwFramesCtx != nil {
		ctx.SetHardwareFramesContext(hwFramesCtx)
	}

	if err := ctx.Open(codec, nil); err != nil {
		return nil, fmt.Errorf("jpegenc: open %s: %w", name, err)
	}

	frame := src.Clone()
	defer frame.Free()
	frame.SetPts(1)

	return runSingleShotEncode(ctx, frame)
}

// runSingleShotEncode sends exactly one frame, drains the (exactly one)
// resulting packet, and returns its payload as an owned byte slice.
func runSingleShotEncode(ctx *astiav.CodecContext, frame *astiav.Frame) ([]byte, error) {
	if err := ctx.SendFrame(frame); err != nil {
		return nil, fmt.Errorf("jpegenc: send frame: %w", err)
	}

	pkt := astiav.AllocPacket()
	defer pkt.Free()

	if err := ctx.ReceivePacket(pkt); err != nil {
		return nil, fmt.Errorf("jpegenc: receive packet: %w", err)
	}

	out := make([]byte, pkt.Size())
	copy(out, pkt.Data())
	return out, nil
}

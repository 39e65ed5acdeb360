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

import (
	"fmt"

	astiav "github.com/asticode/go-astiav"
)

// scaledWidth keeps the input's aspect ratio while scaling to dstHeight.
func scaledWidth(srcWidth, srcHeight, dstHeight int) int {
	if srcHeight == 0 {
		return srcWidth
	}
	scale := float64(srcHeight) / float64(dstHeight)
	return int(float64(srcWidth) / scale)
}

// scaleViaSoftware downsizes src to dstHeight using swscale. The legacy
// YUVJ420P full-range pixel format is rewritten to the plain YUV420P
// equivalent with an explicit JPEG color range before scaling, since
// swscale otherwise produces incorrect results on the deprecated
// full-range formats.
func scaleViaSoftware(src *astiav.Frame, dstHeight int) (*astiav.Frame, error) {
	width := scaledWidth(src.Width(), src.Height(), dstHeight)

	srcPixFmt := src.PixelFormat()
	if srcPixFmt == astiav.PixelFormatYuvj420P {
		src.SetPixelFormat(astiav.PixelFormatYuv420P)
		src.SetColorRange(astiav.ColorRangeJpeg)
	}

	ssc, err := astiav.CreateSoftwareScaleContext(
		src.Width(), src.Height(), src.PixelFormat(),
		width, dstHeight, src.PixelFormat(),
		astiav.NewSoftwareScaleContextFlags(),
	)
	if err != nil {
		return nil, fmt.Errorf("jpegenc: create scale context: %w", err)
	}
	defer ssc.Free()

	dst := astiav.AllocFrame()
	dst.SetWidth(width)
	dst.SetHeight(dstHeight)
	dst.SetPixelFormat(src.PixelFormat())
	if err := dst.AllocBuffer(32); err != nil {
		dst.Free()
		return nil, fmt.Errorf("jpegenc: alloc scaled frame buffer: %w", err)
	}

	if err := ssc.ScaleFrame(src, dst); err != nil {
		dst.Free()
		return nil, fmt.Errorf("jpegenc: scale frame: %w", err)
	}

	return dst, nil
}

// scaleViaFilterGraph builds a one-shot "format=vaapi,scale_vaapi=w=W:h=H"
// filter graph, the VAAPI-specific way to resize a hardware frame without
// round-tripping it through system memory (spec.md §4.5, hardware scaled
// JPEG path).
func scaleViaFilterGraph(src *astiav.Frame, dstHeight int) (*astiav.Frame, error) {
	width := scaledWidth(src.Width(), src.Height(), dstHeight)

	graph := astiav.AllocFilterGraph()
	defer graph.Free()

	buffersrc := astiav.FindFilterByName("buffer")
	buffersink := astiav.FindFilterByName("buffersink")
	if buffersrc == nil || buffersink == nil {
		return nil, fmt.Errorf("jpegenc: buffer/buffersink filters unavailable")
	}

	srcArgs := fmt.Sprintf("video_size=%dx%d:pix_fmt=%d:time_base=1/90000",
		src.Width(), src.Height(), int(src.PixelFormat()))
	srcCtx, err := graph.NewFilterContext(buffersrc, "in", srcArgs)
	if err != nil {
		return nil, fmt.Errorf("jpegenc: create buffer source: %w", err)
	}
	if hwFramesCtx := src.HardwareFramesContext(); hwFramesCtx != nil {
		srcCtx.SetHardwareFramesContext(hwFramesCtx)
	}

	sinkCtx, err := graph.NewFilterContext(buffersink, "out", "")
	if err != nil {
		return nil, fmt.Errorf("jpegenc: create buffer sink: %w", err)
	}

	filterDesc := fmt.Sprintf("format=vaapi,scale_vaapi=w=%d:h=%d", width, dstHeight)
	if err := graph.Parse(filterDesc, srcCtx, sinkCtx); err != nil {
		return nil, fmt.Errorf("jpegenc: parse filter graph %q: %w", filterDesc, err)
	}
	if err := graph.Configure(); err != nil {
		return nil, fmt.Errorf("jpegenc: configure filter graph: %w", err)
	}

	if err := srcCtx.BuffersrcAddFrame(src, nil); err != nil {
		return nil, fmt.Errorf("jpegenc: push frame into filter graph: %w", err)
	}

	dst := astiav.AllocFrame()
	if err := sinkCtx.BuffersinkGetFrame(dst, nil); err != nil {
		dst.Free()
		return nil, fmt.Errorf("jpegenc: pull scaled frame from filter graph: %w", err)
	}
	return dst, nil
}

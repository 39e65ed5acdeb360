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

import "fmt"

// Backend names the hardware acceleration path an input session decodes
// through. It also drives JPEG-encoder selection (package jpegenc) since
// the hardware MJPEG encoders only pair with the matching decode backend.
type Backend int

const (
	BackendNone Backend = iota
	BackendCUDA
	BackendVAAPI
	BackendQSV
)

func (b Backend) String() string {
	switch b {
	case BackendNone:
		return "none"
	case BackendCUDA:
		return "cuda"
	case BackendVAAPI:
		return "vaapi"
	case BackendQSV:
		return "qsv"
	default:
		return "unknown"
	}
}

// ParseBackend parses the CLI hwaccel_name argument (spec.md §6).
func ParseBackend(name string) (Backend, error) {
	switch name {
	case "none", "":
		return BackendNone, nil
	case "cuda":
		return BackendCUDA, nil
	case "vaapi":
		return BackendVAAPI, nil
	case "qsv":
		return BackendQSV, nil
	default:
		return BackendNone, fmt.Errorf("video: unknown hwaccel %q", name)
	}
}

// HasHardwarePipeline reports whether this backend has a matching hardware
// MJPEG encoder (jpegenc dispatches on this).
func (b Backend) HasHardwarePipeline() bool {
	return b == BackendQSV || b == BackendVAAPI
}

// UsesHardwareDecode reports whether this backend decodes into
// device-resident frames and therefore needs a hardware device and
// frames context attached to the codec context before Open. True for
// every backend except None — including CUDA, which has no hardware
// MJPEG encoder (HasHardwarePipeline is false for it) but still decodes
// on the GPU per spec.md §3/§4.3.
func (b Backend) UsesHardwareDecode() bool {
	return b != BackendNone
}

// NeedsSystemMemoryTransfer reports whether frames produced by this
// backend are device-resident with no matching hardware MJPEG encoder to
// consume them directly, and so must be copied back to system memory
// before the software JPEG path can read them. Only CUDA: VAAPI/QSV have
// a hardware MJPEG encoder (HasHardwarePipeline), and None never leaves
// system memory.
func (b Backend) NeedsSystemMemoryTransfer() bool {
	return b == BackendCUDA
}

// NeedsFilterGraphForScale reports whether the scaled/thumbnail JPEG on
// this backend is resized by an explicit scale filter graph ahead of the
// encoder. Only VAAPI; jpegenc resizes every other backend's frame with
// swscale. The full-resolution JPEG never needs scaling.
func (b Backend) NeedsFilterGraphForScale() bool {
	return b == BackendVAAPI
}

// DecoderName returns the named decoder to look up for this backend, or
// "" to mean "use the generic decoder for the stream's codec ID".
func (b Backend) DecoderName() string {
	if b == BackendQSV {
		return "h264_qsv"
	}
	return ""
}

// MJPEGEncoderName returns the hardware MJPEG encoder name for this
// backend. Only meaningful when HasHardwarePipeline is true.
func (b Backend) MJPEGEncoderName() string {
	switch b {
	case BackendQSV:
		return "mjpeg_qsv"
	case BackendVAAPI:
		return "mjpeg_vaapi"
	default:
		return ""
	}
}

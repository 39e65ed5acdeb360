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
	"fmt"

	astiav "github.com/asticode/go-astiav"
)

// renderNode is the DRM render node used for VAAPI device creation.
// Capture hosts expose exactly one GPU at this path by default;
// ApplyProfile can point at a different node on multi-GPU hosts.
var renderNode = "/dev/dri/renderD128"

// hwFramesWidth/hwFramesHeight/hwFramesPoolSize describe the hardware
// frames pool allocated alongside the device context; RTSP cameras in
// this fleet are provisioned at 1080p by default. Vars, overridable via
// ApplyProfile.
var (
	hwFramesWidth    = 1920
	hwFramesHeight   = 1080
	hwFramesPoolSize = 10
)

func hwDeviceType(backend Backend) astiav.HardwareDeviceType {
	switch backend {
	case BackendCUDA:
		return astiav.HardwareDeviceTypeCUDA
	case BackendVAAPI:
		return astiav.HardwareDeviceTypeVAAPI
	case BackendQSV:
		return astiav.HardwareDeviceTypeQSV
	default:
		return astiav.HardwareDeviceTypeNone
	}
}

// hwPixelFormat is the device-resident pixel format the hardware frames
// pool is allocated in for each backend.
func hwPixelFormat(backend Backend) astiav.PixelFormat {
	switch backend {
	case BackendCUDA:
		return astiav.PixelFormatCuda
	case BackendQSV:
		return astiav.PixelFormatQsv
	default:
		return astiav.PixelFormatVaapi
	}
}

// attachHardwareDevice creates a hardware device context and an NV12
// hardware frames pool sized for 1080p, then attaches both to ctx so the
// decoder produces frames resident in device memory.
func attachHardwareDevice(ctx *astiav.CodecContext, backend Backend) error {
	devType := hwDeviceType(backend)

	// VAAPI names the GPU's DRM render node explicitly; CUDA and QSV are
	// opened against the library's default device.
	device := ""
	if backend == BackendVAAPI {
		device = renderNode
	}

	hwDeviceCtx, err := astiav.CreateHardwareDeviceContext(devType, device, nil, 0)
	if err != nil {
		return fmt.Errorf("video: create hardware device context: %w", err)
	}

	framesCtx, err := astiav.AllocHardwareFramesContext(hwDeviceCtx)
	if err != nil {
		hwDeviceCtx.Free()
		return fmt.Errorf("video: alloc hardware frames context: %w", err)
	}
	wantFormat := hwPixelFormat(backend)
	framesCtx.SetPixelFormat(wantFormat)
	framesCtx.SetSoftwarePixelFormat(astiav.PixelFormatNv12)
	framesCtx.SetWidth(hwFramesWidth)
	framesCtx.SetHeight(hwFramesHeight)
	framesCtx.SetInitialPoolSize(hwFramesPoolSize)

	if err := framesCtx.Initialize(); err != nil {
		framesCtx.Free()
		hwDeviceCtx.Free()
		return fmt.Errorf("video: initialize hardware frames context: %w", err)
	}

	ctx.SetHardwareDeviceContext(hwDeviceCtx)
	ctx.SetHardwareFramesContext(framesCtx)

	if backend == BackendVAAPI {
		// The generic h264 decoder doesn't know to prefer the hardware
		// pixel format on its own; without this callback it silently
		// falls back to software output and the frames pool above goes
		// unused (spec.md §4.3).
		ctx.SetPixelFormatCallback(func(offered []astiav.PixelFormat) astiav.PixelFormat {
			for _, pf := range offered {
				if pf == wantFormat {
					return pf
				}
			}
			return offered[0]
		})
	}

	return nil
}

// TransferToSystemMemory copies a device-resident frame (CUDA decode
// output) into a newly allocated software frame. CUDA has no matching
// hardware MJPEG encoder, so its frames must come back to system memory
// before the software JPEG path (package jpegenc) can read their pixel
// data (spec.md §4.5 option (b)).
func TransferToSystemMemory(src *astiav.Frame) (*astiav.Frame, error) {
	dst := astiav.AllocFrame()
	if err := src.TransferHardwareData(dst); err != nil {
		dst.Free()
		return nil, fmt.Errorf("video: transfer hardware frame to system memory: %w", err)
	}
	dst.SetPts(src.Pts())
	return dst, nil
}

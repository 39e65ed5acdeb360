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

import "time"

// ApplyProfile overrides the package's built-in thresholds from an
// operator-supplied hardware profile (internal/hwprofile). It must be
// called once, before Open, from cmd/captureworker's startup sequence,
// which passes a zero Profile when no -hwprofile-file is given; zero
// fields in p leave the corresponding default untouched.
func ApplyProfile(p Profile) {
	if p.WatchdogTimeoutMS > 0 {
		exTimeout = time.Duration(p.WatchdogTimeoutMS) * time.Millisecond
	}
	if p.RolloverBytes > 0 {
		rolloverThreshold = int64(p.RolloverBytes)
	}
	if p.RenderNode != "" {
		renderNode = p.RenderNode
	}
	if p.HardwareFramesWidth > 0 {
		hwFramesWidth = p.HardwareFramesWidth
	}
	if p.HardwareFramesHeight > 0 {
		hwFramesHeight = p.HardwareFramesHeight
	}
	if p.HardwareFramesPool > 0 {
		hwFramesPoolSize = p.HardwareFramesPool
	}
}

// Profile mirrors hwprofile.Profile's fields without importing that
// package here, so video has no dependency on the config-loading layer;
// cmd/captureworker converts hwprofile.Profile into this shape.
type Profile struct {
	WatchdogTimeoutMS    int
	RolloverBytes        int
	RenderNode           string
	HardwareFramesWidth  int
	HardwareFramesHeight int
	HardwareFramesPool   int
}

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

// Package hwprofile loads an optional on-disk override for the fixed
// thresholds the video substrate otherwise hard-codes (watchdog timeout,
// rolling-file rollover size, hardware frames pool geometry). Operators
// pinning a non-default GPU or a slower storage tier can supply one of
// these instead of rebuilding the worker; when no file is given the
// defaults baked into the video package apply unchanged.
package hwprofile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Profile is the subset of video-substrate thresholds an operator may
// override. Zero-value fields mean "use the built-in default" — a
// profile only needs to set what it's changing.
type Profile struct {
	WatchdogTimeoutMS    int    `yaml:"watchdog_timeout_ms,omitempty"`
	RolloverBytes        int    `yaml:"rollover_bytes,omitempty"`
	RenderNode           string `yaml:"render_node,omitempty"`
	HardwareFramesWidth  int    `yaml:"hardware_frames_width,omitempty"`
	HardwareFramesHeight int    `yaml:"hardware_frames_height,omitempty"`
	HardwareFramesPool   int    `yaml:"hardware_frames_pool,omitempty"`
}

// Load reads and parses a hardware-profile YAML file at path. An empty
// path is not an error: it returns a zero Profile, meaning "no override".
func Load(path string) (Profile, error) {
	if path == "" {
		return Profile{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("hwprofile: read %s: %w", path, err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("hwprofile: parse %s: %w", path, err)
	}
	return p, nil
}

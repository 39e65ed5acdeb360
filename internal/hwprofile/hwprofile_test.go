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

package hwprofile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEmptyPathReturnsZeroProfile(t *testing.T) {
	p, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if p != (Profile{}) {
		t.Fatalf("Load(\"\") = %+v, want zero value", p)
	}
}

func TestLoadParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	contents := "watchdog_timeout_ms: 8000\nrollover_bytes: 20971520\nrender_node: /dev/dri/renderD129\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.WatchdogTimeoutMS != 8000 {
		t.Errorf("WatchdogTimeoutMS = %d, want 8000", p.WatchdogTimeoutMS)
	}
	if p.RolloverBytes != 20971520 {
		t.Errorf("RolloverBytes = %d, want 20971520", p.RolloverBytes)
	}
	if p.RenderNode != "/dev/dri/renderD129" {
		t.Errorf("RenderNode = %q, want /dev/dri/renderD129", p.RenderNode)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/profile.yaml"); err == nil {
		t.Fatal("expected an error for a missing profile file")
	}
}

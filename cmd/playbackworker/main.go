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

// Command playbackworker is the seek-and-pace worker: it opens an
// existing recording, seeks to a requested offset, and streams paced
// JPEG snapshots back to its supervising process over standard output
// until the recording is exhausted or the supervisor disconnects.
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/coldharbor/camworker/internal/codec"
	"github.com/coldharbor/camworker/internal/playback"
	"github.com/coldharbor/camworker/internal/video"
)

const (
	exitOK        = 0
	exitArgOrOpen = 1
	exitCodec     = 2
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.SetOutput(os.Stderr)

	args := os.Args[1:]
	if len(args) < 2 || len(args) > 3 {
		fmt.Fprintf(os.Stderr, "usage: %s <input_path> <offset_microseconds> [<playback_rate>]\n", os.Args[0])
		os.Exit(exitArgOrOpen)
	}

	inputPath := args[0]
	offsetMicros, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid offset_microseconds %q: %v\n", args[1], err)
		os.Exit(exitArgOrOpen)
	}

	rate := 1
	if len(args) == 3 {
		rate, err = strconv.Atoi(args[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid playback_rate %q: %v\n", args[2], err)
			os.Exit(exitArgOrOpen)
		}
	}

	writer := codec.NewWriter(os.Stdout)

	in, err := video.Open(inputPath, video.BackendNone)
	if err != nil {
		_ = writer.WriteLog(codec.LogFatal, fmt.Sprintf("open failed: %v", err))
		log.Printf("playbackworker: open %s: %v", inputPath, err)
		os.Exit(exitArgOrOpen)
	}
	defer in.Close()

	pipeline, err := playback.New(in, offsetMicros, rate, writer, stdinHungUp)
	if err != nil {
		_ = writer.WriteLog(codec.LogFatal, fmt.Sprintf("playback setup failed: %v", err))
		log.Printf("playbackworker: setup: %v", err)
		os.Exit(exitArgOrOpen)
	}
	defer pipeline.Close()

	if err := pipeline.Run(); err != nil {
		_ = writer.WriteLog(codec.LogFatal, fmt.Sprintf("playback loop failed: %v", err))
		log.Printf("playbackworker: run: %v", err)
		os.Exit(exitCodec)
	}

	os.Exit(exitOK)
}

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

// Command captureworker is the live-ingest worker: it attaches to one
// RTSP source, writes keyframe-gated rolling recordings to disk, and
// streams JPEG snapshots and file-boundary events back to its
// supervising process over standard output.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	astiav "github.com/asticode/go-astiav"

	"github.com/coldharbor/camworker/internal/capture"
	"github.com/coldharbor/camworker/internal/codec"
	"github.com/coldharbor/camworker/internal/hwprofile"
	"github.com/coldharbor/camworker/internal/metrics"
	"github.com/coldharbor/camworker/internal/video"
)

// Exit codes per spec.md §6: 0 normal end-of-stream, 1 argument or open
// failure, 2 fatal codec failure.
const (
	exitOK        = 0
	exitArgOrOpen = 1
	exitCodec     = 2
)

func main() {
	metricsAddr := flag.String("metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :9091)")
	hwprofilePath := flag.String("hwprofile-file", "", "optional YAML file overriding watchdog/rollover/hardware-frames defaults")
	debugFFmpeg := flag.Bool("debugstreams", false, "log ffmpeg's own debug output")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.SetOutput(os.Stderr)

	if *debugFFmpeg {
		astiav.SetLogLevel(astiav.LogLevelDebug)
		astiav.SetLogCallback(func(c astiav.Classer, l astiav.LogLevel, fmt, msg string) {
			log.Printf("ffmpeg: %s (level %d)", strings.TrimSpace(msg), l)
		})
	}

	args := flag.Args()
	if len(args) != 3 {
		fmt.Fprintf(os.Stderr, "usage: %s <url> <output_directory> <hwaccel_name>\n", os.Args[0])
		os.Exit(exitArgOrOpen)
	}
	url, outputDir, hwaccelName := args[0], args[1], args[2]

	backend, err := video.ParseBackend(hwaccelName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(exitArgOrOpen)
	}

	writer := codec.NewWriter(os.Stdout)

	profile, err := hwprofile.Load(*hwprofilePath)
	if err != nil {
		_ = writer.WriteLog(codec.LogFatal, fmt.Sprintf("hwprofile load failed: %v", err))
		log.Printf("captureworker: %v", err)
		os.Exit(exitArgOrOpen)
	}
	video.ApplyProfile(video.Profile{
		WatchdogTimeoutMS:    profile.WatchdogTimeoutMS,
		RolloverBytes:        profile.RolloverBytes,
		RenderNode:           profile.RenderNode,
		HardwareFramesWidth:  profile.HardwareFramesWidth,
		HardwareFramesHeight: profile.HardwareFramesHeight,
		HardwareFramesPool:   profile.HardwareFramesPool,
	})

	in, err := video.Open(url, backend)
	if err != nil {
		_ = writer.WriteLog(codec.LogFatal, fmt.Sprintf("open failed: %v", err))
		log.Printf("captureworker: open %s: %v", url, err)
		os.Exit(exitArgOrOpen)
	}
	defer in.Close()

	pipeline := capture.New(in, outputDir, writer)
	defer pipeline.Close()

	if *metricsAddr != "" {
		exp := metrics.NewExporter(pipeline.Ring())
		pipeline.EnableMetricsExporter(exp)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			if err := exp.Serve(ctx, *metricsAddr); err != nil {
				log.Printf("captureworker: metrics server: %v", err)
			}
		}()
	}

	if err := pipeline.Run(); err != nil {
		_ = writer.WriteLog(codec.LogFatal, fmt.Sprintf("capture loop failed: %v", err))
		log.Printf("captureworker: run: %v", err)
		os.Exit(exitCodec)
	}

	os.Exit(exitOK)
}

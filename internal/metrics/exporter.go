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

package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter publishes a Ring's per-phase averages as Prometheus gauges.
// It is strictly opt-in: a capture worker run without -metrics-addr never
// constructs one, so the default binary pays nothing for it.
type Exporter struct {
	ring   *Ring
	gauges map[Phase]prometheus.Gauge
	srv    *http.Server
}

// NewExporter registers one gauge per phase under the
// camworker_capture_phase_ms_avg metric name, labeled by phase.
func NewExporter(ring *Ring) *Exporter {
	reg := prometheus.NewRegistry()
	e := &Exporter{
		ring:   ring,
		gauges: make(map[Phase]prometheus.Gauge, phaseCount),
	}
	for p := Phase(0); p < phaseCount; p++ {
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "camworker_capture_phase_ms_avg",
			Help:        "Rolling average duration in milliseconds of a capture pipeline phase.",
			ConstLabels: prometheus.Labels{"phase": p.String()},
		})
		reg.MustRegister(g)
		e.gauges[p] = g
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	e.srv = &http.Server{Handler: mux}
	return e
}

// Refresh pushes the ring's current averages into the registered gauges.
// Call it whenever a new summary is due.
func (e *Exporter) Refresh() {
	for p, g := range e.gauges {
		g.Set(e.ring.Average(p))
	}
}

// Serve listens on addr and blocks until the context is cancelled or the
// server fails for a reason other than a clean shutdown.
func (e *Exporter) Serve(ctx context.Context, addr string) error {
	e.srv.Addr = addr

	errCh := make(chan error, 1)
	go func() {
		if err := e.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics: listen on %s: %w", addr, err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

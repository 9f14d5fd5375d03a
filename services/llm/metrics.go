// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// generateCallsTotal counts generation calls.
	// Labels: provider, model, status (ok, error)
	generateCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assist",
		Subsystem: "llm",
		Name:      "generate_calls_total",
		Help:      "Text generation calls by provider, model and status",
	}, []string{"provider", "model", "status"})

	generateLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "assist",
		Subsystem: "llm",
		Name:      "generate_latency_seconds",
		Help:      "Text generation latency",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"provider"})
)

func recordGenerateMetrics(provider, model string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	generateCallsTotal.WithLabelValues(provider, model, status).Inc()
	generateLatencySeconds.WithLabelValues(provider).Observe(d.Seconds())
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dialogue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// repliesTotal counts replies by how they were produced.
	// Labels: outcome (escalated, greeted, found, not_found, list, fallback,
	// no_information, panic), domain (empty when no domain was involved)
	repliesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assist",
		Subsystem: "dialogue",
		Name:      "replies_total",
		Help:      "Replies by outcome and domain",
	}, []string{"outcome", "domain"})

	// generatorTotal counts generator use on found records.
	// Labels: result (ok, error, empty_excerpt)
	generatorTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assist",
		Subsystem: "dialogue",
		Name:      "generator_total",
		Help:      "Generator invocations from the dialogue engine by result",
	}, []string{"result"})

	handleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "assist",
		Subsystem: "dialogue",
		Name:      "handle_duration_seconds",
		Help:      "Time to produce a reply",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})
)

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tenant

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// knowledgeRecords is the record count of each loaded index.
	// Labels: tenant, domain
	knowledgeRecords = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "assist",
		Subsystem: "knowledge",
		Name:      "records",
		Help:      "Records loaded per tenant and domain",
	}, []string{"tenant", "domain"})

	// reloadsTotal counts knowledge reloads by result.
	// Labels: result (ok, error)
	reloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assist",
		Subsystem: "knowledge",
		Name:      "reloads_total",
		Help:      "Knowledge reloads by result",
	}, []string{"result"})

	reloadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "assist",
		Subsystem: "knowledge",
		Name:      "reload_duration_seconds",
		Help:      "Time to reload every knowledge source",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})
)

func recordReload(r *Router, d time.Duration, err error) {
	reloadDuration.Observe(d.Seconds())
	if err != nil {
		reloadsTotal.WithLabelValues("error").Inc()
		return
	}
	reloadsTotal.WithLabelValues("ok").Inc()
	for _, c := range r.Tenants() {
		for domain, n := range c.Records() {
			knowledgeRecords.WithLabelValues(c.Name, domain).Set(float64(n))
		}
	}
}

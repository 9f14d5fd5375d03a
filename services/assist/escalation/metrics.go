// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package escalation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ticketsTotal counts tickets created.
	// Labels: tenant
	ticketsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assist",
		Subsystem: "escalation",
		Name:      "tickets_total",
		Help:      "Support tickets created by tenant",
	}, []string{"tenant"})

	// notificationsTotal counts delivery outcomes.
	// Labels: notifier (webhook, log), result (ok, error, rate_limited, dropped)
	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "assist",
		Subsystem: "escalation",
		Name:      "notifications_total",
		Help:      "Ticket notifications by notifier and result",
	}, []string{"notifier", "result"})

	notifyDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "assist",
		Subsystem: "escalation",
		Name:      "notify_duration_seconds",
		Help:      "Ticket notification latency including rate-limit wait",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"notifier"})
)

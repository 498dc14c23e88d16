// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package membership

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors updated by the Engine.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	LockoutsTotal     prometheus.Counter
}

// NewMetrics creates and registers membership metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "membership_operations_total",
				Help: "Total number of membership operations by operation and result code",
			},
			[]string{"operation", "code"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "membership_operation_duration_seconds",
				Help:    "Duration of membership operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		LockoutsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "membership_lockouts_total",
				Help: "Number of times an account reached the failed login threshold",
			},
		),
	}

	reg.MustRegister(m.OperationsTotal)
	reg.MustRegister(m.OperationDuration)
	reg.MustRegister(m.LockoutsTotal)

	return m
}

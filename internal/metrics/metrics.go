// Copyright 2020 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// 	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics defines the Prometheus collectors shared by the security
// middlewares and the outbound guard.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Requests rejected by a middleware, by middleware name and status code.
	RejectionsTotal *prometheus.CounterVec
	// CSRF check failures, by verification type and reason.
	CSRFFailuresTotal *prometheus.CounterVec
	// CSRF secrets issued, by cause (new, rotate).
	CSRFSecretsIssuedTotal *prometheus.CounterVec
	// Outbound connections refused by the SSRF guard.
	SSRFBlockedTotal prometheus.Counter
}

// New creates and registers the collectors on reg. It returns nil if reg is
// nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}
	factory := promauto.With(reg)

	return &Metrics{
		RejectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "websecurity_rejections_total",
				Help: "Total number of requests rejected by a security middleware",
			},
			[]string{"middleware", "code"},
		),
		CSRFFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "websecurity_csrf_failures_total",
				Help: "Total number of failed CSRF checks",
			},
			[]string{"type", "reason"},
		),
		CSRFSecretsIssuedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "websecurity_csrf_secrets_issued_total",
				Help: "Total number of CSRF secrets written to cookies or sessions",
			},
			[]string{"cause"},
		),
		SSRFBlockedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "websecurity_ssrf_blocked_total",
				Help: "Total number of outbound connections refused by the SSRF guard",
			},
		),
	}
}

// ObserveRejection records a rejected request.
func (m *Metrics) ObserveRejection(middleware string, code int) {
	if m == nil {
		return
	}
	m.RejectionsTotal.WithLabelValues(middleware, codeLabel(code)).Inc()
}

// ObserveCSRFFailure records a failed CSRF check.
func (m *Metrics) ObserveCSRFFailure(typ, reason string) {
	if m == nil {
		return
	}
	m.CSRFFailuresTotal.WithLabelValues(typ, reason).Inc()
}

// ObserveSecretIssued records a CSRF secret write.
func (m *Metrics) ObserveSecretIssued(cause string) {
	if m == nil {
		return
	}
	m.CSRFSecretsIssuedTotal.WithLabelValues(cause).Inc()
}

// ObserveSSRFBlocked records a refused outbound connection.
func (m *Metrics) ObserveSSRFBlocked() {
	if m == nil {
		return
	}
	m.SSRFBlockedTotal.Inc()
}

func codeLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code == 400:
		return "400"
	case code == 403:
		return "403"
	case code == 405:
		return "405"
	default:
		return "4xx"
	}
}

// SPDX-License-Identifier: MIT

// Package metrics exposes the gateway's Prometheus metrics, following the
// teacher's promauto.NewCounterVec/NewGaugeVec idiom (internal/metrics/admission.go,
// internal/metrics/recordings_preparing.go). Label sets are kept small and
// fixed to avoid cardinality explosion: no video ids, request ids, or raw
// URLs ever appear as a label value.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// InstanceRankPosition records the rank position (0 = best) at which
	// the instance that ultimately served a request was found, by kind.
	InstanceRankPosition = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gateway_instance_rank_position",
		Help: "Rank position of the instance that served the last successful request, by service kind.",
	}, []string{"kind"})

	// CacheHitsTotal and CacheMissesTotal count FetchJSON cache outcomes, by
	// the upstream service kind of the fetch ("piped", "invidious").
	CacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_cache_hits_total",
		Help: "Total number of TTL cache hits, by namespace.",
	}, []string{"namespace"})

	CacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_cache_misses_total",
		Help: "Total number of TTL cache misses, by namespace.",
	}, []string{"namespace"})

	// ProxyRetryTotal counts media proxy retry-ladder outcomes by the
	// attempt stage (a, b, c) and outcome (streamed, failed).
	ProxyRetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_proxy_retry_total",
		Help: "Total number of media proxy attempts, by ladder stage and outcome.",
	}, []string{"stage", "outcome"})

	// ClassifierRejectionsTotal counts catalog candidates dropped by the music
	// classifier. The "reason" label carries the catalog endpoint that dropped
	// them; only trending records it ("trending").
	ClassifierRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_classifier_rejections_total",
		Help: "Total number of catalog candidates rejected by the music classifier, by catalog endpoint.",
	}, []string{"reason"})
)

// ObserveCacheResult increments the hit or miss counter for namespace.
func ObserveCacheResult(namespace string, hit bool) {
	if hit {
		CacheHitsTotal.WithLabelValues(namespace).Inc()
		return
	}
	CacheMissesTotal.WithLabelValues(namespace).Inc()
}

// ObserveProxyAttempt increments the retry-ladder counter for stage
// ("a", "b", "c") and outcome ("streamed", "failed").
func ObserveProxyAttempt(stage, outcome string) {
	ProxyRetryTotal.WithLabelValues(stage, outcome).Inc()
}

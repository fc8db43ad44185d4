// SPDX-License-Identifier: MIT

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func getCounterVecValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := vec.WithLabelValues(labels...).Write(m); err != nil {
		t.Fatal(err)
	}
	return m.GetCounter().GetValue()
}

func TestObserveCacheResultIncrementsCorrectCounter(t *testing.T) {
	before := getCounterVecValue(t, CacheHitsTotal, "piped")
	ObserveCacheResult("piped", true)
	after := getCounterVecValue(t, CacheHitsTotal, "piped")
	if after != before+1 {
		t.Fatalf("expected hit counter to increment by 1, got %v -> %v", before, after)
	}
}

func TestObserveProxyAttemptLabelsByStageAndOutcome(t *testing.T) {
	before := getCounterVecValue(t, ProxyRetryTotal, "a", "failed")
	ObserveProxyAttempt("a", "failed")
	after := getCounterVecValue(t, ProxyRetryTotal, "a", "failed")
	if after != before+1 {
		t.Fatalf("expected proxy retry counter to increment, got %v -> %v", before, after)
	}
}

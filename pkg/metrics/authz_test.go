package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestAuthzMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewAuthzMetrics(reg)

	metrics.ObserveDecision("can_manage_staff", true)
	metrics.ObserveDecision("can_manage_staff", false)
	metrics.ObserveDecision("can_manage_staff", false)
	metrics.IncCacheHit("redis")
	metrics.IncCacheMiss("redis")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "authz_decisions_total", "outcome", "allowed"); err != nil {
		t.Fatalf("fetch allowed: %v", err)
	} else if got != 1 {
		t.Fatalf("expected allowed=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "authz_decisions_total", "outcome", "denied"); err != nil {
		t.Fatalf("fetch denied: %v", err)
	} else if got != 2 {
		t.Fatalf("expected denied=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "permission_cache_hits_total", "backend", "redis"); err != nil {
		t.Fatalf("fetch hits: %v", err)
	} else if got != 1 {
		t.Fatalf("expected hits=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "permission_cache_misses_total", "backend", "redis"); err != nil {
		t.Fatalf("fetch misses: %v", err)
	} else if got != 1 {
		t.Fatalf("expected misses=1, got %f", got)
	}
}

func TestAuthzMetricsNilRegistererIsNoop(t *testing.T) {
	metrics := NewAuthzMetrics(nil)
	metrics.ObserveDecision("can_access_branch", true)
	metrics.IncCacheHit("memory")
	metrics.IncCacheMiss("memory")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	var mf *dto.MetricFamily
	for _, candidate := range mfs {
		if candidate.GetName() == name {
			mf = candidate
			break
		}
	}
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		for _, pair := range metric.GetLabel() {
			if pair.GetName() == label && pair.GetValue() == value {
				return metric.GetCounter().GetValue(), nil
			}
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// AuthzMetrics records authorization decisions and permission cache traffic.
type AuthzMetrics struct {
	decisions *prometheus.CounterVec
	cacheHit  *prometheus.CounterVec
	cacheMiss *prometheus.CounterVec
}

// NewAuthzMetrics registers the authorization metrics on the provided registerer.
func NewAuthzMetrics(reg prometheus.Registerer) *AuthzMetrics {
	if reg == nil {
		return &AuthzMetrics{}
	}
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authz_decisions_total",
		Help: "Authorization decisions by check and outcome.",
	}, []string{"check", "outcome"})
	cacheHit := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "permission_cache_hits_total",
		Help: "Permission cache hits by backend.",
	}, []string{"backend"})
	cacheMiss := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "permission_cache_misses_total",
		Help: "Permission cache misses by backend.",
	}, []string{"backend"})
	reg.MustRegister(decisions, cacheHit, cacheMiss)
	return &AuthzMetrics{
		decisions: decisions,
		cacheHit:  cacheHit,
		cacheMiss: cacheMiss,
	}
}

// ObserveDecision increments the counter for the named check.
func (a *AuthzMetrics) ObserveDecision(check string, allowed bool) {
	if a == nil || a.decisions == nil {
		return
	}
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	a.decisions.WithLabelValues(normalizeLabel(check), outcome).Inc()
}

// IncCacheHit increments the hit counter for the named cache backend.
func (a *AuthzMetrics) IncCacheHit(backend string) {
	if a == nil || a.cacheHit == nil {
		return
	}
	a.cacheHit.WithLabelValues(normalizeLabel(backend)).Inc()
}

// IncCacheMiss increments the miss counter for the named cache backend.
func (a *AuthzMetrics) IncCacheMiss(backend string) {
	if a == nil || a.cacheMiss == nil {
		return
	}
	a.cacheMiss.WithLabelValues(normalizeLabel(backend)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

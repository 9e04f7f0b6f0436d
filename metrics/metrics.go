// Package metrics exposes Prometheus collectors for service loading and
// operation filter dispatch. A nil *Metrics is valid and records nothing.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/centraunit/corekit/config"
)

// Failure reasons recorded by LoadFailed.
const (
	ReasonCycle          = "cycle"
	ReasonMissing        = "missing_dependency"
	ReasonInitialization = "initialization"
	ReasonCancelled      = "cancelled"
	ReasonInternal       = "internal"
)

// Metrics holds the collectors shared by the loader and the filter hosts.
type Metrics struct {
	ServicesLoaded  prometheus.Counter
	LoadFailures    *prometheus.CounterVec
	LoadDuration    prometheus.Histogram
	FilterDispatch  *prometheus.CounterVec
	FilterCache     *prometheus.CounterVec
	RegistryVersion prometheus.Gauge
}

// FromConfig builds metrics as configured. It returns nil when metrics are
// disabled.
func FromConfig(reg prometheus.Registerer, cfg config.Metrics) (*Metrics, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	return New(reg, cfg.Namespace)
}

// New creates the collectors under namespace and registers them with reg.
// Collectors already registered under the same descriptors are reused, so two
// loaders may share a registry.
func New(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		ServicesLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "services_loaded_total",
			Help:      "Services resolved to live instances.",
		}),
		LoadFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "service_load_failures_total",
			Help:      "Aborted service loads by reason.",
		}, []string{"reason"}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "service_load_duration_seconds",
			Help:      "Wall time of a complete service load.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		FilterDispatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "filter_dispatch_total",
			Help:      "Filtered operation dispatches by operation.",
		}, []string{"operation"}),
		FilterCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "filter_cache_total",
			Help:      "Derived type filter cache lookups by result.",
		}, []string{"result"}),
		RegistryVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "filter_registry_version",
			Help:      "Current version of the global filter registry.",
		}),
	}

	if reg == nil {
		return m, nil
	}

	var err error
	m.ServicesLoaded, err = register(reg, m.ServicesLoaded)
	if err != nil {
		return nil, err
	}
	m.LoadFailures, err = register(reg, m.LoadFailures)
	if err != nil {
		return nil, err
	}
	m.LoadDuration, err = register(reg, m.LoadDuration)
	if err != nil {
		return nil, err
	}
	m.FilterDispatch, err = register(reg, m.FilterDispatch)
	if err != nil {
		return nil, err
	}
	m.FilterCache, err = register(reg, m.FilterCache)
	if err != nil {
		return nil, err
	}
	m.RegistryVersion, err = register(reg, m.RegistryVersion)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// ServiceLoaded counts one resolved service.
func (m *Metrics) ServiceLoaded() {
	if m == nil {
		return
	}
	m.ServicesLoaded.Inc()
}

// LoadFailed counts an aborted load.
func (m *Metrics) LoadFailed(reason string) {
	if m == nil {
		return
	}
	m.LoadFailures.WithLabelValues(reason).Inc()
}

// ObserveLoad records the duration of a load that started at start.
func (m *Metrics) ObserveLoad(start time.Time) {
	if m == nil {
		return
	}
	m.LoadDuration.Observe(time.Since(start).Seconds())
}

// Dispatched counts one filtered dispatch of operation.
func (m *Metrics) Dispatched(operation string) {
	if m == nil {
		return
	}
	m.FilterDispatch.WithLabelValues(operation).Inc()
}

// CacheHit counts a derived filter cache hit.
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.FilterCache.WithLabelValues("hit").Inc()
}

// CacheMiss counts a derived filter cache miss.
func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.FilterCache.WithLabelValues("miss").Inc()
}

// SetVersion publishes the filter registry version.
func (m *Metrics) SetVersion(v uint64) {
	if m == nil {
		return
	}
	m.RegistryVersion.Set(float64(v))
}

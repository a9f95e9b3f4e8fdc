package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "circularsync-gateway"

// Metrics holds the gateway's metric instruments.
type Metrics struct {
	CacheHits        metric.Int64Counter
	CacheMisses      metric.Int64Counter
	StoreErrors      metric.Int64Counter
	UpstreamErrors   metric.Int64Counter
	UpstreamDuration metric.Float64Histogram
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	return NewMetricsFrom(otel.GetMeterProvider())
}

// NewMetricsFrom creates all metric instruments on mp.
func NewMetricsFrom(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)
	m := &Metrics{}
	var err error

	m.CacheHits, err = meter.Int64Counter("circularsync.cache.hits",
		metric.WithDescription("Number of read-through cache hits"))
	if err != nil {
		return nil, err
	}

	m.CacheMisses, err = meter.Int64Counter("circularsync.cache.misses",
		metric.WithDescription("Number of read-through cache misses"))
	if err != nil {
		return nil, err
	}

	m.StoreErrors, err = meter.Int64Counter("circularsync.cache.store_errors",
		metric.WithDescription("Number of cache store operations that failed"))
	if err != nil {
		return nil, err
	}

	m.UpstreamErrors, err = meter.Int64Counter("circularsync.upstream.errors",
		metric.WithDescription("Number of failed upstream calls"))
	if err != nil {
		return nil, err
	}

	m.UpstreamDuration, err = meter.Float64Histogram("circularsync.upstream.duration_seconds",
		metric.WithDescription("Upstream call duration in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

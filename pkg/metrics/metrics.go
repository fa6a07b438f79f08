package metrics

import (
	"context"
	"net/http"
	"time"

	"walletview/pkg/provider"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the connection view's Prometheus collectors.
type Metrics struct {
	ProviderRequestsTotal   *prometheus.CounterVec
	ProviderRequestDuration *prometheus.HistogramVec
	ConnectAttemptsTotal    *prometheus.CounterVec
	StaleRefreshesTotal     prometheus.Counter
	ProviderPresent         prometheus.Gauge

	registry *prometheus.Registry
}

// New creates the collectors and registers them on a private registry.
func New(namespace string) *Metrics {
	m := &Metrics{
		ProviderRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_requests_total",
				Help:      "Total number of wallet provider requests",
			},
			[]string{"method", "status"},
		),
		ProviderRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_request_duration_seconds",
				Help:      "Wallet provider request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		ConnectAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connect_attempts_total",
				Help:      "Total number of account authorization requests by outcome",
			},
			[]string{"outcome"},
		),
		StaleRefreshesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stale_refreshes_total",
				Help:      "Wallet refresh results discarded because a newer refresh superseded them",
			},
		),
		ProviderPresent: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "provider_present",
				Help:      "1 when a wallet provider was detected",
			},
		),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(
		m.ProviderRequestsTotal,
		m.ProviderRequestDuration,
		m.ConnectAttemptsTotal,
		m.StaleRefreshesTotal,
		m.ProviderPresent,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and embedding.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// The methods below are nil-safe so callers can run without metrics.

func (m *Metrics) RecordConnect(outcome string) {
	if m == nil {
		return
	}
	m.ConnectAttemptsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordStaleRefresh() {
	if m == nil {
		return
	}
	m.StaleRefreshesTotal.Inc()
}

func (m *Metrics) SetProviderPresent(present bool) {
	if m == nil {
		return
	}
	if present {
		m.ProviderPresent.Set(1)
	} else {
		m.ProviderPresent.Set(0)
	}
}

func (m *Metrics) observe(method string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ProviderRequestsTotal.WithLabelValues(method, status).Inc()
	m.ProviderRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

// InstrumentDetector wraps every provider d detects so its requests are counted.
func InstrumentDetector(d provider.Detector, m *Metrics) provider.Detector {
	if m == nil {
		return d
	}
	return instrumentedDetector{next: d, metrics: m}
}

type instrumentedDetector struct {
	next    provider.Detector
	metrics *Metrics
}

func (d instrumentedDetector) Detect(ctx context.Context) (provider.Provider, error) {
	p, err := d.next.Detect(ctx)
	d.metrics.SetProviderPresent(err == nil && p != nil)
	if err != nil {
		return nil, err
	}
	return &instrumentedProvider{Provider: p, metrics: d.metrics}, nil
}

type instrumentedProvider struct {
	provider.Provider
	metrics *Metrics
}

func (p *instrumentedProvider) Accounts(ctx context.Context) ([]string, error) {
	start := time.Now()
	accounts, err := p.Provider.Accounts(ctx)
	p.metrics.observe("eth_accounts", start, err)
	return accounts, err
}

func (p *instrumentedProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	start := time.Now()
	accounts, err := p.Provider.RequestAccounts(ctx)
	p.metrics.observe("eth_requestAccounts", start, err)
	return accounts, err
}

func (p *instrumentedProvider) Balance(ctx context.Context, account string) (string, error) {
	start := time.Now()
	balance, err := p.Provider.Balance(ctx, account)
	p.metrics.observe("eth_getBalance", start, err)
	return balance, err
}

func (p *instrumentedProvider) ChainID(ctx context.Context) (string, error) {
	start := time.Now()
	chainID, err := p.Provider.ChainID(ctx)
	p.metrics.observe("eth_chainId", start, err)
	return chainID, err
}

// Package metrics collects daemon metrics. Counters are exported through a
// private Prometheus registry and mirrored in atomics for cheap snapshots.
package metrics

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	custerr "github.com/mrz1836/custodian/pkg/errors"
)

const namespace = "custodian"

// Signature kinds.
const (
	SignatureSingle   = "single"
	SignatureMultisig = "multisig"
)

// Metrics holds the daemon's collectors.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	walletOps       *prometheus.CounterVec
	handleOps       *prometheus.CounterVec
	signatures      *prometheus.CounterVec
	handlesOpen     prometheus.Gauge

	requestsTotal   atomic.Int64
	requestErrors   atomic.Int64
	requestNanos    atomic.Int64
	walletOpsTotal  atomic.Int64
	walletOpsErrors atomic.Int64
	handleOpsTotal  atomic.Int64
	signaturesTotal atomic.Int64
}

// New creates a metrics set on its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		walletOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wallet_operations_total",
			Help:      "Wallet, key and multisig operations by outcome.",
		}, []string{"op", "result"}),
		handleOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handle_operations_total",
			Help:      "Wallet handle operations by outcome.",
		}, []string{"op", "result"}),
		signatures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signatures_total",
			Help:      "Transaction signatures produced by kind and outcome.",
		}, []string{"kind", "result"}),
		handlesOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "handles_open",
			Help:      "Wallet handles currently held.",
		}),
	}
	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.walletOps,
		m.handleOps,
		m.signatures,
		m.handlesOpen,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordRequest records a served HTTP request.
func (m *Metrics) RecordRequest(method, route string, status int, duration time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
	m.requestsTotal.Add(1)
	m.requestNanos.Add(duration.Nanoseconds())
	if status >= http.StatusBadRequest {
		m.requestErrors.Add(1)
	}
}

// RecordWalletOp records a wallet, key or multisig operation.
func (m *Metrics) RecordWalletOp(op string, err error) {
	m.walletOps.WithLabelValues(op, result(err)).Inc()
	m.walletOpsTotal.Add(1)
	if err != nil {
		m.walletOpsErrors.Add(1)
	}
}

// RecordHandleOp records a handle init, renew or release.
func (m *Metrics) RecordHandleOp(op string, err error) {
	m.handleOps.WithLabelValues(op, result(err)).Inc()
	m.handleOpsTotal.Add(1)
}

// RecordSignature records a signing attempt.
func (m *Metrics) RecordSignature(kind string, err error) {
	m.signatures.WithLabelValues(kind, result(err)).Inc()
	if err == nil {
		m.signaturesTotal.Add(1)
	}
}

// SetHandlesOpen records the number of live handles.
func (m *Metrics) SetHandlesOpen(n int) {
	m.handlesOpen.Set(float64(n))
}

// result labels an outcome by error kind.
func result(err error) string {
	if err == nil {
		return "ok"
	}
	return string(custerr.KindOf(err))
}

// Snapshot is a point-in-time copy of the headline counters.
type Snapshot struct {
	RequestsTotal   int64
	RequestErrors   int64
	RequestNanos    int64
	WalletOpsTotal  int64
	WalletOpsErrors int64
	HandleOpsTotal  int64
	SignaturesTotal int64
}

// Snapshot returns a point-in-time copy of the headline counters.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		RequestsTotal:   m.requestsTotal.Load(),
		RequestErrors:   m.requestErrors.Load(),
		RequestNanos:    m.requestNanos.Load(),
		WalletOpsTotal:  m.walletOpsTotal.Load(),
		WalletOpsErrors: m.walletOpsErrors.Load(),
		HandleOpsTotal:  m.handleOpsTotal.Load(),
		SignaturesTotal: m.signaturesTotal.Load(),
	}
}

// RequestLatencyAvgMs returns the average request latency in milliseconds.
// Returns 0 if no requests have been served.
func (m *Metrics) RequestLatencyAvgMs() float64 {
	n := m.requestsTotal.Load()
	if n == 0 {
		return 0
	}
	return float64(m.requestNanos.Load()) / float64(n) / 1e6
}

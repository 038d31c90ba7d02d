package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics on a private registry
type Metrics struct {
	Registry *prometheus.Registry

	// HTTP metrics for the local API
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Fetch metrics
	FetchesTotal  *prometheus.CounterVec
	FetchDuration prometheus.Histogram
	FetchStates   *prometheus.CounterVec
	PageRequests  *prometheus.CounterVec
	Harvests      *prometheus.CounterVec

	// Store metrics
	StoreRecords prometheus.Gauge
	StoreWrites  *prometheus.CounterVec

	// Search metrics
	Searches    prometheus.Counter
	Suggestions *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time

	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current metric values for the JSON stats endpoint
type Snapshot struct {
	TotalRequests  int64   `json:"total_requests"`
	TotalErrors    int64   `json:"total_errors"`
	FetchesStarted int64   `json:"fetches_started"`
	FetchesCached  int64   `json:"fetches_cached"`
	Records        int64   `json:"records"`
	Uptime         float64 `json:"uptime_seconds"`
}

// NewMetrics creates a new metrics collector with its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		Registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "danwiki_http_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "danwiki_http_request_duration_seconds",
				Help:    "API request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "danwiki_http_response_size_bytes",
				Help:    "API response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),

		FetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "danwiki_fetches_total",
				Help: "Fetch requests by outcome",
			},
			[]string{"outcome"},
		),
		FetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "danwiki_fetch_duration_seconds",
				Help:    "Duration of background tag fetches",
				Buckets: []float64{.5, 1, 2.5, 5, 10, 20, 40, 80},
			},
		),
		FetchStates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "danwiki_fetch_states_total",
				Help: "Fetch state transitions emitted",
			},
			[]string{"state"},
		),
		PageRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "danwiki_page_requests_total",
				Help: "Wiki page HTTP attempts by result",
			},
			[]string{"result"},
		),
		Harvests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "danwiki_credential_harvests_total",
				Help: "Browser credential harvests by result",
			},
			[]string{"result"},
		),

		StoreRecords: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "danwiki_store_records",
				Help: "Number of tag records held",
			},
		),
		StoreWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "danwiki_store_writes_total",
				Help: "Store persist attempts by result",
			},
			[]string{"result"},
		),

		Searches: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "danwiki_searches_total",
				Help: "Local substring searches served",
			},
		),
		Suggestions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "danwiki_suggestions_total",
				Help: "Suggestions produced by source",
			},
			[]string{"source"},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "danwiki_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "danwiki_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "danwiki_uptime_seconds",
			Help: "Process uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// RecordHTTPRequest records an API request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, respSize int64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if len(status) > 0 && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordFetch records the synchronous outcome of a fetch request
func (m *Metrics) RecordFetch(outcome string) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(outcome).Inc()

	m.mu.Lock()
	switch outcome {
	case "cached":
		m.snapshot.FetchesCached++
	case "started":
		m.snapshot.FetchesStarted++
	}
	m.mu.Unlock()
}

// ObserveFetch records how long a background fetch ran
func (m *Metrics) ObserveFetch(duration time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(duration.Seconds())
}

// RecordState records an emitted fetch state
func (m *Metrics) RecordState(state string) {
	if m == nil {
		return
	}
	m.FetchStates.WithLabelValues(state).Inc()
}

// RecordPageRequest records a single wiki page HTTP attempt
func (m *Metrics) RecordPageRequest(result string) {
	if m == nil {
		return
	}
	m.PageRequests.WithLabelValues(result).Inc()
}

// RecordHarvest records a browser credential harvest
func (m *Metrics) RecordHarvest(result string) {
	if m == nil {
		return
	}
	m.Harvests.WithLabelValues(result).Inc()
}

// SetRecords sets the number of stored records
func (m *Metrics) SetRecords(count int) {
	if m == nil {
		return
	}
	m.StoreRecords.Set(float64(count))
	m.mu.Lock()
	m.snapshot.Records = int64(count)
	m.mu.Unlock()
}

// RecordStoreWrite records a persist attempt
func (m *Metrics) RecordStoreWrite(result string) {
	if m == nil {
		return
	}
	m.StoreWrites.WithLabelValues(result).Inc()
}

// IncSearches increments the search counter
func (m *Metrics) IncSearches() {
	if m == nil {
		return
	}
	m.Searches.Inc()
}

// RecordSuggestion records where a suggestion came from
func (m *Metrics) RecordSuggestion(source string) {
	if m == nil {
		return
	}
	m.Suggestions.WithLabelValues(source).Inc()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
}

// Snapshot returns a copy of the current counters
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.snapshot
	s.Uptime = time.Since(m.startTime).Seconds()
	return s
}

package services

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors updated by [SpotifyClient].
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	TokenAcquisitions *prometheus.CounterVec
	APIRequests       *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	PlaylistPages     prometheus.Histogram
	Lookups           *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TokenAcquisitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spotx_token_acquisitions_total",
				Help: "Access token acquisitions by auth mode and result",
			},
			[]string{"mode", "result"},
		),
		APIRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spotx_api_requests_total",
				Help: "Catalog API requests by HTTP status code",
			},
			[]string{"code"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "spotx_api_request_duration_seconds",
				Help:    "Catalog API request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"code"},
		),
		PlaylistPages: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "spotx_playlist_pages",
				Help:    "Pages fetched per playlist, including the first",
				Buckets: []float64{1, 2, 3, 5, 10, 20, 50},
			},
		),
		Lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spotx_lookups_total",
				Help: "Dispatched lookups by resource kind",
			},
			[]string{"kind"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.TokenAcquisitions,
			m.APIRequests,
			m.RequestDuration,
			m.PlaylistPages,
			m.Lookups,
		)
	}

	return m
}

func (m *Metrics) tokenAcquired(mode AuthMode, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.TokenAcquisitions.WithLabelValues(mode.String(), result).Inc()
}

func (m *Metrics) apiRequest(code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	m.APIRequests.WithLabelValues(label).Inc()
	m.RequestDuration.WithLabelValues(label).Observe(elapsed.Seconds())
}

func (m *Metrics) playlistFetched(pages int) {
	if m == nil {
		return
	}
	m.PlaylistPages.Observe(float64(pages))
}

func (m *Metrics) lookup(kind ResourceKind) {
	if m == nil {
		return
	}
	m.Lookups.WithLabelValues(kind.String()).Inc()
}

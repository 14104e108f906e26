// Package metrics содержит Prometheus-метрики конвейера инцидентов.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shenikar/event_rescue/internal/feed"
	"github.com/shenikar/event_rescue/internal/models"
)

// Metrics - метрики приема, ленты и доставки
type Metrics struct {
	IngestsTotal          *prometheus.CounterVec
	IngestDuration        prometheus.Histogram
	NormalizeFailures     *prometheus.CounterVec
	FeedSize              prometheus.Gauge
	FeedEvictions         prometheus.Counter
	PushDropped           prometheus.Counter
	PushClients           prometheus.Gauge
	VoiceAlertsTotal      *prometheus.CounterVec
	PromotionsTotal       *prometheus.CounterVec
	DispatchEventsTotal   *prometheus.CounterVec
	StatusTransitionTotal *prometheus.CounterVec
	VisionDropped         prometheus.Counter
}

// New регистрирует метрики на reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		IngestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rescue_ingests_total",
			Help: "Incidents accepted into the feed by type and outcome.",
		}, []string{"type", "outcome"}),
		IngestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rescue_ingest_duration_seconds",
			Help:    "Time from raw payload to stored incident.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms .. ~1s
		}),
		NormalizeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rescue_normalize_failures_total",
			Help: "Raw records rejected by the normalizer by source.",
		}, []string{"source"}),
		FeedSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rescue_feed_size",
			Help: "Incidents currently held in the live feed.",
		}),
		FeedEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rescue_feed_evictions_total",
			Help: "Incidents dropped from the tail of the live feed.",
		}),
		PushDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rescue_push_dropped_total",
			Help: "Push notifications dropped because a subscriber was slow.",
		}),
		PushClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rescue_push_clients",
			Help: "Connected push clients.",
		}),
		VoiceAlertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rescue_voice_alerts_total",
			Help: "Voice alerts received by category.",
		}, []string{"category"}),
		PromotionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rescue_match_promotions_total",
			Help: "Lost-and-found scans by result.",
		}, []string{"result"}),
		DispatchEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rescue_dispatch_events_total",
			Help: "Dispatch webhook deliveries by result.",
		}, []string{"result"}),
		StatusTransitionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rescue_status_transitions_total",
			Help: "Incident status changes by target status.",
		}, []string{"status"}),
		VisionDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rescue_vision_dropped_total",
			Help: "Vision bus messages dropped as unreadable or rejected.",
		}),
	}

	reg.MustRegister(
		m.IngestsTotal,
		m.IngestDuration,
		m.NormalizeFailures,
		m.FeedSize,
		m.FeedEvictions,
		m.PushDropped,
		m.PushClients,
		m.VoiceAlertsTotal,
		m.PromotionsTotal,
		m.DispatchEventsTotal,
		m.StatusTransitionTotal,
		m.VisionDropped,
	)
	return m
}

// FeedHooks связывает события ленты с метриками
func (m *Metrics) FeedHooks() feed.Hooks {
	return feed.Hooks{
		OnIngest: func(t models.IncidentType, created bool) {
			outcome := "updated"
			if created {
				outcome = "created"
			}
			m.IngestsTotal.WithLabelValues(string(t), outcome).Inc()
		},
		OnEvict:       func(string) { m.FeedEvictions.Inc() },
		OnPushDropped: func() { m.PushDropped.Inc() },
		OnSize:        func(n int) { m.FeedSize.Set(float64(n)) },
	}
}

// ObserveIngest фиксирует длительность приема одной записи
func (m *Metrics) ObserveIngest(start time.Time) {
	m.IngestDuration.Observe(time.Since(start).Seconds())
}

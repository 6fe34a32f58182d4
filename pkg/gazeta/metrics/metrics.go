// Package metrics exposes Prometheus collectors for mining runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cognicore/gazeta/pkg/gazeta/ingest"
)

const namespace = "gazeta"

// Metrics groups the run collectors. A nil *Metrics ignores observations.
type Metrics struct {
	runs           *prometheus.CounterVec
	pages          *prometheus.CounterVec
	blocksRejected prometheus.Counter
	fragments      *prometheus.CounterVec
	events         *prometheus.CounterVec
	inserted       prometheus.Counter
	duration       prometheus.Histogram
	peakPages      prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{}
	m.runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Mining runs by final state",
	}, []string{"state"})
	m.pages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pages_total",
		Help:      "Pages visited by result",
	}, []string{"result"})
	m.blocksRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "blocks_rejected_total",
		Help:      "Municipality blocks scored below the relevance threshold",
	})
	m.fragments = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fragments_total",
		Help:      "Fragments by outcome",
	}, []string{"outcome"})
	m.events = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_total",
		Help:      "Deduplicated events emitted by category",
	}, []string{"category"})
	m.inserted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_inserted_total",
		Help:      "Events newly written to the store",
	})
	m.duration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Time spent mining one document",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})
	m.peakPages = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "peak_buffered_pages",
		Help:      "Largest number of pages held in memory by the last run",
	})

	if reg != nil {
		reg.MustRegister(
			m.runs, m.pages, m.blocksRejected, m.fragments,
			m.events, m.inserted, m.duration, m.peakPages,
		)
	}
	return m
}

// ObserveRun records the outcome of one run.
func (m *Metrics) ObserveRun(res *ingest.Result, inserted int, took time.Duration) {
	if m == nil || res == nil {
		return
	}
	s := res.Summary

	m.runs.WithLabelValues(s.State.String()).Inc()
	m.pages.WithLabelValues("ok").Add(float64(s.PagesProcessed - s.PagesWithErrors))
	m.pages.WithLabelValues("unreadable").Add(float64(s.PagesWithErrors))
	m.blocksRejected.Add(float64(s.BlocksRejected))
	m.fragments.WithLabelValues("evaluated").Add(float64(s.FragmentsEvaluated))
	m.fragments.WithLabelValues("vetoed").Add(float64(s.FragmentsVetoed))
	m.fragments.WithLabelValues("low_score").Add(float64(s.FragmentsLowScore))
	m.fragments.WithLabelValues("no_match").Add(float64(s.FragmentsNoMatch))
	for _, ev := range res.Events {
		m.events.WithLabelValues(ev.Category).Inc()
	}
	m.inserted.Add(float64(inserted))
	m.duration.Observe(took.Seconds())
	m.peakPages.Set(float64(s.PeakBufferedPages))
}

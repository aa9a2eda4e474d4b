// Package scrape contains the per-stage scrapers and the retry state
// machine that drives one work item to a terminal outcome.
package scrape

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mkovacs/placeharvest/models"
)

// Metrics aggregates the engine counters on a dedicated registry so the
// exposition endpoint carries only our series. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	items         *prometheus.CounterVec
	restarts      *prometheus.CounterVec
	pages         prometheus.Counter
	itemDurations prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "placeharvest",
			Name:      "items_total",
			Help:      "Work items processed, labeled by terminal outcome.",
		}, []string{"outcome"}),
		restarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "placeharvest",
			Name:      "browser_restarts_total",
			Help:      "Full browser restarts, labeled by reason.",
		}, []string{"reason"}),
		pages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "placeharvest",
			Name:      "pages_fetched_total",
			Help:      "Individual page navigations, successful or not.",
		}),
		itemDurations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "placeharvest",
			Name:      "item_duration_seconds",
			Help:      "Wall-clock time spent per work item, retries included.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 15, 25, 60, 120},
		}),
	}
	m.registry.MustRegister(m.items, m.restarts, m.pages, m.itemDurations)
	return m
}

// Handler returns the exposition handler for the dedicated registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRestart is wired into the session manager's OnRestart hook.
func (m *Metrics) ObserveRestart(reason string) {
	if m == nil {
		return
	}
	m.restarts.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveItem(kind models.OutcomeKind, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.items.WithLabelValues(kind.String()).Inc()
	m.itemDurations.Observe(elapsed.Seconds())
}

func (m *Metrics) IncPages() {
	if m == nil {
		return
	}
	m.pages.Inc()
}

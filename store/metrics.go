package store

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "console_notifier"

type Metrics struct {
	added       *prometheus.CounterVec
	removed     prometheus.Counter
	queueLength prometheus.Gauge
	dropped     prometheus.Counter
}

// NewMetrics creates the store collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		added: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "notifications_added_total",
			Help:      "Number of notifications added to the queue, by color.",
		}, []string{"color"}),
		removed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "notifications_removed_total",
			Help:      "Number of notifications removed from the queue.",
		}),
		queueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "queue_length",
			Help:      "Number of notifications currently queued.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_dropped_total",
			Help:      "Number of queue events dropped because the event channel was full.",
		}),
	}

	for _, c := range []prometheus.Collector{m.added, m.removed, m.queueLength, m.dropped} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeAdd(color string, length int) {
	if m == nil {
		return
	}
	m.added.WithLabelValues(color).Inc()
	m.queueLength.Set(float64(length))
}

func (m *Metrics) observeRemove(length int) {
	if m == nil {
		return
	}
	m.removed.Inc()
	m.queueLength.Set(float64(length))
}

func (m *Metrics) observeDropped() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}

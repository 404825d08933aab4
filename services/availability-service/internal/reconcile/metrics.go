package reconcile

import (
	"time"

	"github.com/md-rashed-zaman/availability/libs/metrics"
	"github.com/md-rashed-zaman/availability/services/availability-service/internal/diag"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is optional: a nil *Metrics records nothing.
type Metrics struct {
	saves        *prometheus.CounterVec
	records      *prometheus.CounterVec
	rejections   *prometheus.CounterVec
	saveDuration *prometheus.HistogramVec
}

func NewMetrics(reg *metrics.Registry) *Metrics {
	return &Metrics{
		saves:        reg.CounterVec("saves_total", "Availability saves by entity and outcome.", "entity", "outcome"),
		records:      reg.CounterVec("merged_records_total", "Records sent to the store by entity and operation.", "entity", "op"),
		rejections:   reg.CounterVec("rejected_inputs_total", "Raw inputs dropped during mapping.", "entity", "kind"),
		saveDuration: reg.HistogramVec("save_duration_seconds", "Time spent fetching, diffing and merging one save.", nil, "entity"),
	}
}

func (m *Metrics) save(entity, outcome string, upserted, deleted int, took time.Duration) {
	if m == nil {
		return
	}
	m.saves.WithLabelValues(entity, outcome).Inc()
	if upserted > 0 {
		m.records.WithLabelValues(entity, "upsert").Add(float64(upserted))
	}
	if deleted > 0 {
		m.records.WithLabelValues(entity, "delete").Add(float64(deleted))
	}
	if took > 0 {
		m.saveDuration.WithLabelValues(entity).Observe(took.Seconds())
	}
}

func (m *Metrics) rejected(entity string, kind diag.Kind, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rejections.WithLabelValues(entity, string(kind)).Add(float64(n))
}

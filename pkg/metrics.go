package converter

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const metricsNamespace = "ao2d"

// Metrics holds the data-quality counters of a conversion.
type Metrics struct {
	EventsRead        prometheus.Counter
	EventsAccepted    prometheus.Counter
	EventsRejected    prometheus.Counter
	RowsWritten       *prometheus.CounterVec
	DroppedCandidates *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		EventsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_read_total",
			Help:      "Events read from the input",
		}),
		EventsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_accepted_total",
			Help:      "Events written to the output tables",
		}),
		EventsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_rejected_total",
			Help:      "Events rejected by the acceptance filter",
		}),
		RowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rows_appended_total",
			Help:      "Rows appended per output table",
		}, []string{"table"}),
		DroppedCandidates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "dropped_candidates_total",
			Help:      "V0 and cascade candidates not written, by reason",
		}, []string{"reason"}),
	}
	if reg == nil {
		return m, nil
	}
	collectors := []prometheus.Collector{
		m.EventsRead, m.EventsAccepted, m.EventsRejected, m.RowsWritten, m.DroppedCandidates,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("error registering metric: %w", err)
		}
	}
	return m, nil
}

const (
	reasonOnTheFlyV0      = "on_the_fly_v0"
	reasonOnTheFlyCascade = "on_the_fly_cascade"
	reasonUnmatched       = "unmatched_cascade"
)

func (m *Metrics) observe(rows *EventRows, appended [NumTables]int) {
	m.EventsRead.Inc()
	if !rows.Accepted {
		m.EventsRejected.Inc()
		return
	}
	m.EventsAccepted.Inc()
	for k := Events; k < NumTables; k++ {
		if appended[k] > 0 {
			m.RowsWritten.WithLabelValues(k.String()).Add(float64(appended[k]))
		}
	}
	d := rows.Diagnostics
	m.DroppedCandidates.WithLabelValues(reasonOnTheFlyV0).Add(float64(d.OnTheFlyV0s))
	m.DroppedCandidates.WithLabelValues(reasonOnTheFlyCascade).Add(float64(d.OnTheFlyCascades))
	m.DroppedCandidates.WithLabelValues(reasonUnmatched).Add(float64(d.UnmatchedCascades))
}

// PushMetrics sends the gathered metrics to a Pushgateway.
func PushMetrics(url string, job string, run int32, g prometheus.Gatherer) error {
	err := push.New(url, job).
		Grouping("run", fmt.Sprintf("%d", run)).
		Gatherer(g).
		Push()
	if err != nil {
		return fmt.Errorf("error pushing metrics to %s: %w", url, err)
	}
	return nil
}

package export

import (
	"fmt"

	"github.com/ademuri/spotify-history-tools/internal/analysis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the counters of a single report run, written in the Prometheus
// text format for node_exporter's textfile collector.
type Metrics struct {
	registry *prometheus.Registry

	EventsInput      prometheus.Counter
	EventsDropped    prometheus.Counter
	EventsRedirected prometheus.Counter
	ListeningHours   prometheus.Gauge
	Plays            prometheus.Gauge
	ReportRows       *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		EventsInput: factory.NewCounter(prometheus.CounterOpts{
			Name: "spotify_history_events_input_total",
			Help: "Playback events read from the history.",
		}),
		EventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "spotify_history_events_dropped_total",
			Help: "Events dropped because they are not track playbacks.",
		}),
		EventsRedirected: factory.NewCounter(prometheus.CounterOpts{
			Name: "spotify_history_events_redirected_total",
			Help: "Events moved onto a newer URI of the same track.",
		}),
		ListeningHours: factory.NewGauge(prometheus.GaugeOpts{
			Name: "spotify_history_listening_hours",
			Help: "Hours played inside the report window.",
		}),
		Plays: factory.NewGauge(prometheus.GaugeOpts{
			Name: "spotify_history_plays",
			Help: "Plays inside the report window.",
		}),
		ReportRows: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "spotify_history_report_rows",
			Help: "Rows written per report.",
		}, []string{"report"}),
	}
}

func (m *Metrics) Observe(result *analysis.Result) {
	m.EventsInput.Add(float64(result.Stats.Input))
	m.EventsDropped.Add(float64(result.Stats.Dropped))
	m.EventsRedirected.Add(float64(result.Stats.Redirected))
	m.ListeningHours.Set(result.Totals.Hours)
	m.Plays.Set(float64(result.Totals.Plays))
	for _, t := range result.Tables {
		m.ReportRows.WithLabelValues(t.Name).Set(float64(len(t.Rows)))
	}
}

func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

package publish

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// PushJob is the Pushgateway job every result is pushed under.
const PushJob = "perf_runner"

// Pushgateway pushes each record's figures as gauges. Every (run, label,
// folder) gets its own grouping key so pushes do not overwrite each other.
type Pushgateway struct {
	url    string
	client *http.Client
}

var _ Publisher = (*Pushgateway)(nil)

// NewPushgateway creates a publisher for the Pushgateway at url.
func NewPushgateway(url string, client *http.Client) *Pushgateway {
	if client == nil {
		client = http.DefaultClient
	}

	return &Pushgateway{url: url, client: client}
}

// Name implements Publisher.
func (p *Pushgateway) Name() string { return "pushgateway" }

// Publish pushes the gauges for the artifact.
func (p *Pushgateway) Publish(ctx context.Context, a Artifact) error {
	pusher := push.New(p.url, PushJob).
		Client(p.client).
		Grouping("run_id", a.RunID).
		Grouping("label", a.Label).
		Grouping("folder", a.Folder)

	for _, g := range Gauges(a) {
		pusher = pusher.Collector(g)
	}

	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("pushing to %s: %w", p.url, err)
	}

	return nil
}

// Gauges builds the gauges describing a record. Load-test gauges are only
// present when the record carries them.
func Gauges(a Artifact) []prometheus.Gauge {
	rec := a.Record

	gauges := []prometheus.Gauge{
		newGauge("perf_execution_time_ms", "Wall-clock time of the workload in milliseconds.", rec.ExecutionTime()),
	}

	c := rec.ClientResults
	if c == nil {
		return gauges
	}

	if c.Latency != nil {
		gauges = append(gauges, newGauge("perf_latency_average_ms", "Average request latency in milliseconds.", c.Latency.AverageMs))
	}

	if c.RequestsPerSecond != nil {
		gauges = append(gauges, newGauge("perf_requests_per_second", "Requests per second sustained by the workload.", *c.RequestsPerSecond))
	}

	if c.Errors != nil {
		gauges = append(gauges, newGauge("perf_errors", "Errors reported by the load generator.", float64(*c.Errors)))
	}

	return gauges
}

func newGauge(name, help string, value float64) prometheus.Gauge {
	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
	g.Set(value)

	return g
}

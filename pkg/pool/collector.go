package pool

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricNamespace = "reservoir"
	metricSubsystem = "pool"
)

// statsSource lets the Collector observe a pool without binding to its
// resource type parameter.
type statsSource interface {
	Stats() Stats
}

// Collector exposes a pool's Stats to prometheus. All metrics carry the pool
// name as a label; gauges reflect the snapshot, counters the lifetime
// totals. Register it with any prometheus.Registerer.
type Collector struct {
	source statsSource

	resources *prometheus.Desc
	waiting   *prometheus.Desc
	filling   *prometheus.Desc
	draining  *prometheus.Desc
	counters  []counterMetric
}

type counterMetric struct {
	desc  *prometheus.Desc
	value func(Stats) int64
}

// NewCollector builds a prometheus collector observing p.
func NewCollector[T comparable](p *Pool[T]) *Collector {
	return newCollector(p)
}

func newCollector(source statsSource) *Collector {
	labels := []string{"pool"}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(metricNamespace, metricSubsystem, name),
			help, labels, nil,
		)
	}

	return &Collector{
		source:    source,
		resources: desc("resources", "Resources currently buffered."),
		waiting:   desc("waiting", "Get callers currently blocked on an empty buffer."),
		filling:   desc("filling", "Whether a fill cycle is in flight."),
		draining:  desc("draining", "Whether a drain cycle is in flight."),
		counters: []counterMetric{
			{desc("gets_total", "Get calls."), func(s Stats) int64 { return s.Gets }},
			{desc("hits_total", "Get calls served straight from the buffer."), func(s Stats) int64 { return s.Hits }},
			{desc("waits_total", "Get calls that had to wait for a resource."), func(s Stats) int64 { return s.Waits }},
			{desc("puts_total", "Put calls."), func(s Stats) int64 { return s.Puts }},
			{desc("created_total", "Resources created by the factory."), func(s Stats) int64 { return s.Created }},
			{desc("destroyed_total", "Resources handed to the destructor."), func(s Stats) int64 { return s.Destroyed }},
			{desc("rejected_total", "Puts rejected to the destructor."), func(s Stats) int64 { return s.Rejected }},
			{desc("duplicates_total", "Puts rejected as duplicates."), func(s Stats) int64 { return s.Duplicates }},
			{desc("factory_failures_total", "Failed factory invocations."), func(s Stats) int64 { return s.FactoryFailures }},
			{desc("retries_exhausted_total", "Fill slots that ran out of retries."), func(s Stats) int64 { return s.RetriesExhausted }},
			{desc("destructor_failures_total", "Failed destructor invocations."), func(s Stats) int64 { return s.DestructorFailures }},
			{desc("callback_failures_total", "Use callbacks that returned an error."), func(s Stats) int64 { return s.CallbackFailures }},
			{desc("fill_cycles_total", "Fill cycles run."), func(s Stats) int64 { return s.FillCycles }},
			{desc("drain_cycles_total", "Drain cycles run."), func(s Stats) int64 { return s.DrainCycles }},
		},
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.resources
	ch <- c.waiting
	ch <- c.filling
	ch <- c.draining
	for _, m := range c.counters {
		ch <- m.desc
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.source.Stats()

	ch <- prometheus.MustNewConstMetric(c.resources, prometheus.GaugeValue, float64(s.Size), s.Name)
	ch <- prometheus.MustNewConstMetric(c.waiting, prometheus.GaugeValue, float64(s.Waiting), s.Name)
	ch <- prometheus.MustNewConstMetric(c.filling, prometheus.GaugeValue, boolToFloat(s.Filling), s.Name)
	ch <- prometheus.MustNewConstMetric(c.draining, prometheus.GaugeValue, boolToFloat(s.Draining), s.Name)
	for _, m := range c.counters {
		ch <- prometheus.MustNewConstMetric(m.desc, prometheus.CounterValue, float64(m.value(s)), s.Name)
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package dase

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// A Collector gathers engine metrics. It implements prometheus.Collector and
// can be shared by several engines.
//
type Collector struct {
	waves          prometheus.Counter
	executions     prometheus.Counter
	switches       prometheus.Counter
	capacityErrors prometheus.Counter
	waveDuration   prometheus.Histogram
}

// NewCollector returns a new Collector whose metric names are prefixed with
// namespace.
//
func NewCollector(namespace string) *Collector {
	return &Collector{
		waves: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "waves_total",
			Help:      "Total number of executed waves.",
		}),
		executions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_executions_total",
			Help:      "Total number of node executions.",
		}),
		switches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "role_switches_total",
			Help:      "Total number of effective node role switches.",
		}),
		capacityErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capacity_errors_total",
			Help:      "Initialize calls rejected for exceeding engine capacity.",
		}),
		waveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "wave_duration_seconds",
			Help:      "Wave execution time in seconds.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12), // 1µs to ~4s
		}),
	}
}

// Describe implements prometheus.Collector.
//
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.waves.Describe(ch)
	c.executions.Describe(ch)
	c.switches.Describe(ch)
	c.capacityErrors.Describe(ch)
	c.waveDuration.Describe(ch)
}

// Collect implements prometheus.Collector.
//
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.waves.Collect(ch)
	c.executions.Collect(ch)
	c.switches.Collect(ch)
	c.capacityErrors.Collect(ch)
	c.waveDuration.Collect(ch)
}

func (c *Collector) wave(nodes int, d time.Duration) {
	if c == nil {
		return
	}
	c.waves.Inc()
	c.executions.Add(float64(nodes))
	c.waveDuration.Observe(d.Seconds())
}

func (c *Collector) switched(n int) {
	if c == nil || n == 0 {
		return
	}
	c.switches.Add(float64(n))
}

func (c *Collector) capacityError() {
	if c == nil {
		return
	}
	c.capacityErrors.Inc()
}

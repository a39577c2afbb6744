package store

import (
	"github.com/prometheus/client_golang/prometheus"
)

// poolCollector reports pgxpool statistics on every scrape.
type poolCollector struct {
	store *Store

	acquired        *prometheus.Desc
	idle            *prometheus.Desc
	total           *prometheus.Desc
	max             *prometheus.Desc
	acquires        *prometheus.Desc
	acquireDuration *prometheus.Desc
	emptyAcquires   *prometheus.Desc
	canceled        *prometheus.Desc
}

// NewPoolCollector returns a Prometheus collector over the store's pool stats.
func NewPoolCollector(s *Store) prometheus.Collector {
	return &poolCollector{
		store:           s,
		acquired:        prometheus.NewDesc("db_pool_acquired_conns", "Connections currently checked out of the pool", nil, nil),
		idle:            prometheus.NewDesc("db_pool_idle_conns", "Idle connections in the pool", nil, nil),
		total:           prometheus.NewDesc("db_pool_total_conns", "Total connections owned by the pool", nil, nil),
		max:             prometheus.NewDesc("db_pool_max_conns", "Maximum pool size", nil, nil),
		acquires:        prometheus.NewDesc("db_pool_acquires_total", "Successful connection acquisitions", nil, nil),
		acquireDuration: prometheus.NewDesc("db_pool_acquire_duration_seconds_total", "Time spent waiting for connections", nil, nil),
		emptyAcquires:   prometheus.NewDesc("db_pool_empty_acquires_total", "Acquisitions that had to wait for a connection", nil, nil),
		canceled:        prometheus.NewDesc("db_pool_canceled_acquires_total", "Acquisitions canceled by their context", nil, nil),
	}
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquired
	ch <- c.idle
	ch <- c.total
	ch <- c.max
	ch <- c.acquires
	ch <- c.acquireDuration
	ch <- c.emptyAcquires
	ch <- c.canceled
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	stat := c.store.Stats()
	if stat == nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.acquired, prometheus.GaugeValue, float64(stat.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(stat.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(stat.TotalConns()))
	ch <- prometheus.MustNewConstMetric(c.max, prometheus.GaugeValue, float64(stat.MaxConns()))
	ch <- prometheus.MustNewConstMetric(c.acquires, prometheus.CounterValue, float64(stat.AcquireCount()))
	ch <- prometheus.MustNewConstMetric(c.acquireDuration, prometheus.CounterValue, stat.AcquireDuration().Seconds())
	ch <- prometheus.MustNewConstMetric(c.emptyAcquires, prometheus.CounterValue, float64(stat.EmptyAcquireCount()))
	ch <- prometheus.MustNewConstMetric(c.canceled, prometheus.CounterValue, float64(stat.CanceledAcquireCount()))
}

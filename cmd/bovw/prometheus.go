package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/bovw"
)

// prometheusCollector implements bovw.MetricsCollector.
type prometheusCollector struct {
	opLatency *prometheus.HistogramVec
	images    *prometheus.CounterVec
	skipped   prometheus.Counter
	rows      prometheus.Counter
	pixels    prometheus.Counter
}

var _ bovw.MetricsCollector = (*prometheusCollector)(nil)

func newPrometheusCollector(reg prometheus.Registerer) *prometheusCollector {
	c := &prometheusCollector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bovw_operation_latency_seconds",
			Help:    "Latency of pipeline operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "status"}),
		images: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bovw_images_total",
			Help: "Images described during aggregation",
		}, []string{"status"}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bovw_images_skipped_total",
			Help: "Images dropped from batches under the skip policy",
		}),
		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bovw_learn_rows_total",
			Help: "Corpus rows clustered",
		}),
		pixels: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bovw_assign_pixels_total",
			Help: "Pixels mapped to visual words",
		}),
	}
	reg.MustRegister(c.opLatency, c.images, c.skipped, c.rows, c.pixels)
	return c
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (c *prometheusCollector) RecordImage(d time.Duration, err error) {
	c.opLatency.WithLabelValues("image", status(err)).Observe(d.Seconds())
	c.images.WithLabelValues(status(err)).Inc()
}

func (c *prometheusCollector) RecordAggregate(_, skipped int, d time.Duration, err error) {
	c.opLatency.WithLabelValues("aggregate", status(err)).Observe(d.Seconds())
	c.skipped.Add(float64(skipped))
}

func (c *prometheusCollector) RecordLearn(rows, _ int, d time.Duration, err error) {
	c.opLatency.WithLabelValues("learn", status(err)).Observe(d.Seconds())
	c.rows.Add(float64(rows))
}

func (c *prometheusCollector) RecordAssign(pixels int, d time.Duration, err error) {
	c.opLatency.WithLabelValues("assign", status(err)).Observe(d.Seconds())
	c.pixels.Add(float64(pixels))
}

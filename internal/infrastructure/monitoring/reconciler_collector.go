package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ReconcilerCollector exposes the agent-side reconciliation metrics. It
// implements reconciler.Metrics.
type ReconcilerCollector struct {
	fetchesCompleted prometheus.Counter
	fetchesFailed    prometheus.Counter
	fetchesTimedOut  prometheus.Counter
	batchesFlushed   prometheus.Counter
	batchSize        prometheus.Histogram
}

func NewReconcilerCollector() *ReconcilerCollector {
	return &ReconcilerCollector{
		fetchesCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "teamstream_reconciler_fetches_completed_total",
			Help: "Total stream detail fetches that resolved",
		}),
		fetchesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "teamstream_reconciler_fetches_failed_total",
			Help: "Total stream detail fetches abandoned on error",
		}),
		fetchesTimedOut: promauto.NewCounter(prometheus.CounterOpts{
			Name: "teamstream_reconciler_fetches_timed_out_total",
			Help: "Total stream detail fetches abandoned on timeout",
		}),
		batchesFlushed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "teamstream_reconciler_batches_flushed_total",
			Help: "Total resolved batches emitted to the subscriber",
		}),
		batchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "teamstream_reconciler_batch_size",
			Help:    "Streams per flushed batch",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		}),
	}
}

func (c *ReconcilerCollector) FetchCompleted() { c.fetchesCompleted.Inc() }
func (c *ReconcilerCollector) FetchFailed()    { c.fetchesFailed.Inc() }
func (c *ReconcilerCollector) FetchTimedOut()  { c.fetchesTimedOut.Inc() }

func (c *ReconcilerCollector) BatchFlushed(size int) {
	c.batchesFlushed.Inc()
	c.batchSize.Observe(float64(size))
}

package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector exposes messaging-layer metrics. It implements
// ports.MetricsRecorder for the core services and carries the broadcaster's
// connection gauges.
type Collector struct {
	grantsIssued  prometheus.Counter
	grantsFailed  prometheus.Counter
	revokesIssued prometheus.Counter
	revokesFailed prometheus.Counter

	messagesPublished *prometheus.CounterVec
	publishFailures   *prometheus.CounterVec

	queueSent   prometheus.Counter
	queueFailed prometheus.Counter

	connectionsActive  prometheus.Gauge
	subscriptionsTotal prometheus.Counter
	subscribeDenied    prometheus.Counter
}

func NewCollector() *Collector {
	return &Collector{
		grantsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "teamstream_grants_issued_total",
			Help: "Total number of channel grants issued",
		}),
		grantsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "teamstream_grants_failed_total",
			Help: "Total number of channel grants that failed",
		}),
		revokesIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "teamstream_revokes_issued_total",
			Help: "Total number of channel revocations issued",
		}),
		revokesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "teamstream_revokes_failed_total",
			Help: "Total number of channel revocations that failed",
		}),
		messagesPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "teamstream_messages_published_total",
			Help: "Total number of envelopes published, by channel kind",
		}, []string{"channel_kind"}),
		publishFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "teamstream_publish_failures_total",
			Help: "Total number of failed publishes, by channel kind",
		}, []string{"channel_kind"}),
		queueSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "teamstream_queue_messages_sent_total",
			Help: "Total number of work-queue messages sent",
		}),
		queueFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "teamstream_queue_messages_failed_total",
			Help: "Total number of work-queue sends that failed",
		}),
		connectionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "teamstream_broadcaster_connections_active",
			Help: "Currently connected broadcaster clients",
		}),
		subscriptionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "teamstream_broadcaster_subscriptions_total",
			Help: "Total accepted channel subscriptions",
		}),
		subscribeDenied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "teamstream_broadcaster_subscribe_denied_total",
			Help: "Total subscribe requests denied for lack of a grant",
		}),
	}
}

func (c *Collector) GrantIssued() { c.grantsIssued.Inc() }
func (c *Collector) GrantFailed() { c.grantsFailed.Inc() }
func (c *Collector) RevokeIssued() { c.revokesIssued.Inc() }
func (c *Collector) RevokeFailed() { c.revokesFailed.Inc() }

func (c *Collector) MessagePublished(channelKind string) {
	c.messagesPublished.WithLabelValues(channelKind).Inc()
}

func (c *Collector) PublishFailed(channelKind string) {
	c.publishFailures.WithLabelValues(channelKind).Inc()
}

func (c *Collector) QueueSent()   { c.queueSent.Inc() }
func (c *Collector) QueueFailed() { c.queueFailed.Inc() }

func (c *Collector) ConnectionOpened()  { c.connectionsActive.Inc() }
func (c *Collector) ConnectionClosed()  { c.connectionsActive.Dec() }
func (c *Collector) SubscribeAccepted() { c.subscriptionsTotal.Inc() }
func (c *Collector) SubscribeRejected() { c.subscribeDenied.Inc() }

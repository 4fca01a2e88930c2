package kafka

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultPublished = "published"
	resultFailed    = "failed"
)

var (
	publishedMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_producer_messages_total",
			Help: "Kafka messages the producer attempted to publish, by topic and result",
		},
		[]string{"topic", "result"},
	)

	publishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_producer_publish_duration_seconds",
			Help:    "Time spent publishing a single event, including encoding",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"topic"},
	)
)

func observePublish(topic string, elapsed time.Duration, err error) {
	result := resultPublished
	if err != nil {
		result = resultFailed
	}
	publishedMessages.WithLabelValues(topic, result).Inc()
	publishDuration.WithLabelValues(topic).Observe(elapsed.Seconds())
}

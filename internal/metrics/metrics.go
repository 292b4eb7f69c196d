package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_operations_total",
			Help: "Queued mutation lifecycle counter by operation and outcome",
		},
		[]string{"operation", "outcome"}, // INSERT|UPDATE|DELETE , opened|completed|failed
	)

	PublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_work_items_published_total",
			Help: "Work items published per queue",
		},
		[]string{"queue"},
	)

	DeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_deliveries_total",
			Help: "Campaign delivery outcomes recorded in the communication log",
		},
		[]string{"status"}, // COMPLETED|FAILED
	)

	FanoutSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crm_campaign_fanout_size",
			Help:    "Delivery work items produced per campaign",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		OperationsTotal,
		PublishedTotal,
		DeliveriesTotal,
		FanoutSize,
	)
}

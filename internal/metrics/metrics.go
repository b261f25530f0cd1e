package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Updates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "earnbot_updates_total",
		Help: "Inbound updates, labeled by source and outcome",
	}, []string{"source", "outcome"})

	Commands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "earnbot_commands_total",
		Help: "Processed commands",
	}, []string{"command"})

	StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "earnbot_store_errors_total",
		Help: "Ledger store failures, labeled by operation",
	}, []string{"op"})

	DeliveryFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "earnbot_delivery_failures_total",
		Help: "Replies or callback answers that could not be delivered",
	})

	UpdateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "earnbot_update_duration_seconds",
		Help:    "Time spent handling one update",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})

	Backups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "earnbot_backups_total",
		Help: "Ledger snapshot backups, labeled by outcome",
	}, []string{"outcome"})

	Accounts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "earnbot_accounts",
		Help: "Accounts in the committed ledger",
	})
)

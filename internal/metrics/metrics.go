// Package metrics holds the Prometheus collectors of the payment relay.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PaymentsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_payments_enqueued_total",
		Help: "Payments accepted by the API and pushed onto the queue",
	})

	PaymentsSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_payments_settled_total",
		Help: "Payments accepted by a processor, by processor",
	}, []string{"processor"})

	PaymentsRequeued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_payments_requeued_total",
		Help: "Payments pushed back after both processors failed",
	})

	ProcessorFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_processor_failures_total",
		Help: "Failed outbound settlement calls, by processor",
	}, []string{"processor"})

	LedgerWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_ledger_write_failures_total",
		Help: "Payments settled upstream whose ledger write failed",
	})

	SettlementDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relay_settlement_duration_seconds",
		Help:    "Outbound settlement call latency, by processor and result",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"processor", "result"})

	HealthProbeRounds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_health_probe_rounds_total",
		Help: "Completed health probe rounds",
	})

	ProcessorHealthy = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "relay_processor_healthy",
		Help: "1 when the processor is considered healthy",
	}, []string{"processor"})

	WorkersBusy = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_workers_busy",
		Help: "Worker slots currently settling a payment",
	})
)

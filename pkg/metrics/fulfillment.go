package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// FulfillmentMetrics records counters for the fulfillment workflows.
type FulfillmentMetrics struct {
	transitions   *prometheus.CounterVec
	otpOutcomes   *prometheus.CounterVec
	walletMoves   *prometheus.CounterVec
	outboxPublish *prometheus.CounterVec
	txDuration    *prometheus.HistogramVec
}

// NewFulfillmentMetrics registers the fulfillment metrics on the provided registerer.
func NewFulfillmentMetrics(reg prometheus.Registerer) *FulfillmentMetrics {
	if reg == nil {
		return &FulfillmentMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fulfillment_status_transitions_total",
		Help: "Status transitions applied, by aggregate and target status.",
	}, []string{"aggregate", "to"})
	otpOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fulfillment_otp_verifications_total",
		Help: "OTP verification attempts, by scope and outcome.",
	}, []string{"scope", "outcome"})
	walletMoves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_movements_total",
		Help: "Wallet ledger movements, by kind and direction.",
	}, []string{"kind", "direction"})
	outboxPublish := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_publish_total",
		Help: "Outbox publish attempts, by result.",
	}, []string{"result"})
	txDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fulfillment_operation_duration_seconds",
		Help:    "Duration of fulfillment operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(transitions, otpOutcomes, walletMoves, outboxPublish, txDuration)
	return &FulfillmentMetrics{
		transitions:   transitions,
		otpOutcomes:   otpOutcomes,
		walletMoves:   walletMoves,
		outboxPublish: outboxPublish,
		txDuration:    txDuration,
	}
}

// IncTransition counts a status transition for the named aggregate.
func (m *FulfillmentMetrics) IncTransition(aggregate, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(aggregate), normalizeLabel(to)).Inc()
}

// IncOtpOutcome counts an OTP verification attempt for the given scope.
func (m *FulfillmentMetrics) IncOtpOutcome(scope, outcome string) {
	if m == nil || m.otpOutcomes == nil {
		return
	}
	m.otpOutcomes.WithLabelValues(normalizeLabel(scope), normalizeLabel(outcome)).Inc()
}

// IncWalletMovement counts a ledger movement.
func (m *FulfillmentMetrics) IncWalletMovement(kind, direction string) {
	if m == nil || m.walletMoves == nil {
		return
	}
	m.walletMoves.WithLabelValues(normalizeLabel(kind), normalizeLabel(direction)).Inc()
}

// IncOutboxPublish counts an outbox publish attempt result.
func (m *FulfillmentMetrics) IncOutboxPublish(result string) {
	if m == nil || m.outboxPublish == nil {
		return
	}
	m.outboxPublish.WithLabelValues(normalizeLabel(result)).Inc()
}

// ObserveOperation records the duration of a named fulfillment operation.
func (m *FulfillmentMetrics) ObserveOperation(operation string, duration time.Duration) {
	if m == nil || m.txDuration == nil {
		return
	}
	m.txDuration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

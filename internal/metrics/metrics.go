package metrics

import (
	"placement-engine/internal/domain/payment"
	"placement-engine/internal/domain/placement"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReservationAttempts counts tryReserve outcomes per kind
	ReservationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placement_reservation_attempts_total",
			Help: "Capacity reservation attempts by kind and outcome",
		},
		[]string{"kind", "outcome"}, // reserved, exhausted or contention
	)

	CapacityReleases = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placement_capacity_releases_total",
			Help: "Capacity units returned to a pool",
		},
		[]string{"kind"},
	)

	StateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placement_state_transitions_total",
			Help: "Committed placement state transitions",
		},
		[]string{"from", "to"},
	)

	PaymentOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placement_payment_outcomes_total",
			Help: "Payment confirmations by outcome",
		},
		[]string{"outcome"},
	)

	// SweepDuration tracks one full sweeper tick
	SweepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "placement_sweep_duration_seconds",
			Help: "Duration of expiration sweeper runs in seconds",
			Buckets: []float64{
				0.005, // 5ms
				0.025, // 25ms
				0.1,   // 100ms
				0.5,   // 500ms
				1.0,   // 1s
				5.0,   // 5s
				30.0,  // 30s
			},
		},
		[]string{"status"}, // success or failure
	)

	SweptPlacements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placement_swept_total",
			Help: "Placements closed by the sweeper",
		},
		[]string{"action"}, // expired, cancelled or purged
	)
)

// Recorder adapts the package collectors to the allocation service.
type Recorder struct{}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (Recorder) ObserveReservation(kind placement.Kind, outcome string) {
	ReservationAttempts.WithLabelValues(kind.String(), outcome).Inc()
}

func (Recorder) ObserveRelease(kind placement.Kind) {
	CapacityReleases.WithLabelValues(kind.String()).Inc()
}

func (Recorder) ObserveTransition(from, to placement.State) {
	StateTransitions.WithLabelValues(from.String(), to.String()).Inc()
}

func (Recorder) ObservePaymentOutcome(outcome payment.Outcome) {
	PaymentOutcomes.WithLabelValues(string(outcome)).Inc()
}

// RecordSweep records the duration of a sweeper run
func RecordSweep(status string, seconds float64) {
	SweepDuration.WithLabelValues(status).Observe(seconds)
}

func RecordSwept(action string, n int) {
	if n > 0 {
		SweptPlacements.WithLabelValues(action).Add(float64(n))
	}
}

package monitoring

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	purchaseAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purchase_attempts_total",
			Help: "Total purchase attempts by outcome",
		},
		[]string{"outcome"},
	)

	ticketsIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_issued_total",
			Help: "Total tickets issued per event",
		},
		[]string{"event_id"},
	)

	txRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tx_serialization_retries_total",
			Help: "Total serializable transaction retries",
		},
	)

	checkIns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkins_total",
			Help: "Total ticket check-ins per event",
		},
		[]string{"event_id"},
	)

	waitlistAdmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitlist_admissions_total",
			Help: "Total waitlist spots offered per event",
		},
		[]string{"event_id"},
	)

	waitlistDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "waitlist_depth",
			Help: "Current number of waiting entries per event",
		},
		[]string{"event_id"},
	)
)

// RecordPurchase counts a purchase attempt with its outcome label
func RecordPurchase(outcome string) {
	purchaseAttempts.WithLabelValues(outcome).Inc()
}

// RecordTicketsIssued counts tickets issued for an event
func RecordTicketsIssued(eventID int64, count int) {
	ticketsIssued.WithLabelValues(strconv.FormatInt(eventID, 10)).Add(float64(count))
}

// RecordTxRetry counts a serialization conflict retry
func RecordTxRetry() {
	txRetries.Inc()
}

// RecordCheckIn counts a ticket check-in for an event
func RecordCheckIn(eventID int64) {
	checkIns.WithLabelValues(strconv.FormatInt(eventID, 10)).Inc()
}

// RecordWaitlistAdmission counts a spot offered to a waitlist entry
func RecordWaitlistAdmission(eventID int64) {
	waitlistAdmissions.WithLabelValues(strconv.FormatInt(eventID, 10)).Inc()
}

// SetWaitlistDepth updates the waiting-entries gauge for an event
func SetWaitlistDepth(eventID int64, depth int64) {
	waitlistDepth.WithLabelValues(strconv.FormatInt(eventID, 10)).Set(float64(depth))
}

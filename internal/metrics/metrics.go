// Package metrics exposes the counters served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TokensIssued counts attendance tokens written by the issuer.
	TokensIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "academy_tokens_issued_total",
		Help: "Attendance tokens issued, scheduled and on-demand.",
	})

	// Redemptions counts token redemptions by outcome
	// (ok, not_found, expired, already_marked, error).
	Redemptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "academy_redemptions_total",
		Help: "Token redemption attempts by outcome.",
	}, []string{"outcome"})

	// QuizAttempts counts quiz submissions by outcome
	// (ok, not_found, already_attempted, invalid, error).
	QuizAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "academy_quiz_attempts_total",
		Help: "Quiz attempt submissions by outcome.",
	}, []string{"outcome"})

	// EventsProcessed counts attendance events handled by the worker.
	EventsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "academy_attendance_events_processed_total",
		Help: "Attendance events consumed from the queue.",
	})
)

package loan

import (
	"errors"
	"time"

	"libraryapi/internal/apperr"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "library_loan_operations_total",
		Help: "Loan ledger operations by operation and result",
	}, []string{"operation", "result"})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "library_loan_operation_duration_seconds",
		Help:    "Time spent in one loan ledger transaction",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"operation"})
)

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperr.ErrConflict):
		return "conflict"
	case errors.Is(err, apperr.ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}

func observe(op string, err error, elapsed time.Duration) {
	operationsTotal.WithLabelValues(op, resultLabel(err)).Inc()
	operationDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

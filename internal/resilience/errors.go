// Package resilience provides retry with backoff for the database reads
// behind the signal collector.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
)

// TransientError wraps an error that is safe to retry.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError marks an error as retryable.
func NewTransientError(err error) *TransientError {
	return &TransientError{Err: err}
}

// Postgres error classes that are worth one more attempt: connection
// exceptions (08xxx), serialization/deadlock failures (40001/40P01), and
// admin shutdowns (57Pxx) during failovers.
func isTransientPgCode(code string) bool {
	switch {
	case strings.HasPrefix(code, "08"):
		return true
	case code == "40001", code == "40P01":
		return true
	case strings.HasPrefix(code, "57P"):
		return true
	default:
		return false
	}
}

// IsTransient returns true if the error (or any error in its chain) is a
// TransientError, a retryable Postgres error, or a network-level failure.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return isTransientPgCode(pgErr.Code)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String heuristics for errors wrapped by drivers or poolers.
	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"i/o timeout",
		"conn busy",
		"conn closed",
		"the database system is starting up",
		"the database system is shutting down",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

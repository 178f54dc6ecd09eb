package resilience

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsTransient_ExplicitTransientError(t *testing.T) {
	err := NewTransientError(errors.New("server overloaded"))
	if !IsTransient(err) {
		t.Error("expected TransientError to be transient")
	}
}

func TestIsTransient_WrappedTransientError(t *testing.T) {
	inner := NewTransientError(errors.New("conn busy"))
	wrapped := fmt.Errorf("collector: load statement: %w", inner)
	if !IsTransient(wrapped) {
		t.Error("expected wrapped TransientError to be transient")
	}
}

func TestIsTransient_PgErrorCodes(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"08006", true},  // connection_failure
		{"08001", true},  // sqlclient_unable_to_establish_sqlconnection
		{"40001", true},  // serialization_failure
		{"40P01", true},  // deadlock_detected
		{"57P01", true},  // admin_shutdown
		{"23505", false}, // unique_violation
		{"42703", false}, // undefined_column
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := &pgconn.PgError{Code: tt.code, Message: "boom"}
			if got := IsTransient(err); got != tt.want {
				t.Errorf("IsTransient(pg %s) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestIsTransient_StringPatterns(t *testing.T) {
	transient := []string{
		"read tcp: connection reset by peer",
		"write: broken pipe",
		"dial tcp: i/o timeout",
		"conn closed",
		"FATAL: the database system is starting up",
	}
	for _, msg := range transient {
		if !IsTransient(errors.New(msg)) {
			t.Errorf("expected %q to be transient", msg)
		}
	}
}

func TestIsTransient_PermanentErrors(t *testing.T) {
	permanent := []error{
		nil,
		errors.New("relation does not exist"),
		errors.New("syntax error at or near"),
		errors.New("permission denied for schema tax_health"),
	}
	for _, err := range permanent {
		if IsTransient(err) {
			t.Errorf("expected %v to be permanent", err)
		}
	}
}

func TestTransientError_Unwrap(t *testing.T) {
	inner := errors.New("root cause")
	te := NewTransientError(inner)
	if !errors.Is(te, inner) {
		t.Error("expected errors.Is to find the wrapped error")
	}
}

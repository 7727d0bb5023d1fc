// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Stage-level connectivity errors. Both are fatal for a pipeline run.
	ErrSourceUnavailable    = errors.New("source store unavailable")
	ErrWarehouseUnavailable = errors.New("warehouse unavailable")

	// ErrMissingDateDimension means a fact's date has no row in dim_date.
	// Fatal for full loads, skip-and-count for incremental loads.
	ErrMissingDateDimension = errors.New("missing date dimension entry")

	// ErrNotFound is returned for lookups with no matching row.
	ErrNotFound = errors.New("not found")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Stable error-kind tags reported in run results. These cross the caller
// boundary, so they must not change between releases.
const (
	KindSourceUnavailable    = "SourceUnavailable"
	KindWarehouseUnavailable = "WarehouseUnavailable"
	KindMissingDateDimension = "MissingDateDimension"
	KindValidation           = "ValidationError"
)

// ErrorKind maps an error to its stable taxonomy tag, or "" for nil.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSourceUnavailable):
		return KindSourceUnavailable
	case errors.Is(err, ErrWarehouseUnavailable):
		return KindWarehouseUnavailable
	case errors.Is(err, ErrMissingDateDimension):
		return KindMissingDateDimension
	default:
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			return KindValidation
		}
		return "Internal"
	}
}

// ValidationError is a per-row transform failure. Rows failing validation
// are skipped, counted, and logged; they never abort a run.
type ValidationError struct {
	Field         string
	Reason        string
	TransactionID int64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("transaction %d: invalid %s: %s", e.TransactionID, e.Field, e.Reason)
}

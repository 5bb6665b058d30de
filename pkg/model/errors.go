package model

import "errors"

var (
	// ErrInvalidMedication is returned when a medication fails validation
	ErrInvalidMedication = errors.New("invalid medication")
	// ErrPermissionDenied is returned by a notification service that may not deliver
	ErrPermissionDenied = errors.New("notification permission denied")
	// ErrStoreUnavailable wraps any failure of the underlying store
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("not found")
)

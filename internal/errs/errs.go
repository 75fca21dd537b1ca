// Package errs holds the sentinel errors shared across the service layers.
package errs

import "errors"

var (
	ErrRecordNotFound = errors.New("complaint not found")
	// ErrStatusFinal is returned when a complaint was already resolved or rejected.
	ErrStatusFinal   = errors.New("complaint status is already final")
	ErrInvalidStatus = errors.New("invalid status transition")
	ErrInvalidAspect = errors.New("unknown complaint aspect")
	ErrUnauthorized  = errors.New("caller is not the operator")
	ErrNoComplaint   = errors.New("conversation has no filed complaint")

	// ErrStoreLocked is returned when another process holds the record log.
	ErrStoreLocked = errors.New("record log is in use by another process")
	ErrReadOnly    = errors.New("record store is opened read-only")
)

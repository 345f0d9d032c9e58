package services

import "errors"

// Service-level errors
var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrRequestNotFound      = errors.New("certificate request not found")
	ErrReportNotFound       = errors.New("incident report not found")
	ErrAnnouncementNotFound = errors.New("announcement not found")

	// ErrForbidden covers acting on another account's records and
	// admin-only actions attempted by staff.
	ErrForbidden = errors.New("not allowed to perform this action")

	// ErrValidation wraps field-level input problems.
	ErrValidation = errors.New("validation failed")

	// ErrConcurrentUpdate means another writer changed the record first.
	ErrConcurrentUpdate = errors.New("request was updated by someone else, reload and try again")

	// ErrUnavailable marks a dependency that is missing or down.
	ErrUnavailable = errors.New("service temporarily unavailable")
)

package domain

import "errors"

var (
	ErrRouteNotFound     = errors.New("route not found")
	ErrDispatchNotFound  = errors.New("dispatch event not found")
	ErrStopNotFound      = errors.New("stop not found")
	ErrDuplicateDispatch = errors.New("route already dispatched for this date")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrDriverUnavailable = errors.New("driver unavailable on execution date")
	ErrForbidden         = errors.New("forbidden action")
	ErrValidation        = errors.New("invalid request")

	// ErrVersionConflict signals a lost optimistic-concurrency race on an
	// event write; callers re-read and retry.
	ErrVersionConflict = errors.New("dispatch event version conflict")
)

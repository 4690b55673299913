package domain

import "errors"

var (
	// ErrInvalidSortField signals a sort key outside the sortable allow-list.
	ErrInvalidSortField = errors.New("invalid sort field")
	// ErrInvalidPercentile signals a percentile target outside [0, 100] or unparseable.
	ErrInvalidPercentile = errors.New("invalid percentile")
	// ErrAuthenticationRequired signals a missing or expired store credential.
	ErrAuthenticationRequired = errors.New("authentication required")
	// ErrBackendQueryFailed signals a failed record-store query.
	ErrBackendQueryFailed = errors.New("backend query failed")
)

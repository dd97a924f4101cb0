package domain

import "errors"

var (
	// ErrValidation marks caller mistakes (bad input, unknown parameters).
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks lookups for records that do not exist locally.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable marks operations that failed because the backend or a
	// required local dependency cannot be reached.
	ErrUnavailable = errors.New("temporarily unavailable")

	// ErrCacheMiss marks cache reads for keys with no stored entry.
	ErrCacheMiss = errors.New("cache miss")
)

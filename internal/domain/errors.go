package domain

import "errors"

// ErrUnauthorized is returned by adapters when the API responds with HTTP 401.
// Callers can check for it using errors.Is.
var ErrUnauthorized = errors.New("unauthorized")

// ErrNotFound means the remote has no data for the requested identifiers.
// It is an empty state, not an application failure.
var ErrNotFound = errors.New("not found")

// ErrTransient marks failures caused by infrastructure (network errors, 5xx)
// that are worth retrying.
var ErrTransient = errors.New("transient failure")

// ErrInvalidQuery is returned when a search query is too short.
var ErrInvalidQuery = errors.New("invalid query")

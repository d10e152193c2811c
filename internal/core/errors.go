package core

import "errors"

var (
	// ErrIsolation marks a missing tenant scope. It is a programming error
	// and must never be recovered by defaulting a tenant.
	ErrIsolation = errors.New("tenant isolation violated")
	// ErrValidation marks empty or malformed input; the operation was a no-op.
	ErrValidation = errors.New("validation failed")
	// ErrParse marks model output that is not the expected JSON.
	ErrParse = errors.New("model output parse failed")
	// ErrPersistence marks a failed durable write or order creation.
	ErrPersistence = errors.New("persistence failed")
)

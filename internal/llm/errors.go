package llm

import "errors"

var (
	// ErrNoAPIKey indicates the model API key is not configured. Surfaced at
	// point of use; startup never fails on it.
	ErrNoAPIKey = errors.New("model api key not configured")

	// ErrModelUnavailable indicates the model endpoint is unreachable.
	ErrModelUnavailable = errors.New("model endpoint unavailable")

	// ErrTimeout indicates the model request exceeded the configured timeout.
	ErrTimeout = errors.New("model request timed out")

	// ErrInvalidOutput indicates the model response could not be parsed
	// into the expected structured format.
	ErrInvalidOutput = errors.New("invalid model output format")

	// ErrRetryExhausted indicates all retry attempts have been exhausted.
	ErrRetryExhausted = errors.New("model retry attempts exhausted")
)

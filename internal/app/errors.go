package app

import "errors"

var (
	// ErrInvalidCredentials is shown to end users; it does not say which of
	// email or password was wrong.
	ErrInvalidCredentials = errors.New("Incorrect email address or password")

	ErrMissingFields      = errors.New("full name, email and password required")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrEmailAlreadyExists = errors.New("email already exists")

	// ErrNotFound covers both missing records and records owned by someone else.
	ErrNotFound = errors.New("not found")

	ErrEmptyDocument        = errors.New("document has no text")
	ErrInvalidAttempt       = errors.New("invalid quiz attempt")
	ErrGeneratorUnavailable = errors.New("study generator not configured")
	// ErrGenerationFailed wraps any error coming back from the study generator.
	ErrGenerationFailed = errors.New("study generation failed")
)

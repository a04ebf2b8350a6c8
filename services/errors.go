package services

import "errors"

// Shared service errors; handlers map these onto HTTP statuses.
var (
	// Missing resources
	ErrNotFound       = errors.New("requested resource not found")
	ErrConfigNotFound = errors.New("bracket config not found")
	ErrMatchNotFound  = errors.New("bracket match not found")

	// Operations attempted out of sequence
	ErrInvalidState     = errors.New("operation not allowed in the current bracket state")
	ErrAlreadyGenerated = errors.New("matches have already been generated")

	// Result validation
	ErrInvalidScore = errors.New("invalid score")

	// Build preconditions
	ErrInsufficientEntrants = errors.New("not enough qualifying teams")

	// Authorization boundary for self-service scoring
	ErrForbidden = errors.New("operation not allowed for the current user")
)

package domain

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrInsufficientCredits    = errors.New("insufficient credits")
	ErrInvalidStateTransition = errors.New("invalid job state transition")
	ErrJobTerminal            = errors.New("job already terminal")
)

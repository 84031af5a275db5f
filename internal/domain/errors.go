package domain

import "errors"

// Domain errors for validation failures and build outcomes

var (
	// Case key errors
	ErrEmptyClientID = errors.New("client ID cannot be empty")
	ErrEmptyCaseID   = errors.New("case ID cannot be empty")

	// Scope and dimension errors
	ErrUnknownScope      = errors.New("unknown scope")
	ErrUnknownDimension  = errors.New("unknown dimension name")
	ErrEmptyDimensionSet = errors.New("effective dimension set is empty")
)

package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	ErrEmptyKey          = errors.New("key cannot be empty")
	ErrContactIDRequired = errors.New("contact id is required")
	ErrNilRecord         = errors.New("record is required")
)

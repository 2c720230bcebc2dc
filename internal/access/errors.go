package access

import "errors"

var (
	// ErrConfiguration marks a data-integrity problem upstream, such as a
	// user without a role.
	ErrConfiguration = errors.New("access: configuration error")
	// ErrUnknownCapability is returned for flag names outside the vocabulary.
	ErrUnknownCapability = errors.New("access: unknown capability")
)

// Package shared holds the sentinel errors every layer agrees on. HTTP
// handlers translate them through platform/httpx.
package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials covers unknown users, wrong passwords and
	// inactive accounts alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// NotFoundf describes the missing resource and wraps ErrNotFound.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

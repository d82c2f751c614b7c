package repository

import (
	"errors"
	"strings"
)

// Sentinel errors shared by all repositories. Callers branch on these with
// errors.Is; anything else is a storage-layer fault.
var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEntry = errors.New("duplicate entry")
	ErrInvalidInput   = errors.New("invalid input")
)

// isDuplicateKeyError matches unique violations across the sqlite and
// postgres drivers, which report them differently.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "duplicate key") ||
		strings.Contains(errStr, "UNIQUE constraint") ||
		strings.Contains(errStr, "23505") // PostgreSQL unique violation code
}

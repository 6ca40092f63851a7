package repository

import "errors"

// Sentinel errors shared by every storage backend. Callers match them
// with errors.Is and translate them into domain or transport errors.
var (
	ErrNotFound  = errors.New("repository: record not found")
	ErrDuplicate = errors.New("repository: unique constraint violated")
)

package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a key the reader does not hold.
	ErrNotFound = errors.New("not found")
	// ErrClosed reports use of a reader after Close.
	ErrClosed = errors.New("reader closed")
	// ErrLocked reports an archive already owned by another handle.
	ErrLocked = errors.New("archive locked by another process")
	// ErrSchemaMismatch reports an archive written with a different schema.
	ErrSchemaMismatch = errors.New("schema version mismatch")
)

// KeyError names the missing series or table.
type KeyError struct {
	Kind string
	Key  string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
}

func (e *KeyError) Unwrap() error { return ErrNotFound }

// ErrorKind classifies the error for CLI exit handling.
func (e *KeyError) ErrorKind() string { return "not_found" }

func notFound(kind, key string) error {
	return &KeyError{Kind: kind, Key: key}
}

package arcontent

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the Service. Match them with errors.Is.
var (
	// ErrInvalidName indicates a name contains a character outside [-_.A-Za-z0-9]
	ErrInvalidName = errors.New("invalid name")

	// ErrInvalidID indicates an id string is not a non-negative integer
	ErrInvalidID = errors.New("invalid id")

	// ErrNotFound indicates a well-formed id references no row.
	// Repositories return it as-is for missing rows.
	ErrNotFound = errors.New("not found")

	// ErrInvalidParameter indicates a structurally invalid payload
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInvalidState indicates a request violates a cross-field invariant
	ErrInvalidState = errors.New("invalid state")

	// ErrIOFailure indicates the blob or metadata store failed. The underlying
	// cause is never part of the message.
	ErrIOFailure = errors.New("storage failure")
)

// Error is returned by every Service operation.
type Error struct {
	Op     string
	Kind   error
	Detail string
	cause  error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Detail)
}

// Unwrap exposes the kind only, so the low-level cause never reaches callers
// through errors.As or %v.
func (e *Error) Unwrap() error {
	return e.Kind
}

// Cause returns the internal failure behind the error, for server-side logging.
func (e *Error) Cause() error {
	return e.cause
}

func newError(op string, kind error, detail string) *Error {
	return &Error{Op: op, Kind: kind, Detail: detail}
}

func wrapError(op string, kind error, detail string, cause error) *Error {
	return &Error{Op: op, Kind: kind, Detail: detail, cause: cause}
}

// ioFailure hides the cause behind a generic message.
func ioFailure(op string, cause error) *Error {
	return wrapError(op, ErrIOFailure, "write failed", cause)
}

// StorageError represents an error related to blob storage operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ErrBlobNotFound is returned by blob stores reading or deleting a missing blob.
var ErrBlobNotFound = errors.New("blob not found")

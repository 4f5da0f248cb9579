package signing

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrAlreadySigned is returned when a second additional-data signature is
// submitted for the same (document, user) pair.
var ErrAlreadySigned = errors.New("document already signed by this user")

// NotFoundError reports a missing document, file or manifest.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ContentMismatchError reports that a signature does not cover the expected
// data-for-sign bytes. Both values are base64 hash encodings, safe to log.
type ContentMismatchError struct {
	FileID   uuid.UUID
	Expected string
	Actual   string
}

func (e *ContentMismatchError) Error() string {
	return fmt.Sprintf("signed content mismatch for file %s: expected %q, got %q",
		e.FileID, e.Expected, e.Actual)
}

// IdentityMismatchError reports a disagreement between the certificate
// identity and the authenticated user. Field names which attribute differed.
type IdentityMismatchError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *IdentityMismatchError) Error() string {
	return fmt.Sprintf("signer identity mismatch on %s: expected %q, got %q",
		e.Field, e.Expected, e.Actual)
}

// OrderViolationError reports a signature recorded out of the configured
// signer order. This is a consistency fault, surfaced and never corrected.
type OrderViolationError struct {
	Position         int
	ExpectedSignerID uuid.UUID
	ActualSignerID   uuid.UUID
}

func (e *OrderViolationError) Error() string {
	return fmt.Sprintf("signer order violated at position %d: expected %s, got %s",
		e.Position, e.ExpectedSignerID, e.ActualSignerID)
}

// IntegrityError reports a manifest that cannot be read back after creation.
// Signing must not proceed against an unreadable manifest.
type IntegrityError struct {
	ManifestFileID uuid.UUID
	Err            error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("manifest %s unreadable after creation: %v", e.ManifestFileID, e.Err)
}

func (e *IntegrityError) Unwrap() error { return e.Err }

// InvalidStateError reports missing required identity fields or an otherwise
// unusable request state.
type InvalidStateError struct {
	Reason string
}

func (e *InvalidStateError) Error() string {
	return "invalid state: " + e.Reason
}

// UpstreamError wraps a crypto-provider, storage or notification failure.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s provider unavailable: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

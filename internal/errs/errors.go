// Package errs provides the unified error type used across all of seqbrowse.
//
// Every subsystem (filestore, catalog, report, server, …) wraps its native
// errors into *errs.Error before returning them to callers. Callers use the
// Is* predicates to handle errors without importing driver-specific packages.
//
// Usage:
//
//	// In a driver — wrap native errors, preserving the provider code:
//	return errs.WrapCode(errs.ErrKindNotFound, "NoSuchKey", "object missing", s3Err)
//
//	// In a handler — check error kind:
//	if errs.IsNotFound(err) {
//	    http.Error(w, "not found", http.StatusNotFound)
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing provider-specific codes.
// The filestore driver maps native store errors to one of these kinds; the
// report package produces the archive-specific kinds directly.
type ErrKind int

const (
	ErrKindUnknown          ErrKind = iota
	ErrKindNotFound                 // no object, no bucket, no project
	ErrKindConnectionFailed         // cannot reach the store
	ErrKindTimeout                  // context deadline / cancellation
	ErrKindStoreFailed              // listing / download operation error
	ErrKindInvalidInput             // bad arguments from the caller
	ErrKindPermissionDenied         // access denied / auth failure
	ErrKindTooLarge                 // archive exceeds the configured size ceiling
	ErrKindReportNotFound           // extracted archive contains no report HTML
	ErrKindMalformedArchive         // byte stream is not a valid zip archive
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindStoreFailed:
		return "store_failed"
	case ErrKindInvalidInput:
		return "invalid_input"
	case ErrKindPermissionDenied:
		return "permission_denied"
	case ErrKindTooLarge:
		return "too_large"
	case ErrKindReportNotFound:
		return "report_not_found"
	case ErrKindMalformedArchive:
		return "malformed_archive"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all seqbrowse subsystems.
// Drivers produce it; callers inspect it via the Is* predicates below.
// Code carries the provider-reported error code verbatim (e.g. "NoSuchKey",
// "AccessDenied") so the operator sees exactly what the store said.
type Error struct {
	Kind    ErrKind
	Code    string
	Message string
	Cause   error // original driver-level error, preserved for logging
}

func (e *Error) Error() string {
	switch {
	case e.Code != "" && e.Cause != nil:
		return fmt.Sprintf("[%s/%s] %s: %v", e.Kind, e.Code, e.Message, e.Cause)
	case e.Code != "":
		return fmt.Sprintf("[%s/%s] %s", e.Kind, e.Code, e.Message)
	case e.Cause != nil:
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	default:
		return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	}
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// WrapCode creates an *Error that additionally records the provider's own
// error code.
func WrapCode(kind ErrKind, code, msg string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Cause: cause}
}

// --- Predicates ---

// IsNotFound reports whether err represents a "not found" result
// (missing object, unknown bucket, empty project, …).
func IsNotFound(err error) bool {
	return kindOf(err) == ErrKindNotFound
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return kindOf(err) == ErrKindTimeout
}

// IsConnectionFailed reports whether err is a connectivity failure.
func IsConnectionFailed(err error) bool {
	return kindOf(err) == ErrKindConnectionFailed
}

// IsStoreFailed reports whether err is a store operation failure
// (listing error, download I/O error, …).
func IsStoreFailed(err error) bool {
	return kindOf(err) == ErrKindStoreFailed
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return kindOf(err) == ErrKindInvalidInput
}

// IsPermissionDenied reports whether err is an access control failure.
func IsPermissionDenied(err error) bool {
	return kindOf(err) == ErrKindPermissionDenied
}

// IsTooLarge reports whether err means an archive exceeded the size ceiling.
func IsTooLarge(err error) bool {
	return kindOf(err) == ErrKindTooLarge
}

// IsReportNotFound reports whether err means an archive held no report HTML.
func IsReportNotFound(err error) bool {
	return kindOf(err) == ErrKindReportNotFound
}

// IsMalformedArchive reports whether err means the bytes were not a valid archive.
func IsMalformedArchive(err error) bool {
	return kindOf(err) == ErrKindMalformedArchive
}

// CodeOf extracts the provider error code from any error in the chain.
// Returns "" when the error carries no code.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// kindOf extracts the ErrKind from any error in the chain.
func kindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}

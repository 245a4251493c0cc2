// Package errors provides structured error handling with i18n support.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Lookup errors
	CodeNotFound Code = "NOT_FOUND"
	CodeMismatch Code = "PARENT_MISMATCH"

	// Authorization errors
	CodeForbidden Code = "FORBIDDEN"

	// State errors
	CodeConflict Code = "CONFLICT"

	// Input errors
	CodeInvalidInput Code = "INVALID_INPUT"

	// Upstream errors
	CodeUpstreamUnavailable Code = "UPSTREAM_UNAVAILABLE"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodeNotFound:
		return codes.NotFound

	// Mismatch means the entity exists but under a different parent; the
	// request shape is wrong rather than the resource missing.
	case CodeMismatch, CodeInvalidInput:
		return codes.InvalidArgument

	case CodeForbidden:
		return codes.PermissionDenied

	case CodeConflict:
		return codes.FailedPrecondition

	case CodeUpstreamUnavailable:
		return codes.Unavailable

	default:
		return codes.Internal
	}
}

// Package apperr defines the application failure model and its classifier.
//
// A Failure is an immutable, classified description of a fault raised anywhere
// during request handling: hook business rules, authorization outcomes,
// missing resources, referential integrity, or storage-layer errors. Failures
// are created at the point of fault and consumed exactly once by the
// classifier, which maps every recognized kind to a deterministic, client-safe
// HTTP response (see classify.go).
//
// Failures implement the error interface and travel through ordinary error
// returns. Callers recover them with errors.As; anything that is not a
// Failure degrades to the generic internal-error response.
package apperr

import (
	"fmt"
	"time"
)

// Kind discriminates the closed set of recognized failure categories.
type Kind string

// Recognized failure kinds. The classifier maps each to a fixed
// status/code/detail policy; unrecognized faults fall through to KindUnknown.
const (
	KindValidation         Kind = "validation"
	KindParse              Kind = "parse"
	KindAuthMissing        Kind = "auth_missing"
	KindAuthFailed         Kind = "auth_failed"
	KindPermissionDenied   Kind = "permission_denied"
	KindNotFound           Kind = "not_found"
	KindMethodNotAllowed   Kind = "method_not_allowed"
	KindNotAcceptable      Kind = "not_acceptable"
	KindUnsupportedMedia   Kind = "unsupported_media"
	KindThrottled          Kind = "throttled"
	KindGenericAPIError    Kind = "generic_api_error"
	KindObjectMissing      Kind = "object_missing"
	KindMultipleObjects    Kind = "multiple_objects"
	KindCorePermission     Kind = "core_permission_denied"
	KindBadRequest         Kind = "bad_request"
	KindSuspiciousOp       Kind = "suspicious_operation"
	KindFieldMissing       Kind = "field_missing"
	KindReferentialBlock   Kind = "referential_block"
	KindIntegrityViolation Kind = "integrity_violation"
	KindDataInvalid        Kind = "data_invalid"
	KindStorageUnavailable Kind = "storage_unavailable"
	KindStorageError       Kind = "storage_error"
	KindUnknown            Kind = "unknown"
)

// Failure is an immutable value describing one classified fault.
//
// Details holds client-visible structured detail: either a field→messages map
// (validation) or a plain sequence. Extra carries machine-readable metadata
// that is merged into the error envelope (e.g. retry_after, dependents).
// Status optionally overrides the default HTTP status for kinds that carry
// their own (auth errors, generic API errors). Code optionally overrides the
// default machine code for generic API errors.
type Failure struct {
	Kind    Kind
	Message string
	Details any
	Extra   map[string]any
	Status  int
	Code    string

	cause error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.cause != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.cause)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Unwrap exposes the underlying cause, if any, for errors.Is/As chains.
func (f *Failure) Unwrap() error { return f.cause }

// New constructs a Failure of the given kind with a human-readable message.
func New(kind Kind, message string) *Failure {
	return &Failure{Kind: kind, Message: message}
}

// Wrap constructs a Failure that records err as its underlying cause.
// The cause is never shown to clients; the classifier may log it.
func Wrap(kind Kind, message string, err error) *Failure {
	return &Failure{Kind: kind, Message: message, cause: err}
}

// Validation reports invalid input with per-field error messages.
func Validation(fields map[string][]string) *Failure {
	return &Failure{Kind: KindValidation, Message: "Invalid input.", Details: fields}
}

// Parse reports a malformed request body (bad JSON and the like).
func Parse(detail string) *Failure {
	return &Failure{Kind: KindParse, Message: "Malformed request body.", Details: []string{detail}}
}

// AuthMissing reports a request with no authentication credentials.
func AuthMissing() *Failure {
	return &Failure{Kind: KindAuthMissing, Message: "Authentication credentials were not provided."}
}

// AuthFailed reports rejected authentication credentials.
func AuthFailed(message string) *Failure {
	if message == "" {
		message = "Incorrect authentication credentials."
	}
	return &Failure{Kind: KindAuthFailed, Message: message}
}

// PermissionDenied reports an authenticated caller lacking permission.
// An empty message falls back to a generic denial.
func PermissionDenied(message string) *Failure {
	if message == "" {
		message = "You do not have permission to perform this action."
	}
	return &Failure{Kind: KindPermissionDenied, Message: message}
}

// NotFound reports a missing resource addressed by the request.
func NotFound(message string) *Failure {
	if message == "" {
		message = "The requested resource was not found."
	}
	return &Failure{Kind: KindNotFound, Message: message}
}

// ObjectMissing reports a low-level entity-absent signal, translated by the
// safe-lookup wrapper in the pipeline. It classifies identically to NotFound.
func ObjectMissing(message string) *Failure {
	if message == "" {
		message = "Object not found."
	}
	return &Failure{Kind: KindObjectMissing, Message: message}
}

// MultipleObjects reports a single-object query that matched several rows.
func MultipleObjects(err error) *Failure {
	return Wrap(KindMultipleObjects, "Multiple objects found where only one was expected.", err)
}

// MethodNotAllowed reports an HTTP verb the route does not support.
func MethodNotAllowed() *Failure {
	return &Failure{Kind: KindMethodNotAllowed, Message: "Method not allowed."}
}

// NotAcceptable reports an Accept header the server cannot satisfy.
func NotAcceptable() *Failure {
	return &Failure{Kind: KindNotAcceptable, Message: "Could not satisfy the request Accept header."}
}

// UnsupportedMedia reports a request body content type the server rejects.
func UnsupportedMedia(contentType string) *Failure {
	return &Failure{
		Kind:    KindUnsupportedMedia,
		Message: fmt.Sprintf("Unsupported media type %q in request.", contentType),
	}
}

// Throttled reports a rate-limited request. When retryAfter is positive it is
// surfaced to the client as a retry_after hint in whole seconds.
func Throttled(retryAfter time.Duration) *Failure {
	f := &Failure{Kind: KindThrottled, Message: "Request throttled. Try again later."}
	if retryAfter > 0 {
		secs := int(retryAfter.Round(time.Second) / time.Second)
		if secs < 1 {
			secs = 1
		}
		f.Extra = map[string]any{"retry_after": secs}
	}
	return f
}

// GenericAPI reports an API-level fault that carries its own status and
// machine code, for custom conditions outside the named kinds.
func GenericAPI(status int, code, message string) *Failure {
	return &Failure{Kind: KindGenericAPIError, Message: message, Status: status, Code: code}
}

// BadRequest reports a request the server refuses to process.
func BadRequest(message string) *Failure {
	if message == "" {
		message = "Bad request."
	}
	return &Failure{Kind: KindBadRequest, Message: message}
}

// FieldMissing reports a reference to a field that does not exist.
func FieldMissing(field string) *Failure {
	return &Failure{
		Kind:    KindFieldMissing,
		Message: "A referenced field does not exist.",
		Details: []string{field},
	}
}

// ReferentialBlock reports a delete blocked by dependent records. The full
// dependent list is retained here; the classifier caps what clients see.
func ReferentialBlock(dependents []string) *Failure {
	return &Failure{
		Kind:    KindReferentialBlock,
		Message: "Cannot delete this object because it is referenced by other records.",
		Extra:   map[string]any{"dependents": dependents},
	}
}

// Integrity reports a violated database integrity constraint.
func Integrity(err error) *Failure {
	return Wrap(KindIntegrityViolation, "A database integrity constraint was violated.", err)
}

// DataInvalid reports data rejected by the database schema.
func DataInvalid(err error) *Failure {
	return Wrap(KindDataInvalid, "The provided data is invalid for the database schema.", err)
}

// StorageUnavailable reports a transient database operational fault.
func StorageUnavailable(err error) *Failure {
	return Wrap(KindStorageUnavailable, "A database operational error occurred. Please try again later.", err)
}

// Storage reports an unexpected database error.
func Storage(err error) *Failure {
	return Wrap(KindStorageError, "An unexpected database error occurred.", err)
}

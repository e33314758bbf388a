// Classify is the single top-level translation from any error raised during
// request handling to a deterministic, client-safe response. It is a total
// function: every error value, including wrapped faults from external
// collaborators that are not Failures at all, yields exactly one Response and
// never panics.
//
// The mapping is an ordered rule chain; the order below is authoritative and
// is preserved exactly even where kinds look like they could be merged,
// because several categories are narrower instances of broader catch-alls
// evaluated later (everything specific before generic_api_error, which itself
// precedes the unconditional fallback).
//
// Classification has one side effect: each branch emits a log entry at a
// severity proportional to operator-actionability (debug for expected client
// errors, warn for authorization and integrity issues, error for storage
// faults and the unknown fallback, zerolog's highest non-terminating level).
// Logging never changes the returned response.

package apperr

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// maxDependents caps the dependent-object identifiers exposed to clients on
// referential-block responses.
const maxDependents = 10

// Response is the classified, wire-ready error result.
//
// Code is a stable machine identifier, one-to-one with the failure kind
// except for the generic/unknown catch-alls, which are shared across several
// unmapped causes.
type Response struct {
	Code       string         `json:"code"`
	HTTPStatus int            `json:"http_status"`
	Message    string         `json:"message"`
	Details    any            `json:"details,omitempty"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// Classifier converts failures into responses. The zero value is usable;
// SafeDBErrors suppresses raw storage-error text from client-visible
// messages. Classifier is immutable after construction and safe for
// concurrent use.
type Classifier struct {
	// SafeDBErrors replaces integrity/data fault messages with generic text.
	SafeDBErrors bool

	log zerolog.Logger
}

// NewClassifier constructs a Classifier logging through the global logger.
func NewClassifier(safeDBErrors bool) Classifier {
	return Classifier{SafeDBErrors: safeDBErrors, log: log.Logger}
}

// WithLogger returns a copy of the classifier that logs through lg.
func (cl Classifier) WithLogger(lg zerolog.Logger) Classifier {
	cl.log = lg
	return cl
}

// Classify maps err to its Response. See the package comment for the rule
// order contract.
func (cl Classifier) Classify(err error) Response {
	var f *Failure
	if !errors.As(err, &f) || f == nil {
		return cl.unknown(err)
	}

	switch f.Kind {
	case KindValidation:
		cl.log.Debug().Interface("details", f.Details).Msg("validation error")
		return Response{Code: "validation_error", HTTPStatus: http.StatusBadRequest, Message: f.Message, Details: f.Details}

	case KindParse:
		cl.log.Debug().Interface("details", f.Details).Msg("parse error")
		return Response{Code: "parse_error", HTTPStatus: http.StatusBadRequest, Message: f.Message, Details: f.Details}

	case KindAuthMissing, KindAuthFailed:
		cl.log.Debug().Str("kind", string(f.Kind)).Str("message", f.Message).Msg("authentication error")
		status := f.Status
		if status == 0 {
			status = http.StatusUnauthorized
		}
		return Response{Code: "authentication_error", HTTPStatus: status, Message: f.Message}

	case KindPermissionDenied, KindCorePermission:
		cl.log.Warn().Str("kind", string(f.Kind)).Str("message", f.Message).Msg("permission denied")
		return Response{Code: "permission_denied", HTTPStatus: http.StatusForbidden, Message: f.Message}

	case KindNotFound, KindObjectMissing:
		cl.log.Debug().Str("kind", string(f.Kind)).Str("message", f.Message).Msg("not found")
		return Response{Code: "not_found", HTTPStatus: http.StatusNotFound, Message: f.Message}

	case KindMultipleObjects:
		cl.log.Error().Err(f.cause).Msg("multiple objects returned")
		return Response{Code: "multiple_objects", HTTPStatus: http.StatusInternalServerError, Message: f.Message}

	case KindMethodNotAllowed:
		cl.log.Debug().Msg("method not allowed")
		return Response{Code: "method_not_allowed", HTTPStatus: http.StatusMethodNotAllowed, Message: f.Message}

	case KindNotAcceptable:
		cl.log.Debug().Msg("not acceptable")
		return Response{Code: "not_acceptable", HTTPStatus: http.StatusNotAcceptable, Message: f.Message}

	case KindUnsupportedMedia:
		cl.log.Debug().Str("message", f.Message).Msg("unsupported media type")
		return Response{Code: "unsupported_media_type", HTTPStatus: http.StatusUnsupportedMediaType, Message: f.Message}

	case KindThrottled:
		cl.log.Debug().Interface("extra", f.Extra).Msg("request throttled")
		return Response{Code: "throttled", HTTPStatus: http.StatusTooManyRequests, Message: f.Message, Extra: f.Extra}

	case KindGenericAPIError:
		// Catch-all for custom API faults carrying their own status and code.
		cl.log.Warn().Int("status", f.Status).Str("code", f.Code).Str("message", f.Message).Msg("unhandled api error")
		status, code := f.Status, f.Code
		if status == 0 {
			status = http.StatusInternalServerError
		}
		if code == "" {
			code = "api_error"
		}
		return Response{Code: code, HTTPStatus: status, Message: f.Message}

	case KindBadRequest, KindSuspiciousOp:
		cl.log.Warn().Str("kind", string(f.Kind)).Str("message", f.Message).Msg("suspicious operation")
		return Response{Code: "bad_request", HTTPStatus: http.StatusBadRequest, Message: "Bad request."}

	case KindFieldMissing:
		cl.log.Error().Interface("details", f.Details).Msg("field does not exist")
		return Response{Code: "field_does_not_exist", HTTPStatus: http.StatusBadRequest, Message: f.Message}

	case KindReferentialBlock:
		cl.log.Warn().Interface("dependents", f.Extra["dependents"]).Msg("delete blocked by related objects")
		return Response{
			Code:       "protected_object",
			HTTPStatus: http.StatusConflict,
			Message:    f.Message,
			Details:    map[string]any{"dependents": capDependents(f.Extra)},
		}

	case KindIntegrityViolation:
		cl.log.Error().Err(f.cause).Msg("integrity error")
		return Response{Code: "integrity_error", HTTPStatus: http.StatusConflict, Message: cl.dbMessage(f)}

	case KindDataInvalid:
		cl.log.Error().Err(f.cause).Msg("data error")
		return Response{Code: "data_error", HTTPStatus: http.StatusBadRequest, Message: cl.dbMessage(f)}

	case KindStorageUnavailable:
		// Always a generic message, regardless of SafeDBErrors.
		cl.log.Error().Stack().Err(f.cause).Msg("db operational error")
		return Response{Code: "db_operational_error", HTTPStatus: http.StatusServiceUnavailable, Message: f.Message}

	case KindStorageError:
		cl.log.Error().Stack().Err(f.cause).Msg("db error")
		return Response{Code: "db_error", HTTPStatus: http.StatusInternalServerError, Message: f.Message}
	}

	return cl.unknown(err)
}

// unknown is the unconditional fallback: full detail goes to the log, never
// to the client.
func (cl Classifier) unknown(err error) Response {
	cl.log.Error().Stack().Err(err).Msg("unhandled exception")
	return Response{
		Code:       "internal_server_error",
		HTTPStatus: http.StatusInternalServerError,
		Message:    "An unexpected internal error occurred.",
	}
}

// dbMessage returns the client-visible message for integrity/data faults.
// With SafeDBErrors set (the default posture) the raw database text is
// replaced by the generic constructor message.
func (cl Classifier) dbMessage(f *Failure) string {
	if cl.SafeDBErrors || f.cause == nil {
		return f.Message
	}
	return f.cause.Error()
}

// capDependents extracts and truncates the dependents list from extra
// metadata to at most maxDependents entries.
func capDependents(extra map[string]any) []string {
	deps, _ := extra["dependents"].([]string)
	if len(deps) > maxDependents {
		deps = deps[:maxDependents]
	}
	if deps == nil {
		deps = []string{}
	}
	return deps
}

package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeInvalidAdjustment Code = "INVALID_ADJUSTMENT"
	CodeQuantityExceeded  Code = "QUANTITY_EXCEEDED"
	CodeMissingRequired   Code = "MISSING_REQUIRED"
	CodeUnsettledBalance  Code = "UNSETTLED_BALANCE"
	CodeNotFound          Code = "NOT_FOUND"
	CodeConflict          Code = "CONFLICT"
	CodeStateConflict     Code = "STATE_CONFLICT"
	CodeIdempotency       Code = "IDEMPOTENCY_KEY_REUSED"
	CodeInternal          Code = "INTERNAL_ERROR"
	CodePersistence       Code = "PERSISTENCE_FAILURE"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

func meta(status int, retryable bool, public string, details bool) Metadata {
	return Metadata{HTTPStatus: status, Retryable: retryable, PublicMessage: public, DetailsAllowed: details}
}

// Only server-side failures are worth retrying unchanged.
var metadataByCode = map[Code]Metadata{
	CodeValidation:        meta(http.StatusBadRequest, false, "validation failed", true),
	CodeInvalidAdjustment: meta(http.StatusBadRequest, false, "invalid discount or surcharge", true),
	CodeQuantityExceeded:  meta(http.StatusUnprocessableEntity, false, "complement quantity exceeded", true),
	CodeMissingRequired:   meta(http.StatusUnprocessableEntity, false, "required complement missing", true),
	CodeUnsettledBalance:  meta(http.StatusConflict, false, "order has an unsettled balance", true),
	CodeNotFound:          meta(http.StatusNotFound, false, "resource not found", false),
	CodeConflict:          meta(http.StatusConflict, false, "conflict detected", false),
	CodeStateConflict:     meta(http.StatusUnprocessableEntity, false, "state transition disallowed", true),
	CodeIdempotency:       meta(http.StatusConflict, false, "idempotency key reused", true),
	CodeInternal:          meta(http.StatusInternalServerError, true, "internal server error", false),
	CodePersistence:       meta(http.StatusServiceUnavailable, true, "persistence unavailable", true),
}

// Known reports whether code is one of the codes declared above.
func Known(code Code) bool {
	_, ok := metadataByCode[code]
	return ok
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// CodeForStatus maps an HTTP status returned by a remote backend onto a local code.
func CodeForStatus(status int) Code {
	switch {
	case status == http.StatusNotFound:
		return CodeNotFound
	case status == http.StatusConflict:
		return CodeConflict
	case status == http.StatusBadRequest:
		return CodeValidation
	case status == http.StatusUnprocessableEntity:
		return CodeStateConflict
	default:
		return CodePersistence
	}
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether any typed error in err's chain carries code, so a NOT_FOUND wrapped
// as PERSISTENCE_FAILURE still answers for both.
func IsCode(err error, code Code) bool {
	for typed := As(err); typed != nil; typed = As(typed.cause) {
		if typed.code == code {
			return true
		}
	}
	return false
}

package dto

import "net/http"

// Envelope error codes, ERR_<DESCRIPTION>
const (
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeUpstream means the backend origin could not be reached
	ErrCodeUpstream = "ERR_UPSTREAM_UNAVAILABLE"
	// ErrCodeUnavailable means a local dependency (store, broker) is down
	ErrCodeUnavailable = "ERR_SERVICE_UNAVAILABLE"

	ErrCodeValidation   = "ERR_VALIDATION"
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
	ErrCodeBodyTooLarge = "ERR_BODY_TOO_LARGE"

	ErrCodeUnauthorized       = "ERR_UNAUTHORIZED"
	ErrCodeInvalidCredentials = "ERR_INVALID_CREDENTIALS"

	ErrCodeNotFound      = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	ErrCodeConflict      = "ERR_CONFLICT"
	ErrCodeInvalidState  = "ERR_INVALID_STATE"
)

var statusByCode = map[string]int{
	ErrCodeInternal:    http.StatusInternalServerError,
	ErrCodeUpstream:    http.StatusInternalServerError,
	ErrCodeUnavailable: http.StatusServiceUnavailable,

	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
	ErrCodeBodyTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeInvalidCredentials: http.StatusUnauthorized,

	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,
	ErrCodeConflict:      http.StatusConflict,
	ErrCodeInvalidState:  http.StatusUnprocessableEntity,
}

// domainCodes maps shared.DomainError codes onto envelope codes
var domainCodes = map[string]string{
	"NOT_FOUND":          ErrCodeNotFound,
	"ALREADY_EXISTS":     ErrCodeAlreadyExists,
	"INVALID_INPUT":      ErrCodeInvalidInput,
	"INVALID_STATE":      ErrCodeInvalidState,
	"UNAUTHORIZED":       ErrCodeUnauthorized,
	"UNAVAILABLE":        ErrCodeUnavailable,
	"VALIDATION_ERROR":   ErrCodeValidation,
	"BAD_REQUEST":        ErrCodeBadRequest,
	"INTERNAL_ERROR":     ErrCodeInternal,
	"PURCHASE_NOT_FOUND": ErrCodeNotFound,
	"INVALID_STATUS":     ErrCodeInvalidInput,
	"INVALID_TRANSITION": ErrCodeInvalidState,
	"CONCURRENT_UPDATE":  ErrCodeConflict,
}

// GetHTTPStatus returns the status for an envelope code, 500 when unknown
func GetHTTPStatus(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// NormalizeErrorCode converts a domain error code to its envelope code.
// Envelope codes and unknown codes are returned unchanged.
func NormalizeErrorCode(code string) string {
	if mapped, ok := domainCodes[code]; ok {
		return mapped
	}
	return code
}

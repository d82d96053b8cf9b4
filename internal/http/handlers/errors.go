// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes give clients a stable, machine-readable taxonomy next to the
// human-readable message. They are lowercase snake_case and map one-to-one
// onto the service error kinds (see failErr in response.go).
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "validation_failed",
//	  "field": "email",
//	  "message": "email format is invalid"
//	}
package handlers

const (
	ErrCodeBadRequest         = "bad_request"
	ErrCodeValidation         = "validation_failed"
	ErrCodeUnauthorized       = "unauthorized"
	ErrCodeForbidden          = "forbidden"
	ErrCodeNotFound           = "not_found"
	ErrCodeConflict           = "conflict"
	ErrCodeRateLimited        = "too_many_requests"
	ErrCodeStorageUnavailable = "storage_unavailable"
	ErrCodeInternal           = "internal_error"
	ErrCodeMethodNotAllowed   = "method_not_allowed"
)

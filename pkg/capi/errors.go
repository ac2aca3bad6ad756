package capi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError represents a single error reported by the Cloud Controller.
// Both wire generations decode into it: v3 fills Title and Detail directly,
// v2 maps error_code to Title and description to Detail.
type APIError struct {
	Code   int    `json:"code"   yaml:"code"`
	Title  string `json:"title"  yaml:"title"`
	Detail string `json:"detail" yaml:"detail"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s (code: %d)", e.Title, e.Detail, e.Code)
}

// ResponseError is a non-2xx response from the API.
type ResponseError struct {
	StatusCode int        `json:"-"`
	Errors     []APIError `json:"errors"`
}

// Error implements the error interface for ResponseError.
func (e *ResponseError) Error() string {
	switch len(e.Errors) {
	case 0:
		if e.StatusCode != 0 {
			return fmt.Sprintf("unexpected status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
		}

		return "unknown error"
	case 1:
		return e.Errors[0].Error()
	default:
		return fmt.Sprintf("multiple errors: %v", e.Errors)
	}
}

// FirstError returns the first error or nil.
func (e *ResponseError) FirstError() *APIError {
	if len(e.Errors) > 0 {
		return &e.Errors[0]
	}

	return nil
}

// NotFoundError reports that a required lookup matched nothing.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' not found", e.Kind, e.Key)
}

// Unwrap lets errors.Is(err, ErrResourceNotFound) match.
func (e *NotFoundError) Unwrap() error {
	return ErrResourceNotFound
}

// Common error codes.
const (
	ErrorCodeNotFound            = 10010
	ErrorCodeNotAuthenticated    = 10002
	ErrorCodeNotAuthorized       = 10003
	ErrorCodeUnprocessableEntity = 10008
	ErrorCodeServiceUnavailable  = 10001
	ErrorCodeBadRequest          = 10005
	ErrorCodeTooManyRequests     = 10013
)

// Common static errors that can be wrapped with context.
var (
	ErrResourceNotFound         = errors.New("resource not found")
	ErrIncompatibleSchema       = errors.New("incompatible schema")
	ErrUnsupportedAPIVersion    = errors.New("operation not supported by this API version")
	ErrUnknownAPIVersion        = errors.New("unknown API version")
	ErrConfigRequired           = errors.New("config is required")
	ErrInvalidConfig            = errors.New("invalid config")
	ErrSkipTLSOnlyInDev         = errors.New("skipTLS is only allowed in development environments")
	ErrRootInfoRequestFailed    = errors.New("root info request failed")
	ErrNoUAAOrLoginURL          = errors.New("no UAA or login URL found in API root response")
	ErrStaticTokenCannotRefresh = errors.New("static token cannot be refreshed")
	ErrNotAuthenticated         = errors.New("not authenticated")
	ErrJobFailed                = errors.New("job failed")
	ErrJobTimeout               = errors.New("job polling timed out")
	ErrMalformedResponse        = errors.New("malformed response")
	ErrInvalidCredentials       = errors.New("credentials rejected by the authorization server")
)

// v2Error is the entity-envelope generation error body.
type v2Error struct {
	Code        int    `json:"code"`
	Description string `json:"description"`
	ErrorCode   string `json:"error_code"`
}

// ParseResponseError decodes an error body of either wire generation.
// A body that matches neither shape still yields a ResponseError carrying the status.
func ParseResponseError(statusCode int, data []byte) *ResponseError {
	errResp := &ResponseError{StatusCode: statusCode}

	var v3 struct {
		Errors []APIError `json:"errors"`
	}
	if err := json.Unmarshal(data, &v3); err == nil && len(v3.Errors) > 0 {
		errResp.Errors = v3.Errors

		return errResp
	}

	var v2 v2Error
	if err := json.Unmarshal(data, &v2); err == nil && (v2.ErrorCode != "" || v2.Description != "") {
		errResp.Errors = []APIError{{Code: v2.Code, Title: v2.ErrorCode, Detail: v2.Description}}

		return errResp
	}

	if body := strings.TrimSpace(string(data)); body != "" {
		const maxDetail = 256
		if len(body) > maxDetail {
			body = body[:maxDetail]
		}

		errResp.Errors = []APIError{{Title: http.StatusText(statusCode), Detail: body}}
	}

	return errResp
}

// StatusCode extracts the HTTP status from err, or 0 if err carries none.
func StatusCode(err error) int {
	errResp := &ResponseError{}
	if errors.As(err, &errResp) {
		return errResp.StatusCode
	}

	return 0
}

func hasCode(err error, status, code int) bool {
	errResp := &ResponseError{}
	if errors.As(err, &errResp) {
		if errResp.StatusCode == status {
			return true
		}

		first := errResp.FirstError()

		return first != nil && first.Code == code
	}

	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}

	return false
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrResourceNotFound) {
		return true
	}

	return hasCode(err, http.StatusNotFound, ErrorCodeNotFound)
}

// IsUnauthorized checks if the error is an unauthorized error.
func IsUnauthorized(err error) bool {
	return hasCode(err, http.StatusUnauthorized, ErrorCodeNotAuthenticated)
}

// IsForbidden checks if the error is a forbidden error.
func IsForbidden(err error) bool {
	return hasCode(err, http.StatusForbidden, ErrorCodeNotAuthorized)
}

package onboardsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error codes returned by the service.
const (
	ErrorCodeInvalidRequest    = "invalid_request"
	ErrorCodeInvalidCode       = "invalid_code"
	ErrorCodeExpiredCode       = "expired_code"
	ErrorCodeEmailMismatch     = "email_mismatch"
	ErrorCodeDuplicateCode     = "duplicate_code"
	ErrorCodeAccountExists     = "account_exists"
	ErrorCodeInvalidToken      = "invalid_token"
	ErrorCodeInsufficientScope = "insufficient_scope"
	ErrorCodeRateLimited       = "rate_limit_exceeded"
	ErrorCodeServerError       = "server_error"
)

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("onboardsdk: %d %s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("onboardsdk: %d %s: %s", e.StatusCode, e.Code, e.Description)
}

// Is matches another *APIError by Code, so callers can write
// errors.Is(err, onboardsdk.ErrInvalidCode).
func (e *APIError) Is(target error) bool {
	var t *APIError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrInvalidRequest = &APIError{Code: ErrorCodeInvalidRequest}
	ErrInvalidCode    = &APIError{Code: ErrorCodeInvalidCode}
	ErrExpiredCode    = &APIError{Code: ErrorCodeExpiredCode}
	ErrEmailMismatch  = &APIError{Code: ErrorCodeEmailMismatch}
	ErrDuplicateCode  = &APIError{Code: ErrorCodeDuplicateCode}
	ErrAccountExists  = &APIError{Code: ErrorCodeAccountExists}
	ErrInvalidToken   = &APIError{Code: ErrorCodeInvalidToken}
	ErrForbidden      = &APIError{Code: ErrorCodeInsufficientScope}
	ErrRateLimited    = &APIError{Code: ErrorCodeRateLimited}
)

// parseErrorResponse turns a non-2xx response into an *APIError. It returns
// nil for 2xx statuses.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	// Fallback: create generic error from status code
	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}

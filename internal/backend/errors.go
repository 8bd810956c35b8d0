package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// UnauthorizedMessage replaces whatever the backend says on a 401.
const UnauthorizedMessage = "Your session has expired. Please log out and log in again."

var (
	// ErrInvalidPhone is returned before any request when the phone has fewer than 10 digits.
	ErrInvalidPhone = errors.New("please enter a valid phone number")
	// ErrInvalidCode is returned before any request when the OTP is not exactly 4 digits.
	ErrInvalidCode = errors.New("please enter the 4-digit code")
	// ErrMalformedVerification is returned when the verify payload is not the expected shape.
	ErrMalformedVerification = errors.New("unexpected response from verification service")
	// ErrNoCredential is returned by authenticated calls made without a stored credential.
	ErrNoCredential = errors.New("not logged in")
	// ErrContactMismatch means the credential belongs to a different contact than the one requested.
	ErrContactMismatch = errors.New("this account does not match the number you are viewing")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// VerificationError is a 2xx verify response whose message does not confirm verification.
type VerificationError struct {
	Message string
}

func (e *VerificationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "OTP verification failed"
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

func errorFromResponse(status int, body []byte) *APIError {
	if status == http.StatusUnauthorized {
		return &APIError{Status: status, Message: UnauthorizedMessage}
	}
	return &APIError{Status: status, Message: extractMessage(status, body)}
}

func extractMessage(status int, body []byte) string {
	var payload struct {
		Message any `json:"message"`
		Error   any `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if msg := asText(payload.Message); msg != "" {
			return msg
		}
		if msg := asText(payload.Error); msg != "" {
			return msg
		}
	}

	if text := strings.TrimSpace(string(body)); text != "" && !strings.HasPrefix(text, "{") {
		return text
	}

	return fmt.Sprintf("Request failed with status %d", status)
}

func asText(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case nil:
		return ""
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

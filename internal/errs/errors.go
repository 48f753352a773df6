// Package errs defines the error kinds shared by the controller client,
// the cleanup workflow and the HTTP boundary.
//
// 분류:
//   - ConfigurationError: 설정 누락/오류 (해당 작업만 실패, 프로세스는 유지)
//   - AuthenticationError: 컨트롤러가 client credential을 거부
//   - TransportError: 네트워크 오류, 타임아웃, non-2xx 응답
//   - UpstreamError: HTTP 2xx 이지만 응답 body의 errorCode != 0
//   - ValidationError: 호출자 입력 오류
package errs

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ConfigurationError indicates missing or invalid setup.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("configuration error on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// NewConfigurationError creates a ConfigurationError.
func NewConfigurationError(field, message string) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: message}
}

// IsConfigurationError returns true if the error is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// AuthenticationError indicates the controller rejected the client credentials.
// Code is the controller errorCode, or the HTTP status when the request
// failed before an application response was produced.
type AuthenticationError struct {
	Code    int
	Message string
	Cause   error
}

func (e *AuthenticationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("authentication failed: %s (code %d): %v", e.Message, e.Code, e.Cause)
	}
	return fmt.Sprintf("authentication failed: %s (code %d)", e.Message, e.Code)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Cause
}

// NewAuthenticationError creates an AuthenticationError.
func NewAuthenticationError(code int, message string, cause error) *AuthenticationError {
	return &AuthenticationError{Code: code, Message: message, Cause: cause}
}

// IsAuthenticationError returns true if the error is an AuthenticationError.
func IsAuthenticationError(err error) bool {
	var target *AuthenticationError
	return errors.As(err, &target)
}

// TransportError indicates the request never reached the controller's
// service logic: network failure, timeout or a non-2xx HTTP status.
type TransportError struct {
	Operation  string
	StatusCode int // 0 when no response was received
	Message    string
	Cause      error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: controller returned HTTP %d: %s", e.Operation, e.StatusCode, e.Message)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Operation, e.Cause)
	default:
		return fmt.Sprintf("%s: %s", e.Operation, e.Message)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// Timeout reports whether the failure was a deadline or network timeout.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Cause, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Cause, &netErr) && netErr.Timeout()
}

// NewTransportError creates a TransportError for a failed round trip.
func NewTransportError(operation string, cause error) *TransportError {
	return &TransportError{Operation: operation, Cause: cause}
}

// NewHTTPStatusError creates a TransportError for a non-2xx response.
func NewHTTPStatusError(operation string, statusCode int, message string) *TransportError {
	return &TransportError{Operation: operation, StatusCode: statusCode, Message: message}
}

// IsTransportError returns true if the error is a TransportError.
func IsTransportError(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

// UpstreamError indicates the controller answered 2xx but rejected the
// request with a non-zero application error code.
type UpstreamError struct {
	Operation string
	Code      int
	Message   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %s (error code %d)", e.Operation, e.Message, e.Code)
}

// NewUpstreamError creates an UpstreamError.
func NewUpstreamError(operation string, code int, message string) *UpstreamError {
	return &UpstreamError{Operation: operation, Code: code, Message: message}
}

// IsUpstreamError returns true if the error is an UpstreamError.
func IsUpstreamError(err error) bool {
	var target *UpstreamError
	return errors.As(err, &target)
}

// ValidationError indicates malformed caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError returns true if the error is a ValidationError.
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// Kind returns a short label for metrics and API responses.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsValidationError(err):
		return "validation"
	case IsConfigurationError(err):
		return "configuration"
	case IsAuthenticationError(err):
		return "authentication"
	case IsUpstreamError(err):
		return "upstream"
	case IsTransportError(err):
		return "transport"
	default:
		return "internal"
	}
}

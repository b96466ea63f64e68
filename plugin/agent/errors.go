package agent

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrorClass represents the category of a capability failure for retry
// decisions.
type ErrorClass int

const (
	// ErrorClassTransient indicates a temporary error worth retrying.
	ErrorClassTransient ErrorClass = iota

	// ErrorClassAuth indicates the integration rejected the stored
	// credential. Never retried; the user has to reconnect.
	ErrorClassAuth

	// ErrorClassPermanent indicates a non-retryable error such as bad
	// arguments or a missing resource.
	ErrorClassPermanent
)

// String returns the string representation of ErrorClass.
func (e ErrorClass) String() string {
	switch e {
	case ErrorClassTransient:
		return "transient"
	case ErrorClassAuth:
		return "auth"
	case ErrorClassPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// ClassifiedError wraps an error with its classification.
type ClassifiedError struct {
	Class    ErrorClass
	Original error
}

// Error returns a formatted error message.
func (c *ClassifiedError) Error() string {
	if c.Original == nil {
		return fmt.Sprintf("classified error: class=%s", c.Class)
	}
	return fmt.Sprintf("%s: %v", c.Class, c.Original)
}

// Unwrap returns the original error for errors.Is/As.
func (c *ClassifiedError) Unwrap() error {
	return c.Original
}

// IsTransient reports whether the error should be retried.
func (c *ClassifiedError) IsTransient() bool {
	return c.Class == ErrorClassTransient
}

// IsAuth reports whether the error is a credential rejection.
func (c *ClassifiedError) IsAuth() bool {
	return c.Class == ErrorClassAuth
}

// ClassifyError analyzes an error and determines its class.
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	errMsg := strings.ToLower(err.Error())

	// Credential rejections first: retrying with the same token is
	// pointless and burns the integration's rate limit.
	if strings.Contains(errMsg, "unauthorized") ||
		strings.Contains(errMsg, "invalid token") ||
		strings.Contains(errMsg, "401") ||
		strings.Contains(errMsg, "forbidden") {
		return &ClassifiedError{Class: ErrorClassAuth, Original: err}
	}

	if isNetworkError(err) || isTimeoutError(err) {
		return &ClassifiedError{Class: ErrorClassTransient, Original: err}
	}

	if strings.Contains(errMsg, "rate limit") ||
		strings.Contains(errMsg, "too many requests") ||
		strings.Contains(errMsg, "429") ||
		strings.Contains(errMsg, "unavailable") ||
		strings.Contains(errMsg, "temporary") {
		return &ClassifiedError{Class: ErrorClassTransient, Original: err}
	}

	// Default to permanent for unknown errors (fail safe).
	return &ClassifiedError{Class: ErrorClassPermanent, Original: err}
}

// isNetworkError checks if an error is network-related (transient).
func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errMsg := strings.ToLower(err.Error())
	networkPatterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"network is unreachable",
		"no such host",
		"dial tcp",
		"eof",
	}
	for _, pattern := range networkPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}

// isTimeoutError checks if an error is timeout-related (transient).
func isTimeoutError(err error) bool {
	errMsg := strings.ToLower(err.Error())
	timeoutPatterns := []string{
		"timeout",
		"deadline exceeded",
		"i/o timeout",
		"operation timed out",
	}
	for _, pattern := range timeoutPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}

// ShouldRetry reports whether the error warrants another attempt.
func ShouldRetry(err error) bool {
	return ClassifyError(err).IsTransient()
}

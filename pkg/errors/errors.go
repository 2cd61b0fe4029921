// Package errors provides structured error handling for Tether.
// It defines sentinel errors, exit codes, and helpers for adding
// context, details, and suggestions to errors.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"sort"
)

// Exit codes returned by the tether CLI.
const (
	ExitSuccess      = 0 // Successful execution
	ExitGeneral      = 1 // General/unknown error
	ExitInput        = 2 // Invalid input
	ExitRejected     = 3 // User declined the request in the wallet
	ExitNotFound     = 4 // Resource not found
	ExitNotConnected = 5 // No active wallet connection
)

// TetherError is the structured error type for Tether.
type TetherError struct {
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for user
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
}

func (e *TetherError) Error() string {
	msg := e.Message

	// Details are sorted for deterministic output
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *TetherError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for TetherError.
func (e *TetherError) Is(target error) bool {
	var t *TetherError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinel errors.
var (
	ErrGeneral = &TetherError{
		Code:     "GENERAL_ERROR",
		Message:  "an error occurred",
		ExitCode: ExitGeneral,
	}

	ErrInvalidInput = &TetherError{
		Code:     "INVALID_INPUT",
		Message:  "invalid input",
		ExitCode: ExitInput,
	}

	ErrNotFound = &TetherError{
		Code:     "NOT_FOUND",
		Message:  "resource not found",
		ExitCode: ExitNotFound,
	}

	// Connection errors.
	ErrUserRejected = &TetherError{
		Code:     "USER_REJECTED",
		Message:  "request rejected by the user",
		ExitCode: ExitRejected,
	}

	ErrConnectionFailed = &TetherError{
		Code:     "CONNECTION_FAILED",
		Message:  "wallet connection failed",
		ExitCode: ExitGeneral,
	}

	ErrNotConnected = &TetherError{
		Code:       "NOT_CONNECTED",
		Message:    "no active wallet connection",
		Suggestion: "run 'tether connect --provider <name>' first",
		ExitCode:   ExitNotConnected,
	}

	ErrUnsupportedProvider = &TetherError{
		Code:     "UNSUPPORTED_PROVIDER",
		Message:  "unsupported connection provider",
		ExitCode: ExitInput,
	}

	ErrConnectTimeout = &TetherError{
		Code:     "CONNECT_TIMEOUT",
		Message:  "timed out waiting for the wallet session",
		ExitCode: ExitGeneral,
	}

	ErrInvalidChainID = &TetherError{
		Code:     "INVALID_CHAIN_ID",
		Message:  "invalid chain ID",
		ExitCode: ExitInput,
	}

	ErrInvalidAddress = &TetherError{
		Code:     "INVALID_ADDRESS",
		Message:  "invalid address format",
		ExitCode: ExitInput,
	}

	ErrNetworkError = &TetherError{
		Code:     "NETWORK_ERROR",
		Message:  "network communication failed",
		ExitCode: ExitGeneral,
	}

	// Config errors.
	ErrConfigNotFound = &TetherError{
		Code:     "CONFIG_NOT_FOUND",
		Message:  "configuration file not found",
		ExitCode: ExitNotFound,
	}

	ErrConfigInvalid = &TetherError{
		Code:     "CONFIG_INVALID",
		Message:  "configuration file is invalid",
		ExitCode: ExitInput,
	}
)

// New creates a new TetherError with the given code and message.
func New(code, message string) *TetherError {
	return &TetherError{
		Code:     code,
		Message:  message,
		ExitCode: ExitGeneral,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var te *TetherError
	if errors.As(err, &te) {
		return &TetherError{
			Code:       te.Code,
			Message:    fmt.Sprintf("%s: %s", msg, te.Message),
			Details:    te.Details,
			Suggestion: te.Suggestion,
			Cause:      err,
			ExitCode:   te.ExitCode,
		}
	}

	return &TetherError{
		Code:     "GENERAL_ERROR",
		Message:  msg,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithDetails adds details to an error.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var te *TetherError
	if errors.As(err, &te) {
		return &TetherError{
			Code:       te.Code,
			Message:    te.Message,
			Details:    details,
			Suggestion: te.Suggestion,
			Cause:      te.Cause,
			ExitCode:   te.ExitCode,
		}
	}

	return &TetherError{
		Code:     "GENERAL_ERROR",
		Message:  err.Error(),
		Details:  details,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithSuggestion adds a suggestion to an error.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}

	var te *TetherError
	if errors.As(err, &te) {
		return &TetherError{
			Code:       te.Code,
			Message:    te.Message,
			Details:    te.Details,
			Suggestion: suggestion,
			Cause:      te.Cause,
			ExitCode:   te.ExitCode,
		}
	}

	return &TetherError{
		Code:       "GENERAL_ERROR",
		Message:    err.Error(),
		Suggestion: suggestion,
		Cause:      err,
		ExitCode:   ExitGeneral,
	}
}

// WithMessage returns a copy of a sentinel with a replaced human-readable message.
// Identity under errors.Is is preserved since it compares codes.
func WithMessage(sentinel *TetherError, message string) error {
	return &TetherError{
		Code:       sentinel.Code,
		Message:    message,
		Details:    sentinel.Details,
		Suggestion: sentinel.Suggestion,
		ExitCode:   sentinel.ExitCode,
	}
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var te *TetherError
	if errors.As(err, &te) {
		return te.ExitCode
	}

	return ExitGeneral
}

// Code returns the error code for an error.
func Code(err error) string {
	var te *TetherError
	if errors.As(err, &te) {
		return te.Code
	}
	return "GENERAL_ERROR"
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}

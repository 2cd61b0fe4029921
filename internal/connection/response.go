package connection

import (
	tethererr "github.com/mrz1836/tether/pkg/errors"
)

// Response is the outcome of a wallet operation that can fail because of
// the user or the wallet. Success, UserRejected and Message are mutually
// exclusive; Data is only set on success.
type Response[T any] struct {
	Success      bool   `json:"success"`
	UserRejected bool   `json:"userRejected,omitempty"`
	Message      string `json:"message,omitempty"`
	Data         T      `json:"data,omitzero"`
}

// Details is the payload of a successful connect.
type Details struct {
	WalletAddress string   `json:"walletAddress"`
	ChainID       uint64   `json:"chainId"`
	Provider      Provider `json:"provider"`
}

// ConnectionInfo is the result of Connect.
type ConnectionInfo = Response[*Details]

// ResponseWithoutData is the result of operations without a payload.
type ResponseWithoutData = Response[struct{}]

// NewSuccess returns a successful response carrying data.
func NewSuccess[T any](data T) Response[T] {
	return Response[T]{Success: true, Data: data}
}

// NewError returns a failed response with a display message.
func NewError[T any](message string) Response[T] {
	return Response[T]{Message: message}
}

// NewUserRejected returns a response for a request the user declined.
func NewUserRejected[T any]() Response[T] {
	return Response[T]{UserRejected: true}
}

// Err converts a failed response into an error carrying a CLI exit code.
func (r Response[T]) Err() error {
	switch {
	case r.Success:
		return nil
	case r.UserRejected:
		return tethererr.ErrUserRejected
	default:
		return tethererr.WithMessage(tethererr.ErrConnectionFailed, r.Message)
	}
}

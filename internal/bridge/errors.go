package bridge

import tethererr "github.com/mrz1836/tether/pkg/errors"

// Bridge errors.
var (
	ErrInvalidPayload = &tethererr.TetherError{
		Code:     "BRIDGE_INVALID_PAYLOAD",
		Message:  "invalid bridge payload",
		ExitCode: tethererr.ExitGeneral,
	}

	ErrNoSession = &tethererr.TetherError{
		Code:       "BRIDGE_NO_SESSION",
		Message:    "no active wallet session",
		Suggestion: "Run 'tether connect --provider walletconnect' and scan the QR code",
		ExitCode:   tethererr.ExitNotConnected,
	}

	ErrSessionRejected = &tethererr.TetherError{
		Code:     "BRIDGE_SESSION_REJECTED",
		Message:  "wallet rejected the session request",
		ExitCode: tethererr.ExitRejected,
	}

	ErrSessionClosed = &tethererr.TetherError{
		Code:     "BRIDGE_SESSION_CLOSED",
		Message:  "wallet session closed",
		ExitCode: tethererr.ExitNotConnected,
	}

	ErrBridgeUnavailable = &tethererr.TetherError{
		Code:       "BRIDGE_UNAVAILABLE",
		Message:    "bridge unavailable",
		Suggestion: "Check bridge.url in config or TETHER_BRIDGE_URL",
		ExitCode:   tethererr.ExitGeneral,
	}
)

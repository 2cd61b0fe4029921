package errors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tethererr "github.com/mrz1836/tether/pkg/errors"
)

var (
	errInner = errors.New("inner")
	errPlain = errors.New("plain error")
)

func TestExitCodes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"success", nil, tethererr.ExitSuccess},
		{"general error", tethererr.ErrGeneral, tethererr.ExitGeneral},
		{"input error", tethererr.ErrInvalidInput, tethererr.ExitInput},
		{"user rejected", tethererr.ErrUserRejected, tethererr.ExitRejected},
		{"not found", tethererr.ErrNotFound, tethererr.ExitNotFound},
		{"not connected", tethererr.ErrNotConnected, tethererr.ExitNotConnected},
		{"unsupported provider", tethererr.ErrUnsupportedProvider, tethererr.ExitInput},
		{"plain error", errPlain, tethererr.ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tethererr.ExitCode(tt.err))
		})
	}
}

func TestWrap(t *testing.T) {
	t.Parallel()

	t.Run("preserves identity and exit code", func(t *testing.T) {
		t.Parallel()
		wrapped := tethererr.Wrap(tethererr.ErrUserRejected, "switching to chain %d", 1)
		require.ErrorIs(t, wrapped, tethererr.ErrUserRejected)
		assert.Contains(t, wrapped.Error(), "switching to chain 1")
		assert.Equal(t, tethererr.ExitRejected, tethererr.ExitCode(wrapped))
	})

	t.Run("nil input", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, tethererr.Wrap(nil, "context"))
	})

	t.Run("plain error becomes general", func(t *testing.T) {
		t.Parallel()
		wrapped := tethererr.Wrap(errPlain, "context")
		var te *tethererr.TetherError
		require.ErrorAs(t, wrapped, &te)
		assert.Equal(t, "GENERAL_ERROR", te.Code)
		assert.Equal(t, "context", te.Message)
		assert.Equal(t, errPlain, te.Cause)
	})

	t.Run("field preservation", func(t *testing.T) {
		t.Parallel()
		original := tethererr.WithDetails(tethererr.ErrNotConnected, map[string]string{"provider": "MetaMask"})
		wrapped := tethererr.Wrap(original, "disconnect")

		var te *tethererr.TetherError
		require.ErrorAs(t, wrapped, &te)
		assert.Equal(t, "NOT_CONNECTED", te.Code)
		assert.Equal(t, map[string]string{"provider": "MetaMask"}, te.Details)
		assert.NotEmpty(t, te.Suggestion)
	})
}

func TestWithDetailsAndSuggestion(t *testing.T) {
	t.Parallel()
	details := map[string]string{"provider": "metamsk"}

	err := tethererr.WithDetails(tethererr.ErrUnsupportedProvider, details)
	err = tethererr.WithSuggestion(err, "did you mean 'metamask'?")

	var te *tethererr.TetherError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, details, te.Details)
	assert.Equal(t, "did you mean 'metamask'?", te.Suggestion)
	require.ErrorIs(t, err, tethererr.ErrUnsupportedProvider)
}

func TestWithMessage(t *testing.T) {
	t.Parallel()
	err := tethererr.WithMessage(tethererr.ErrConnectionFailed, "Failed to connect to MetaMask")
	assert.Equal(t, "Failed to connect to MetaMask", err.Error())
	require.ErrorIs(t, err, tethererr.ErrConnectionFailed)
	assert.NotErrorIs(t, err, tethererr.ErrUserRejected)
}

func TestTetherError_Error(t *testing.T) {
	t.Parallel()

	t.Run("details sorted", func(t *testing.T) {
		t.Parallel()
		err := &tethererr.TetherError{
			Code:    "TEST",
			Message: "failed",
			Details: map[string]string{"beta": "2", "alpha": "1"},
		}
		assert.Equal(t, "failed (alpha: 1) (beta: 2)", err.Error())
	})

	t.Run("with cause", func(t *testing.T) {
		t.Parallel()
		err := &tethererr.TetherError{Code: "TEST", Message: "outer", Cause: errInner}
		assert.Equal(t, "outer: inner", err.Error())
		assert.Equal(t, errInner, err.Unwrap())
	})
}

func TestCode(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "USER_REJECTED", tethererr.Code(tethererr.ErrUserRejected))
	assert.Equal(t, "GENERAL_ERROR", tethererr.Code(errPlain))
	assert.Equal(t, "GENERAL_ERROR", tethererr.Code(nil))
}

func TestNew(t *testing.T) {
	t.Parallel()
	err := tethererr.New("CUSTOM_ERROR", "custom error message")
	assert.Equal(t, "custom error message", err.Error())
	assert.Equal(t, tethererr.ExitGeneral, err.ExitCode)
}

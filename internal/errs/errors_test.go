package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransportError(t *testing.T) {
	t.Run("http status", func(t *testing.T) {
		err := NewHTTPStatusError("list sites", 503, "Service Unavailable")
		assert.Equal(t, "list sites: controller returned HTTP 503: Service Unavailable", err.Error())
		assert.False(t, err.Timeout())
	})

	t.Run("timeout", func(t *testing.T) {
		err := NewTransportError("list accounts", fmt.Errorf("do request: %w", context.DeadlineExceeded))
		assert.True(t, err.Timeout())
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("wrapped", func(t *testing.T) {
		wrapped := fmt.Errorf("site s1: %w", NewTransportError("list accounts", errors.New("boom")))
		assert.True(t, IsTransportError(wrapped))
		assert.False(t, IsUpstreamError(wrapped))
	})
}

func TestKind(t *testing.T) {
	cases := map[string]error{
		"validation":     NewValidationError("userName", "required"),
		"configuration":  NewConfigurationError("OMADA_ID", "missing"),
		"authentication": NewAuthenticationError(-44106, "Invalid client", nil),
		"upstream":       fmt.Errorf("wrap: %w", NewUpstreamError("delete account", -1, "not found")),
		"transport":      NewTransportError("list sites", errors.New("refused")),
		"internal":       errors.New("random"),
	}
	for want, err := range cases {
		assert.Equal(t, want, Kind(err), "kind for %v", err)
	}
	assert.Empty(t, Kind(nil))
}

func TestAuthenticationErrorMessage(t *testing.T) {
	err := NewAuthenticationError(-44106, "Invalid client credentials", nil)
	assert.Equal(t, "authentication failed: Invalid client credentials (code -44106)", err.Error())
	assert.True(t, IsAuthenticationError(fmt.Errorf("token: %w", err)))
}

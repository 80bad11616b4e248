package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Aman-CERP/choralmind/internal/errors"
)

func TestMapError_NilError(t *testing.T) {
	// Given: nil error
	// When: mapping the error
	// Then: returns nil
	assert.Nil(t, MapError(nil))
}

func TestMapError_AppErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"index not found", apperrors.IndexNotFound("yoruba"), ErrCodeIndexNotFound},
		{"model mismatch", apperrors.New(apperrors.ErrCodeModelMismatch, "index built with other model", nil), ErrCodeIndexNotFound},
		{"provider timeout", apperrors.New(apperrors.ErrCodeProviderTimeout, "slow", nil), ErrCodeTimeout},
		{"provider unavailable", apperrors.ProviderError("ollama down", nil), ErrCodeProviderFailed},
		{"query empty", apperrors.New(apperrors.ErrCodeQueryEmpty, "query is empty", nil), ErrCodeInvalidParams},
		{"internal", apperrors.InternalError("boom", nil), ErrCodeInternalError},
		{"wrapped", fmt.Errorf("retrieve: %w", apperrors.IndexNotFound("english")), ErrCodeIndexNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// When: mapping an application error
			result := MapError(tt.err)

			// Then: the MCP code follows the error code and category
			require.NotNil(t, result)
			assert.Equal(t, tt.code, result.Code)
		})
	}
}

func TestMapError_IncludesSuggestion(t *testing.T) {
	// Given: an error with a suggestion
	err := apperrors.IndexNotFound("yoruba")

	// When: mapping the error
	result := MapError(err)

	// Then: the suggestion is part of the message
	assert.Contains(t, result.Message, "no yoruba index found")
	assert.Contains(t, result.Message, "choralmind ingest --lang yoruba")
}

func TestMapError_ContextErrors(t *testing.T) {
	assert.Equal(t, ErrCodeTimeout, MapError(context.DeadlineExceeded).Code)
	assert.Equal(t, ErrCodeTimeout, MapError(context.Canceled).Code)
}

func TestMapError_PassesThroughMCPError(t *testing.T) {
	// Given: an error that is already an MCP error
	orig := NewInvalidParamsError("bad k")

	// When: mapping it
	result := MapError(fmt.Errorf("wrapped: %w", orig))

	// Then: it is returned unchanged
	assert.Same(t, orig, result)
}

func TestMapError_UnknownError(t *testing.T) {
	result := MapError(errors.New("mystery"))

	assert.Equal(t, ErrCodeInternalError, result.Code)
	assert.Equal(t, "Internal server error.", result.Message)
}

func TestMCPError_Error(t *testing.T) {
	err := &MCPError{Code: ErrCodeInvalidParams, Message: "bad"}
	assert.Equal(t, "MCP error -32602: bad", err.Error())
}

func TestNewMethodNotFoundError(t *testing.T) {
	err := NewMethodNotFoundError("nope")
	assert.Equal(t, ErrCodeMethodNotFound, err.Code)
	assert.Contains(t, err.Message, "nope")
}

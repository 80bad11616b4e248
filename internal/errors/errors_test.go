package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := errors.New("connection refused")

	// When: wrapping it
	appErr := New(ErrCodeEmbeddingFailed, "embedding failed for chunk 3:0", originalErr)

	// Then: unwrapping returns the original
	require.NotNil(t, appErr)
	assert.Equal(t, originalErr, errors.Unwrap(appErr))
	assert.True(t, errors.Is(appErr, originalErr))
}

func TestAppError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{"config", ErrCodeConfigInvalid, "bad chunk size", "[ERR_102_CONFIG_INVALID] bad chunk size"},
		{"io", ErrCodeDocumentNotFound, "nothing at docs/", "[ERR_201_DOCUMENT_NOT_FOUND] nothing at docs/"},
		{"provider", ErrCodeProviderTimeout, "timed out", "[ERR_301_PROVIDER_TIMEOUT] timed out"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, New(tt.code, tt.message, nil).Error())
		})
	}
}

func TestAppError_Is_MatchesByCode(t *testing.T) {
	err1 := New(ErrCodeIndexNotFound, "no english index", nil)
	err2 := New(ErrCodeIndexNotFound, "no yoruba index", nil)
	err3 := New(ErrCodeDocumentNotFound, "no docs", nil)

	assert.True(t, errors.Is(err1, err2))
	assert.False(t, errors.Is(err1, err3))
}

func TestNew_DerivesCategoryAndSeverity(t *testing.T) {
	tests := []struct {
		code      string
		category  Category
		severity  Severity
		retryable bool
	}{
		{ErrCodeConfigInvalid, CategoryConfig, SeverityError, false},
		{ErrCodeDocumentNotFound, CategoryIO, SeverityFatal, false},
		{ErrCodeProviderTimeout, CategoryProvider, SeverityWarning, true},
		{ErrCodeQueryEmpty, CategoryValidation, SeverityError, false},
		{ErrCodeEmbeddingFailed, CategoryInternal, SeverityFatal, false},
	}

	for _, tc := range tests {
		err := New(tc.code, "msg", nil)
		assert.Equal(t, tc.category, err.Category, tc.code)
		assert.Equal(t, tc.severity, err.Severity, tc.code)
		assert.Equal(t, tc.retryable, err.Retryable, tc.code)
	}
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestDocumentNotFound_CarriesPathAndSuggestion(t *testing.T) {
	err := DocumentNotFound("docs/English")

	assert.Equal(t, ErrCodeDocumentNotFound, err.Code)
	assert.Equal(t, "docs/English", err.Details["path"])
	assert.NotEmpty(t, err.Suggestion)
}

func TestIsIngestionError_ClassifiesTaxonomy(t *testing.T) {
	// Given: errors wrapped by fmt.Errorf as callers do
	notFound := fmt.Errorf("load: %w", DocumentNotFound("x"))
	embedFail := fmt.Errorf("build: %w", EmbeddingFailed("boom", nil))
	index := IndexNotFound("yoruba")

	// Then: only batch-aborting codes count as ingestion errors
	assert.True(t, IsIngestionError(notFound))
	assert.True(t, IsIngestionError(embedFail))
	assert.False(t, IsIngestionError(index))
	assert.False(t, IsIngestionError(errors.New("plain")))
}

func TestHasCode_WalksChain(t *testing.T) {
	inner := New(ErrCodeEmbeddingFailed, "inner", nil)
	outer := New(ErrCodeIndexFailed, "outer", inner)

	assert.True(t, HasCode(outer, ErrCodeEmbeddingFailed))
	assert.True(t, HasCode(outer, ErrCodeIndexFailed))
	assert.False(t, HasCode(outer, ErrCodeQueryEmpty))
	assert.Equal(t, ErrCodeIndexFailed, GetCode(fmt.Errorf("ctx: %w", outer)))
}

func TestIsRetryableAndIsFatal(t *testing.T) {
	assert.True(t, IsRetryable(ProviderError("down", nil)))
	assert.False(t, IsRetryable(ValidationError("bad", nil)))
	assert.True(t, IsFatal(New(ErrCodeCorruptIndex, "corrupt", nil)))
	assert.False(t, IsFatal(nil))
	assert.Equal(t, CategoryConfig, GetCategory(ConfigError("x", nil)))
}

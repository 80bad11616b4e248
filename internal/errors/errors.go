package errors

import (
	"errors"
	"fmt"
)

// AppError is the structured error type for ChoralMind.
// It carries enough context for logging, CLI output and API responses.
type AppError struct {
	// Code is the unique error code (e.g., "ERR_201_DOCUMENT_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Provider, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches another AppError by code, so errors.Is works against
// sentinel values built with New.
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *AppError) WithSuggestion(suggestion string) *AppError {
	e.Suggestion = suggestion
	return e
}

// New creates a new AppError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an AppError from an existing error.
// The error's message becomes the AppError message.
func Wrap(code string, err error) *AppError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// DocumentNotFound reports a document set with no readable sources.
func DocumentNotFound(path string) *AppError {
	return New(ErrCodeDocumentNotFound, fmt.Sprintf("no source documents found at %s", path), nil).
		WithDetail("path", path).
		WithSuggestion("Check sources.<language>.path in choralmind.yaml")
}

// EmbeddingFailed reports an embedding call that aborted a build.
func EmbeddingFailed(message string, cause error) *AppError {
	return New(ErrCodeEmbeddingFailed, message, cause)
}

// IndexNotFound reports a language with no published index.
func IndexNotFound(language string) *AppError {
	return New(ErrCodeIndexNotFound, fmt.Sprintf("no %s index found", language), nil).
		WithDetail("language", language).
		WithSuggestion(fmt.Sprintf("Run 'choralmind ingest --lang %s' first", language))
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *AppError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *AppError {
	return New(ErrCodeInvalidInput, message, cause)
}

// ProviderError creates a provider (embedding / completion) error.
// Provider errors are retryable.
func ProviderError(message string, cause error) *AppError {
	return New(ErrCodeProviderUnavailable, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *AppError {
	return New(ErrCodeInternal, message, cause)
}

// As extracts the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if ae, ok := As(err); ok {
		return ae.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	if ae, ok := As(err); ok {
		return ae.Severity == SeverityFatal
	}
	return false
}

// IsIngestionError reports whether err aborts an ingestion batch
// (missing sources, corrupt sources, embedding or index failures).
func IsIngestionError(err error) bool {
	if ae, ok := As(err); ok {
		return ingestionCodes[ae.Code]
	}
	return false
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code string) bool {
	for err != nil {
		if ae, ok := err.(*AppError); ok && ae.Code == code {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// GetCode extracts the error code from an AppError.
// Returns empty string if not an AppError.
func GetCode(err error) string {
	if ae, ok := As(err); ok {
		return ae.Code
	}
	return ""
}

// GetCategory extracts the category from an AppError.
func GetCategory(err error) Category {
	if ae, ok := As(err); ok {
		return ae.Category
	}
	return ""
}

package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable error codes surfaced to HTTP clients.
const (
	CodeInvalidProvider     = "INVALID_PROVIDER"
	CodeInvalidCollection   = "INVALID_COLLECTION"
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeVectorstoreEmpty    = "VECTORSTORE_EMPTY"
	CodeLLMConnectionFailed = "LLM_CONNECTION_FAILED"
	CodeLLMTimeout          = "LLM_TIMEOUT"
	CodeCapExceeded         = "CAP_EXCEEDED"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeNotFound            = "NOT_FOUND"
	CodeInternalError       = "INTERNAL_ERROR"
)

// APIError is the typed error carried from use cases to the transport
// boundary, where it is converted to the wire error shape exactly once.
type APIError struct {
	Code    string
	Status  int
	Message string
	Hint    string
	Detail  any // optional structured detail (e.g. cap breach numbers)
	cause   error
}

func (e *APIError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error { return e.cause }

// WithCause attaches the underlying error for server-side logging.
func (e *APIError) WithCause(err error) *APIError {
	e.cause = err
	return e
}

// WithDetail attaches structured detail echoed to the client.
func (e *APIError) WithDetail(detail any) *APIError {
	e.Detail = detail
	return e
}

// AsAPIError extracts an APIError from an error chain.
func AsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// NewAPIError builds a typed error with an explicit status code.
func NewAPIError(code string, status int, message, hint string) *APIError {
	return &APIError{Code: code, Status: status, Message: message, Hint: hint}
}

// ErrInvalidProvider reports an unsupported llm_provider value.
func ErrInvalidProvider(hint string) *APIError {
	return NewAPIError(CodeInvalidProvider, http.StatusBadRequest, "Unsupported llm_provider.", hint)
}

// ErrInvalidCollection reports an unknown or over-limit collection selection.
func ErrInvalidCollection(hint string) *APIError {
	return NewAPIError(CodeInvalidCollection, http.StatusBadRequest, "Unsupported collection.", hint)
}

// ErrInvalidRequest reports a malformed client request.
func ErrInvalidRequest(message, hint string) *APIError {
	return NewAPIError(CodeInvalidRequest, http.StatusBadRequest, message, hint)
}

// ErrVectorstoreEmpty reports that the selected collections hold no vectors.
func ErrVectorstoreEmpty(hint string) *APIError {
	return NewAPIError(CodeVectorstoreEmpty, http.StatusBadRequest,
		"Selected collections have no index. Run /reindex first.", hint)
}

// ErrLLMConnectionFailed reports a non-timeout LLM failure.
func ErrLLMConnectionFailed(hint string) *APIError {
	return NewAPIError(CodeLLMConnectionFailed, http.StatusBadGateway,
		"LLM connection failed.", hint)
}

// ErrLLMTimeout reports that the LLM call exceeded the configured deadline.
func ErrLLMTimeout(timeoutSeconds int) *APIError {
	return NewAPIError(CodeLLMTimeout, http.StatusGatewayTimeout,
		fmt.Sprintf("LLM response exceeded the %ds limit.", timeoutSeconds),
		"Check the model status or retry with a shorter question.")
}

// ErrCapExceeded reports that an ingest would exceed the hard vector cap.
func ErrCapExceeded(hint string) *APIError {
	return NewAPIError(CodeCapExceeded, http.StatusBadRequest,
		"Hard cap exceeded for selected collection.", hint)
}

// ErrUnauthorized reports a wrong admin code.
func ErrUnauthorized() *APIError {
	return NewAPIError(CodeUnauthorized, http.StatusUnauthorized,
		"Invalid admin code.", "")
}

// ErrNotFound reports a missing resource.
func ErrNotFound(message string) *APIError {
	return NewAPIError(CodeNotFound, http.StatusNotFound, message, "")
}

// ErrInternal wraps an unexpected failure. Full detail stays server-side.
func ErrInternal(err error) *APIError {
	e := NewAPIError(CodeInternalError, http.StatusInternalServerError,
		"Internal error while processing the request.",
		"Retry later or check server logs for the request_id.")
	return e.WithCause(err)
}

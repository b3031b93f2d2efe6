package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeStore            = "STORE_ERROR"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeGeneration       = "GENERATION_ERROR"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrMissingSourceType = NewDomainError(ErrCodeValidation, "source_type is required")
	ErrMissingSourceID   = NewDomainError(ErrCodeValidation, "source_id is required")
	ErrMissingTitle      = NewDomainError(ErrCodeValidation, "title is required")
	ErrEmptyQuery        = NewDomainError(ErrCodeValidation, "query must not be empty")
	ErrInvalidChunkIndex = NewDomainError(ErrCodeValidation, "chunk index must be non-negative")
	ErrWrongDimensions   = NewDomainError(ErrCodeValidation, "embedding has wrong dimensions")
	ErrInvalidIndexJob   = NewDomainError(ErrCodeValidation, "index job is invalid")
)

// Not found errors
var (
	ErrTicketNotFound   = NewDomainError(ErrCodeNotFound, "ticket not found")
	ErrIndexJobNotFound = NewDomainError(ErrCodeNotFound, "index job not found")
)

// Ticket lifecycle errors
var (
	ErrTicketAlreadyResolved = NewDomainError(ErrCodeInvalidOperation, "ticket is already resolved")
	ErrMissingResolution     = NewDomainError(ErrCodeValidation, "resolution notes are required")
)

// Generation-path errors. GenerationUnavailable covers network, timeout and
// 5xx failures from the LLM endpoint after the retry budget is exhausted.
var (
	ErrGenerationUnavailable = NewDomainError(ErrCodeGeneration, "generation endpoint unavailable")
	ErrGenerationRejected    = NewDomainError(ErrCodeGeneration, "generation request rejected by endpoint")
)

package service

import (
	"errors"
	"fmt"

	"contentgen/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrTaskNotFound   = errors.New("task not found")
	ErrSampleNotFound = errors.New("sample not found")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidState   = errors.New("invalid task state")
	ErrTaskBusy       = errors.New("task is claimed by another worker")
	ErrShuttingDown   = errors.New("orchestrator is shutting down")
)

// ValidationError is a malformed request. Nothing was written.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Message
}

func newValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// GenerationError is a phase whose every attempt failed.
type GenerationError struct {
	Phase    models.Phase
	ModelID  string
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	if e.Attempts == 0 {
		return fmt.Sprintf("generation failed in %s: %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("generation failed in %s after %d attempt(s), last model %s: %v", e.Phase, e.Attempts, e.ModelID, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// BudgetExceededError refuses work whose estimate exceeds the remaining budget.
type BudgetExceededError struct {
	Phase     models.Phase
	Required  decimal.Decimal
	Remaining decimal.Decimal
	Currency  string
}

func (e *BudgetExceededError) Error() string {
	where := "task creation"
	if e.Phase != "" {
		where = "phase " + string(e.Phase)
	}
	return fmt.Sprintf("budget exceeded at %s: needs %s %s, %s %s remaining",
		where, e.Required.StringFixed(4), e.Currency, e.Remaining.StringFixed(4), e.Currency)
}

// PublishError is a failed publish-sink call. The task is unchanged.
type PublishError struct {
	TaskID string
	Err    error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish task %s: %v", e.TaskID, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// Error types reported to API callers.
const (
	ErrorTypeValidation  = "validation"
	ErrorTypeBudget      = "budget"
	ErrorTypeGeneration  = "generation"
	ErrorTypePublish     = "publish"
	ErrorTypeNotFound    = "not_found"
	ErrorTypeForbidden   = "forbidden"
	ErrorTypeConflict    = "conflict"
	ErrorTypeUnavailable = "unavailable"
	ErrorTypeInternal    = "internal"
)

// ErrorType classifies err for callers. validation and budget are
// user-fixable; generation and publish are systemic.
func ErrorType(err error) string {
	var (
		validation *ValidationError
		budget     *BudgetExceededError
		generation *GenerationError
		publish    *PublishError
	)
	switch {
	case errors.As(err, &validation):
		return ErrorTypeValidation
	case errors.As(err, &budget):
		return ErrorTypeBudget
	case errors.As(err, &publish):
		return ErrorTypePublish
	case errors.As(err, &generation):
		return ErrorTypeGeneration
	case errors.Is(err, ErrTaskNotFound), errors.Is(err, ErrSampleNotFound):
		return ErrorTypeNotFound
	case errors.Is(err, ErrForbidden):
		return ErrorTypeForbidden
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrTaskBusy):
		return ErrorTypeConflict
	case errors.Is(err, ErrShuttingDown):
		return ErrorTypeUnavailable
	default:
		return ErrorTypeInternal
	}
}

package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur during evaluation operations.
var (
	// ErrMalformedInput indicates a plan or query that is missing,
	// unparseable or structurally wrong. Such plans fail schema validation.
	ErrMalformedInput = errors.New("malformed input")

	// ErrRuleEvaluation indicates that a single check or program could not
	// be evaluated for a query. It never aborts a batch.
	ErrRuleEvaluation = errors.New("rule evaluation failure")

	// ErrInvalidConfiguration indicates that configuration is invalid or
	// incomplete. It is fatal for a batch.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrUnknownQuery indicates a query id that is not part of the batch.
	ErrUnknownQuery = errors.New("unknown query id")

	// ErrUnknownRule indicates a rule column that was never declared.
	ErrUnknownRule = errors.New("unknown rule")

	// ErrNotFound indicates a knowledge-base lookup miss.
	ErrNotFound = errors.New("not found")
)

// EvaluationError ties a per-query failure to the query and rule it
// happened in.
type EvaluationError struct {
	// QueryID is the uid of the query being evaluated.
	QueryID string

	// Rule names the check or constraint column that failed.
	Rule string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for EvaluationError.
func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluation error: query=%s, rule=%s, err=%v", e.QueryID, e.Rule, e.Err)
}

// Unwrap returns the underlying error, supporting Go 1.13+ error unwrapping.
func (e *EvaluationError) Unwrap() error { return e.Err }

// Is lets every EvaluationError match ErrRuleEvaluation.
func (e *EvaluationError) Is(target error) bool { return target == ErrRuleEvaluation }

// NewEvaluationError creates a new EvaluationError with the given details.
func NewEvaluationError(queryID, rule string, err error) *EvaluationError {
	return &EvaluationError{
		QueryID: queryID,
		Rule:    rule,
		Err:     err,
	}
}

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// Unwrap makes every ValidationError match ErrMalformedInput.
func (e *ValidationError) Unwrap() error { return ErrMalformedInput }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}

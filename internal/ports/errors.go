package ports

import (
	"errors"
	"fmt"
)

// Common infrastructure errors that can occur while talking to stores and
// other collaborators.
var (
	// ErrStoreUnavailable indicates that a knowledge-base backend could not
	// be opened or queried.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrConfigNotFound indicates that required configuration is missing.
	ErrConfigNotFound = errors.New("configuration not found")

	// ErrNoTranslation indicates that no translated constraints exist for a
	// query.
	ErrNoTranslation = errors.New("no translation available")
)

// KnowledgeError represents a failed knowledge-base operation.
type KnowledgeError struct {
	// Kind is the category being looked up.
	Kind string

	// Key is the looked-up name or id.
	Key string

	// Operation is the name of the store operation that failed.
	Operation string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for KnowledgeError.
func (e *KnowledgeError) Error() string {
	return fmt.Sprintf("knowledge error: operation=%s, kind=%s, key=%s, err=%v", e.Operation, e.Kind, e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *KnowledgeError) Unwrap() error { return e.Err }

// NewKnowledgeError creates a new KnowledgeError with the given details.
func NewKnowledgeError(kind, key, operation string, err error) *KnowledgeError {
	return &KnowledgeError{
		Kind:      kind,
		Key:       key,
		Operation: operation,
		Err:       err,
	}
}

// ConfigError represents an error from configuration operations.
type ConfigError struct {
	// ConfigKey is the configuration key that was involved in the failed
	// operation.
	ConfigKey string

	// Err is the underlying error that caused the configuration operation
	// to fail.
	Err error
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: key=%s, err=%v", e.ConfigKey, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a new ConfigError with the given details.
func NewConfigError(key string, err error) *ConfigError {
	return &ConfigError{
		ConfigKey: key,
		Err:       err,
	}
}

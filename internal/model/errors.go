package model

import (
	"errors"
	"fmt"
)

// ConfigError represents an invalid specification or an invalid build
// request against a specification.
//
// Configuration errors are fatal and are always detected before any command
// runs: either at Validate() time (structural problems in the spec document)
// or at graph-construction time (unknown target, missing binding, cycle).
type ConfigError struct {
	// Code identifies the error category.
	Code ConfigErrorCode

	// Name is the offending identifier (alias, task, resource, or
	// parameter name), when one exists.
	Name string

	// Message is a human-readable description.
	Message string
}

// ConfigErrorCode categorizes configuration errors.
type ConfigErrorCode string

const (
	// ErrCodeUnknownAlias indicates a reference to an undeclared file alias.
	ErrCodeUnknownAlias ConfigErrorCode = "UNKNOWN_ALIAS"

	// ErrCodeUnknownResource indicates a task uses an undeclared resource.
	ErrCodeUnknownResource ConfigErrorCode = "UNKNOWN_RESOURCE"

	// ErrCodeUnknownParameter indicates a template references an undeclared
	// parameter.
	ErrCodeUnknownParameter ConfigErrorCode = "UNKNOWN_PARAMETER"

	// ErrCodeDuplicateProducer indicates two tasks generate the same alias.
	ErrCodeDuplicateProducer ConfigErrorCode = "DUPLICATE_PRODUCER"

	// ErrCodeExcessResources indicates a single task requests more units of
	// a resource than the pool's total capacity, which could never be
	// granted.
	ErrCodeExcessResources ConfigErrorCode = "EXCESS_RESOURCES"

	// ErrCodeBadCapacity indicates a resource pool is declared with a
	// negative capacity.
	ErrCodeBadCapacity ConfigErrorCode = "BAD_CAPACITY"

	// ErrCodeMissingBinding indicates a template references a parameter
	// with no bound value.
	ErrCodeMissingBinding ConfigErrorCode = "MISSING_BINDING"

	// ErrCodeBadValue indicates a bound value does not match the
	// parameter's declared kind.
	ErrCodeBadValue ConfigErrorCode = "BAD_VALUE"

	// ErrCodeNoProducer indicates a dependency alias that no task generates
	// and whose resolved file does not pre-exist under the root.
	ErrCodeNoProducer ConfigErrorCode = "NO_PRODUCER"

	// ErrCodeCycle indicates the dependency graph contains a cycle.
	ErrCodeCycle ConfigErrorCode = "CYCLE"
)

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Name)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsConfigError returns true if the error is a ConfigError.
// Uses errors.As to handle wrapped errors.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsCycleError returns true if the error is a cycle configuration error.
func IsCycleError(err error) bool {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeCycle
	}
	return false
}

// NewConfigError creates a ConfigError for the given code and identifier.
func NewConfigError(code ConfigErrorCode, name, message string) *ConfigError {
	return &ConfigError{Code: code, Name: name, Message: message}
}

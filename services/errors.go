package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidState is returned when the loader is used out of sequence:
	// a second Load, a re-entrant Load, or a provider requested before a
	// successful Load.
	ErrInvalidState = errors.New("service loader: invalid state")

	// ErrLoadFailed accompanies ErrInvalidState once a Load has failed.
	ErrLoadFailed = errors.New("service loader: previous load failed")

	// ErrLoadAborted is returned to dependency requests still pending when a
	// load is aborted.
	ErrLoadAborted = errors.New("service load aborted")
)

// CircularDependencyError reports services that wait on each other.
// Cycle lists the keys in chain order: each key waits on the next, and the
// last waits on the first.
type CircularDependencyError struct {
	Cycle []ServiceKey
}

func (e *CircularDependencyError) Error() string {
	chain := keyStrings(e.Cycle)
	if len(chain) > 0 {
		chain = append(chain, chain[0])
	}
	return fmt.Sprintf("circular service dependency: %s", strings.Join(chain, " -> "))
}

// MissingDependencyError reports a dependency nobody provides, neither the
// loader nor the external provider.
type MissingDependencyError struct {
	Service    ServiceKey
	Dependency ServiceKey
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("missing service dependency: %s requires %s", e.Service, e.Dependency)
}

// InitializationError wraps a failure raised by a factory, an initializer or
// a Lifecycle OnBoot hook.
type InitializationError struct {
	Key ServiceKey
	Err error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("initialization failed for %s: %v", e.Key, e.Err)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}

// NilServiceError represents a factory that produced a nil instance.
type NilServiceError struct {
	Key ServiceKey
}

func (e *NilServiceError) Error() string {
	return fmt.Sprintf("nil service provided for %s", e.Key)
}

// ConcurrentRequireError is raised when a factory requests a second
// dependency before the first one resolved.
type ConcurrentRequireError struct {
	Key ServiceKey
}

func (e *ConcurrentRequireError) Error() string {
	return fmt.Sprintf("concurrent dependency request from %s", e.Key)
}

// UnrequestedResolutionError is raised when a dependency is delivered to a
// context that has no pending request.
type UnrequestedResolutionError struct {
	Key ServiceKey
}

func (e *UnrequestedResolutionError) Error() string {
	return fmt.Sprintf("resolving unrequested dependency for %s", e.Key)
}

// ServiceNotFoundError represents a provider lookup for an unknown key.
type ServiceNotFoundError struct {
	Key ServiceKey
}

func (e *ServiceNotFoundError) Error() string {
	return fmt.Sprintf("service not found: %s", e.Key)
}

// TypeMismatchError represents a type assertion failure.
type TypeMismatchError struct {
	Key      ServiceKey
	Expected string
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch for %s: expected %s, got %s", e.Key, e.Expected, e.Got)
}

// ShutdownError represents a service shutdown failure.
type ShutdownError struct {
	Key ServiceKey
	Err error
}

func (e *ShutdownError) Error() string {
	return fmt.Sprintf("shutdown failed for %s: %v", e.Key, e.Err)
}

func (e *ShutdownError) Unwrap() error {
	return e.Err
}

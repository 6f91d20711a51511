package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// NotFoundError reports a missing quiz, session or connection target.
type NotFoundError struct {
	Resource string
	Key      string
}

func NewNotFoundError(resource, key string) error {
	return &NotFoundError{Resource: resource, Key: key}
}

func (err NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", err.Resource, err.Key)
}

// DependencyError wraps a failure of an external collaborator (store, detector).
type DependencyError struct {
	Dependency string
	Err        error
	Retryable  bool
}

func NewDependencyError(dependency string, err error, retryable bool) error {
	return &DependencyError{Dependency: dependency, Err: err, Retryable: retryable}
}

func (err DependencyError) Error() string {
	return fmt.Sprintf("%s: %v", err.Dependency, err.Err)
}

func (err DependencyError) Unwrap() error {
	return err.Err
}

// StateError reports a transition attempted from a state that does not allow it.
type StateError struct {
	message string
}

func NewStateError(msg string) error {
	return &StateError{message: msg}
}

func (err StateError) Error() string {
	return err.message
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

func IsValidation(err error) bool {
	_, ok := errors.Cause(err).(*ValidationError)
	return ok
}

func IsState(err error) bool {
	_, ok := errors.Cause(err).(*StateError)
	return ok
}

func IsDependency(err error) bool {
	_, ok := errors.Cause(err).(*DependencyError)
	return ok
}

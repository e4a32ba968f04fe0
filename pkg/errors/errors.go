// Package errors provides custom error types for the confmap system.
// These errors enable programmatic error checking with errors.Is and
// keep failure causes attached through Unwrap.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for the confmap system.
var (
	// ErrNotFound indicates that a requested resource was not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates that configuration failed validation.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrMalformedRecord indicates a source record missing its entity
	// key fields.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrReadOnly indicates an attempt to modify a read-only resource.
	ErrReadOnly = errors.New("read only")
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Option  string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Option != "" {
		return fmt.Sprintf("configuration error for %s: %s", e.Option, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// NewConfigError creates a new ConfigError.
func NewConfigError(option, message string, err error) *ConfigError {
	return &ConfigError{Option: option, Message: message, Err: err}
}

// MalformedRecordError represents a source record that cannot enter
// matching because its entity key fields are unusable.
type MalformedRecordError struct {
	SourceID string
	Name     string
	Reason   string
}

// Error implements the error interface.
func (e *MalformedRecordError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("malformed record %q from %s: %s", e.Name, e.SourceID, e.Reason)
	}
	return fmt.Sprintf("malformed record from %s: %s", e.SourceID, e.Reason)
}

// Is implements errors.Is support.
func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

// NewMalformedRecordError creates a new MalformedRecordError.
func NewMalformedRecordError(sourceID, name, reason string) *MalformedRecordError {
	return &MalformedRecordError{SourceID: sourceID, Name: name, Reason: reason}
}

// NotFoundError represents an error when a resource is not found.
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// IOError represents an error during store I/O operations.
type IOError struct {
	Operation string // "read", "write", "backup", "restore"
	Path      string
	Err       error
}

// Error implements the error interface.
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("IO error during %s: %v", e.Operation, e.Err)
}

// Unwrap implements errors.Unwrap.
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError.
func NewIOError(operation, path string, err error) *IOError {
	return &IOError{Operation: operation, Path: path, Err: err}
}

// ParseError represents an error when decoding persisted data.
type ParseError struct {
	Format  string // "yaml"
	File    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError.
func NewParseError(format, file, message string, err error) *ParseError {
	return &ParseError{Format: format, File: file, Message: message, Err: err}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidConfig checks if an error is a configuration error.
func IsInvalidConfig(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}

// IsMalformedRecord checks if an error marks a malformed source record.
func IsMalformedRecord(err error) bool {
	return errors.Is(err, ErrMalformedRecord)
}

// WrapIO wraps an error as an IOError.
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapParse wraps an error as a ParseError.
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

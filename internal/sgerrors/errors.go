// Package sgerrors defines the error taxonomy of the symbol graph engine.
//
// NotFound is deliberately absent: lookups that find nothing return empty
// results, never errors. Ambiguity is likewise not an error; the resolver
// reports it as a first-class result. What remains are genuine failures:
// malformed collaborator input, configuration problems, and file I/O.
package sgerrors

import (
	"fmt"
	"time"

	"github.com/standardbeagle/sge/internal/types"
)

// ErrorType classifies engine errors
type ErrorType string

const (
	// Input errors
	ErrorTypeContract ErrorType = "contract_violation"
	ErrorTypeDecode   ErrorType = "decode"

	// File errors
	ErrorTypeFileNotFound ErrorType = "file_not_found"
	ErrorTypePermission   ErrorType = "permission"

	// Configuration errors
	ErrorTypeConfig ErrorType = "config"

	// Internal errors
	ErrorTypeInternal ErrorType = "internal"
)

// ContractError represents malformed input from a collaborator, such as a
// symbol table with dangling scope indices or a reference to symbol ID zero.
// The engine returns these instead of panicking; panics never cross the API.
type ContractError struct {
	Type       ErrorType
	FileID     types.FileID
	Operation  string
	Detail     string
	Underlying error
	Timestamp  time.Time
}

// NewContractError creates a new contract violation error
func NewContractError(op, detail string, err error) *ContractError {
	return &ContractError{
		Type:       ErrorTypeContract,
		Operation:  op,
		Detail:     detail,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// WithFile adds the offending file to the error
func (e *ContractError) WithFile(fileID types.FileID) *ContractError {
	e.FileID = fileID
	return e
}

// Error implements the error interface
func (e *ContractError) Error() string {
	if e.FileID != "" {
		return fmt.Sprintf("%s in %s rejected for %s: %s", e.Operation, e.FileID, e.Type, e.Detail)
	}
	return fmt.Sprintf("%s rejected for %s: %s", e.Operation, e.Type, e.Detail)
}

// Unwrap returns the underlying error for errors.Is/As
func (e *ContractError) Unwrap() error {
	return e.Underlying
}

// DecodeError represents a failure to decode a symbol table payload
type DecodeError struct {
	Type       ErrorType
	Path       string
	Underlying error
	Timestamp  time.Time
}

// NewDecodeError creates a new decode error
func NewDecodeError(path string, err error) *DecodeError {
	return &DecodeError{
		Type:       ErrorTypeDecode,
		Path:       path,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode failed for %s: %v", e.Path, e.Underlying)
}

// Unwrap returns the underlying error
func (e *DecodeError) Unwrap() error {
	return e.Underlying
}

// FileError represents a file-related error
type FileError struct {
	Type       ErrorType
	Path       string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

// NewFileError creates a new file error
func NewFileError(op, path string, err error) *FileError {
	errorType := ErrorTypeFileNotFound
	if isPermissionError(err) {
		errorType = ErrorTypePermission
	}

	return &FileError{
		Type:       errorType,
		Path:       path,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

func isPermissionError(err error) bool {
	errStr := err.Error()
	return errStr == "permission denied" || errStr == "access denied"
}

// Error implements the error interface
func (e *FileError) Error() string {
	return fmt.Sprintf("file %s failed for %s: %v", e.Operation, e.Path, e.Underlying)
}

// Unwrap returns the underlying error
func (e *FileError) Unwrap() error {
	return e.Underlying
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
	Timestamp  time.Time
}

// NewConfigError creates a new config error
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{
		Field:      field,
		Value:      value,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value %s): %v", e.Field, e.Value, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Underlying
}

// MultiError collects errors from batch operations
type MultiError struct {
	Errors []error
}

// NewMultiError creates a multi-error, dropping nils
func NewMultiError(errs []error) *MultiError {
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &MultiError{Errors: filtered}
}

// ErrorOrNil returns nil when no errors were collected
func (e *MultiError) ErrorOrNil() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}

// Error implements the error interface
func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
}

// Unwrap returns all errors
func (e *MultiError) Unwrap() []error {
	return e.Errors
}

package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown        ErrorCode = "UNKNOWN"
	ErrInternal       ErrorCode = "INTERNAL"
	ErrInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrAlreadyExists  ErrorCode = "ALREADY_EXISTS"
	ErrNotImplemented ErrorCode = "NOT_IMPLEMENTED"
	ErrSkip           ErrorCode = "SKIP"

	// Application configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"
	ErrConfigValid ErrorCode = "CONFIG_INVALID"

	// Meta ini syntax and data errors
	ErrParse             ErrorCode = "PARSE"
	ErrKeyNotFound       ErrorCode = "KEY_NOT_FOUND"
	ErrTypeConflict      ErrorCode = "TYPE_CONFLICT"
	ErrDelimiterNotFound ErrorCode = "DELIMITER_NOT_FOUND"
	ErrUnresolved        ErrorCode = "UNRESOLVED_INTERPOLATION"
	ErrParameter         ErrorCode = "PARAMETER"
	ErrStaticVariations  ErrorCode = "STATIC_VARIATIONS"

	// Command errors
	ErrCommandRegistration ErrorCode = "COMMAND_REGISTRATION"
	ErrCommandArity        ErrorCode = "COMMAND_ARITY"
	ErrCommandNotFound     ErrorCode = "COMMAND_NOT_FOUND"
	ErrCommandExecute      ErrorCode = "COMMAND_EXECUTE"

	// Expansion errors
	ErrTooManyConfigurations ErrorCode = "TOO_MANY_CONFIGURATIONS"

	// FileSystem errors
	ErrFileNotFound ErrorCode = "FILE_NOT_FOUND"
	ErrFileAccess   ErrorCode = "FILE_ACCESS"
	ErrFileWrite    ErrorCode = "FILE_WRITE"
	ErrDirCreate    ErrorCode = "DIR_CREATE"
)

// MetainiError represents a structured error with code and details
type MetainiError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *MetainiError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *MetainiError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *MetainiError) Is(target error) bool {
	var targetErr *MetainiError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new MetainiError with the given code and message
func New(code ErrorCode, message string) *MetainiError {
	return &MetainiError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new MetainiError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *MetainiError {
	return &MetainiError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a MetainiError
func Wrap(err error, code ErrorCode, message string) *MetainiError {
	if err == nil {
		return nil
	}
	return &MetainiError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *MetainiError {
	if err == nil {
		return nil
	}
	return &MetainiError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *MetainiError) WithDetail(key string, value interface{}) *MetainiError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithDetails adds multiple details to the error
func (e *MetainiError) WithDetails(details map[string]interface{}) *MetainiError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithFile annotates the error with the meta ini file it originates from.
// An already present file detail is kept, so the innermost file wins for
// errors raised inside included files.
func WithFile(err error, path string) error {
	var metainiErr *MetainiError
	if !errors.As(err, &metainiErr) {
		return err
	}
	if _, ok := metainiErr.Details["file"]; !ok {
		metainiErr.WithDetail("file", path)
	}
	return err
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var metainiErr *MetainiError
	if errors.As(err, &metainiErr) {
		return metainiErr.Code == code
	}
	return false
}

// HasErrorCode checks if any error in the chain has the given code
func HasErrorCode(err error, code ErrorCode) bool {
	return errors.Is(err, &MetainiError{Code: code})
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a MetainiError
func GetErrorCode(err error) ErrorCode {
	var metainiErr *MetainiError
	if errors.As(err, &metainiErr) {
		return metainiErr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not a MetainiError
func GetErrorDetails(err error) map[string]interface{} {
	var metainiErr *MetainiError
	if errors.As(err, &metainiErr) {
		return metainiErr.Details
	}
	return nil
}

// Describe renders err for a user: the message followed by the file and
// key details when present.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	details := GetErrorDetails(err)
	if file, ok := details["file"]; ok {
		msg = fmt.Sprintf("%s (file: %v", msg, file)
		if key, ok := details["key"]; ok {
			msg = fmt.Sprintf("%s, key: %v", msg, key)
		}
		msg += ")"
	} else if key, ok := details["key"]; ok {
		msg = fmt.Sprintf("%s (key: %v)", msg, key)
	}
	return msg
}

package common

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Common error types used across filesystem packages
var (
	ErrPathEmpty        = errors.New("path cannot be empty")
	ErrPathTooLong      = errors.New("path too long (max 4096 characters)")
	ErrPathInvalid      = errors.New("path contains invalid characters")
	ErrSourceNotExist   = errors.New("source does not exist")
	ErrDestNotExist     = errors.New("destination does not exist")
	ErrDestExists       = errors.New("destination already exists")
	ErrBackupExists     = errors.New("backup destination already exists")
	ErrNotDirectory     = errors.New("path is not a directory")
	ErrOperationUnsafe  = errors.New("operation is not safe to perform")
	ErrPermissionDenied = errors.New("permission denied")
)

// ErrorUtils provides common error handling utilities
type ErrorUtils struct{}

// NewErrorUtils creates a new ErrorUtils instance
func NewErrorUtils() *ErrorUtils {
	return &ErrorUtils{}
}

// WrapError wraps an error with additional context
func (eu *ErrorUtils) WrapError(err error, message string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	context := fmt.Sprintf(message, args...)
	return fmt.Errorf("%s: %w", context, err)
}

// HandleOperationError logs a failed file operation and wraps it with context
func (eu *ErrorUtils) HandleOperationError(logger zerolog.Logger, err error, operation, path string) error {
	if err == nil {
		return nil
	}

	logger.Error().
		Err(err).
		Str("operation", operation).
		Str("path", path).
		Msg("Operation failed")

	return eu.WrapError(err, "failed to %s %s", operation, path)
}

// ClassifyOSError maps os-level errors onto the package sentinels
func ClassifyOSError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: %v", ErrSourceNotExist, err)
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	default:
		return err
	}
}

// IsCrossDeviceError reports whether a rename failed because src and dst live
// on different devices
func IsCrossDeviceError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "cross-device link") ||
		strings.Contains(msg, "invalid cross-device link")
}

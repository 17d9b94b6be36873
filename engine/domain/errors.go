package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the core error taxonomy.
var (
	// ErrInvalidShape marks raw modality input that violates its
	// documented shape contract. Never recovered internally.
	ErrInvalidShape = errors.New("invalid input shape")
	// ErrStoreUnavailable marks a gateway that could not be reached.
	ErrStoreUnavailable = errors.New("vector store unavailable")
	// ErrStoreQuery marks a gateway call that reached the store but failed.
	ErrStoreQuery = errors.New("vector store query failed")
	// ErrConfig marks malformed configuration, rejected eagerly before
	// any store call.
	ErrConfig = errors.New("invalid configuration")

	ErrUnknownWeather   = errors.New("unknown weather")
	ErrUnknownTimeOfDay = errors.New("unknown time of day")
	ErrUnknownRoadType  = errors.New("unknown road type")
	ErrUnknownEdgeType  = errors.New("unknown edge type")
	ErrMissingSceneID   = errors.New("missing scene id")
)

// ShapeError wraps ErrInvalidShape with the offending modality and detail.
type ShapeError struct {
	Modality Modality
	Detail   string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidShape, e.Modality, e.Detail)
}

func (e *ShapeError) Unwrap() error { return ErrInvalidShape }

// NewShapeError creates a ShapeError.
func NewShapeError(m Modality, format string, args ...any) *ShapeError {
	return &ShapeError{Modality: m, Detail: fmt.Sprintf(format, args...)}
}

// ConfigError wraps ErrConfig with the offending parameter.
type ConfigError struct {
	Param  string
	Detail string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrConfig, e.Param, e.Detail)
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

// NewConfigError creates a ConfigError.
func NewConfigError(param, format string, args ...any) *ConfigError {
	return &ConfigError{Param: param, Detail: fmt.Sprintf(format, args...)}
}

// ValidationError wraps a sentinel with field context.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}

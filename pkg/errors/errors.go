// Unified error handling for the slicer Go migration
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package errors

import (
	"fmt"
)

// ErrorCode represents the category of error
type ErrorCode string

const (
	// Configuration errors
	ErrConfigOption     ErrorCode = "CONFIG_OPTION"
	ErrConfigValidation ErrorCode = "CONFIG_VALIDATION"

	// Filament grouping errors
	ErrTPUCount       ErrorCode = "TPU_COUNT"
	ErrTPUGroupManual ErrorCode = "TPU_GROUP_MANUAL"
	ErrTPUGroupAuto   ErrorCode = "TPU_GROUP_AUTO"
	ErrFilamentMap    ErrorCode = "FILAMENT_MAP"

	// Scheduling errors
	ErrSchedule ErrorCode = "SCHEDULE"
)

// SchedError is the unified error type for the scheduling subsystem
type SchedError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Section is the config section or scheduling pass the error belongs to
	Section string

	// Err wraps the underlying error
	Err error

	// Context provides additional context
	Context map[string]interface{}
}

// Error implements the error interface
func (e *SchedError) Error() string {
	if e.Section != "" {
		return fmt.Sprintf("[%s:%s] %s", e.Code, e.Section, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *SchedError) Unwrap() error {
	return e.Err
}

// SetSection sets the context section
func (e *SchedError) SetSection(section string) *SchedError {
	e.Section = section
	return e
}

// SetContext adds additional context
func (e *SchedError) SetContext(key string, value interface{}) *SchedError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new SchedError
func New(code ErrorCode, message string) *SchedError {
	return &SchedError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, code ErrorCode, message string) *SchedError {
	return &SchedError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsCode reports whether err is a SchedError carrying the given code.
func IsCode(err error, code ErrorCode) bool {
	se, ok := err.(*SchedError)
	return ok && se.Code == code
}

// TPUCountError creates an error for more than one TPU filament in use
func TPUCountError(count int) *SchedError {
	return New(ErrTPUCount, "only supports up to one TPU filament").
		SetContext("tpu_filaments", count)
}

// TPUGroupError creates an error for a TPU filament sharing its extruder.
// The error code distinguishes manual grouping from automatic grouping.
func TPUGroupError(manual bool) *SchedError {
	if manual {
		return New(ErrTPUGroupManual, "manual grouping error: TPU can only be placed in a nozzle alone")
	}
	return New(ErrTPUGroupAuto, "auto grouping error: TPU can only be placed in a nozzle alone")
}

// ConfigOptionError creates an error for a missing or invalid config option
func ConfigOptionError(section, option string) *SchedError {
	return New(ErrConfigOption, fmt.Sprintf("option '%s' not found in section '%s'", option, section)).
		SetSection(section).
		SetContext("option", option)
}

// ConfigValidationError creates an error for config validation failure
func ConfigValidationError(section, option, reason string) *SchedError {
	return New(ErrConfigValidation, fmt.Sprintf("option '%s' in section '%s': %s", option, section, reason)).
		SetSection(section).
		SetContext("option", option)
}

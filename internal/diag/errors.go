// Package diag implements the error taxonomy of spec.md §7: fatal errors
// that abort a run, and recoverable per-unit/per-reference diagnostics that
// are collected into a run's warnings instead.
package diag

import "fmt"

// Code enumerates the recoverable diagnostic kinds of spec.md §7.
type Code string

// Recoverable diagnostic codes.
const (
	CodeMalformedUnit    Code = "MalformedUnit"
	CodeBadAlias         Code = "BadAlias"
	CodeUnknownSpecifier Code = "UnknownSpecifier"
	CodeDanglingSymlink  Code = "DanglingSymlink"
	CodeEscapingSymlink  Code = "EscapingSymlink"
	CodeUnknownDirective Code = "UnknownDirective"
	CodeCycleRecorded    Code = "CycleRecorded"
	CodeTargetNotFound   Code = "TargetNotFound"
	CodeGeneratorSkipped Code = "GeneratorSkipped"
)

// Warning is a recoverable diagnostic attached to a unit record and/or the
// top-level run metadata.
type Warning struct {
	Code    Code   `json:"code"`
	Unit    string `json:"unit,omitempty"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// Error implements the error interface so Warning can also be logged or
// wrapped like any other error.
func (w Warning) Error() string {
	if w.Unit != "" {
		return fmt.Sprintf("%s: %s (%s)", w.Code, w.Message, w.Unit)
	}
	return fmt.Sprintf("%s: %s", w.Code, w.Message)
}

// NewWarning constructs a Warning for the given code/unit/message.
func NewWarning(code Code, unit, message string) Warning {
	return Warning{Code: code, Unit: unit, Message: message}
}

// RootInaccessibleError is a fatal error: the filesystem root could not be
// opened or read.
type RootInaccessibleError struct {
	Root  string
	Cause error
}

func (e *RootInaccessibleError) Error() string {
	return fmt.Sprintf("root %q is inaccessible: %v", e.Root, e.Cause)
}

func (e *RootInaccessibleError) Unwrap() error { return e.Cause }

// RootNotFoundError is a fatal error: the dependency resolver's chosen root
// unit does not exist in the master structure.
type RootNotFoundError struct {
	Unit string
}

func (e *RootNotFoundError) Error() string {
	return fmt.Sprintf("root unit %q not found in master structure", e.Unit)
}

// OutputCollisionError is a fatal error: an artifact path already exists
// and overwrite was not requested (spec.md §6.4 force_overwrite).
type OutputCollisionError struct {
	Path string
}

func (e *OutputCollisionError) Error() string {
	return fmt.Sprintf("output path %q already exists (use force overwrite)", e.Path)
}

// MalformedMSInputError is a fatal error: a master-structure JSON document
// given as input for build_deps could not be parsed.
type MalformedMSInputError struct {
	Path  string
	Cause error
}

func (e *MalformedMSInputError) Error() string {
	return fmt.Sprintf("malformed master-struct input %q: %v", e.Path, e.Cause)
}

func (e *MalformedMSInputError) Unwrap() error { return e.Cause }

// IsRootInaccessible reports whether err is a RootInaccessibleError.
func IsRootInaccessible(err error) bool {
	_, ok := err.(*RootInaccessibleError)
	return ok
}

// IsRootNotFound reports whether err is a RootNotFoundError.
func IsRootNotFound(err error) bool {
	_, ok := err.(*RootNotFoundError)
	return ok
}

// IsOutputCollision reports whether err is an OutputCollisionError.
func IsOutputCollision(err error) bool {
	_, ok := err.(*OutputCollisionError)
	return ok
}

package models

import (
	"errors"
	"fmt"
)

// Resolution failures. A file that fails resolution is dropped from the scan set.
var (
	ErrNoSystemFound = errors.New("no solution marker between file and repository root")
	ErrUnknownSystem = errors.New("solution marker not present in system registry")
	ErrPathMismatch  = errors.New("file is not under the resolved system root")
)

// ErrSystemNotFound is returned by registry lookups that match nothing.
var ErrSystemNotFound = errors.New("system not found")

// ResolutionError describes why a changed file could not be mapped to a system.
type ResolutionError struct {
	Kind     error
	File     string
	Marker   string
	SystemID string
}

func (e *ResolutionError) Error() string {
	switch {
	case e.SystemID != "":
		return fmt.Sprintf("resolve %s (marker %s, system %s): %v", e.File, e.Marker, e.SystemID, e.Kind)
	case e.Marker != "":
		return fmt.Sprintf("resolve %s (marker %s): %v", e.File, e.Marker, e.Kind)
	default:
		return fmt.Sprintf("resolve %s: %v", e.File, e.Kind)
	}
}

func (e *ResolutionError) Unwrap() error { return e.Kind }

// ConfigGenerationError is fatal to one system's scan only.
type ConfigGenerationError struct {
	SystemID string
	Err      error
}

func (e *ConfigGenerationError) Error() string {
	return fmt.Sprintf("generate scanner configuration for %s: %v", e.SystemID, e.Err)
}

func (e *ConfigGenerationError) Unwrap() error { return e.Err }

// ScanExecutionError stops the whole run.
type ScanExecutionError struct {
	SystemID string
	Err      error
}

func (e *ScanExecutionError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.SystemID, e.Err)
}

func (e *ScanExecutionError) Unwrap() error { return e.Err }

// ErrScannerReportedFailure marks scanner output containing the failure marker.
var ErrScannerReportedFailure = errors.New("scanner reported execution failure")

// InfrastructureError wraps a collaborator that could not be reached or loaded
// (VCS inspection, registry load, scanner liveness).
type InfrastructureError struct {
	Component string
	Err       error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Component, e.Err)
}

func (e *InfrastructureError) Unwrap() error { return e.Err }

// IsInfrastructure reports whether err is (or wraps) an InfrastructureError.
func IsInfrastructure(err error) bool {
	var infra *InfrastructureError
	return errors.As(err, &infra)
}

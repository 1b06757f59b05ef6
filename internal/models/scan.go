package models

import (
	"fmt"
	"time"
)

// GeneratedConfig is the scanner configuration materialised for one system.
// It lives only for the duration of that system's scan.
type GeneratedConfig struct {
	SystemID string
	Path     string
	Content  string
	Modules  []string // module titles that received files, sorted
	Residual []string // files of a modular system that matched no module
}

// GenerateRequest carries the per-system inputs for configuration synthesis.
type GenerateRequest struct {
	System       SystemRecord
	Associations []Association
	Modules      []ModuleRecord
	Branch       string
}

// ScanOutcome classifies the result of one scanner invocation.
type ScanOutcome string

const (
	OutcomeClean            ScanOutcome = "clean"
	OutcomeWarnings         ScanOutcome = "warnings"
	OutcomeExecutionFailure ScanOutcome = "execution_failure"
	OutcomeConfigFailure    ScanOutcome = "config_failure"
	OutcomeSkipped          ScanOutcome = "skipped"
)

// ScanResult is the raw result returned by a scanner run.
type ScanResult struct {
	Outcome ScanOutcome
	Output  string
}

// SystemResult records what happened to one system during a gate run.
type SystemResult struct {
	SystemID   string
	Files      []string
	Outcome    ScanOutcome
	ReportPath string
	Severities map[string]int
	Err        error
	Duration   time.Duration
}

// Verdict is the terminal commit decision.
type Verdict int

const (
	VerdictAllow Verdict = iota
	VerdictBlock
)

func (v Verdict) String() string {
	if v == VerdictBlock {
		return "block"
	}
	return "allow"
}

// ExitCode maps the verdict to the hook's process exit code.
func (v Verdict) ExitCode() int {
	if v == VerdictBlock {
		return 1
	}
	return 0
}

// Decision is the aggregated result of a gate run.
type Decision struct {
	RunID      string
	Verdict    Verdict
	Reason     string
	Err        error
	Systems    []SystemResult
	Unresolved []ChangedFile
	Elapsed    time.Duration
}

// FormatElapsed renders a duration as HH:MM:SS.ss.
func FormatElapsed(d time.Duration) string {
	total := d.Seconds()
	hours := int(total) / 3600
	minutes := (int(total) % 3600) / 60
	seconds := total - float64(hours*3600+minutes*60)
	return fmt.Sprintf("%02d:%02d:%05.2f", hours, minutes, seconds)
}

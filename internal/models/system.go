package models

import (
	"path"
	"strings"
)

// SystemRecord is one independently buildable system known to the registry.
// Solution is the declared solution path as authored in the registry
// (for example "Sistemas\Billing\Billing.sln"); separators are normalised on read.
type SystemRecord struct {
	ID       string `json:"ID" yaml:"id"`
	Solution string `json:"Solution" yaml:"solution"`
	Language string `json:"Language" yaml:"language"`
}

// SolutionPath returns the declared solution path with forward slashes.
func (s SystemRecord) SolutionPath() string {
	return strings.ReplaceAll(s.Solution, "\\", "/")
}

// MarkerName returns the solution file name without its directory.
func (s SystemRecord) MarkerName() string {
	return path.Base(s.SolutionPath())
}

// RootPrefix returns the directory part of the declared solution path
// including its trailing slash, or "" when the solution lives at the repository root.
func (s SystemRecord) RootPrefix() string {
	p := s.SolutionPath()
	idx := strings.LastIndex(p, "/")
	if idx < 0 {
		return ""
	}
	return p[:idx+1]
}

// ModuleRecord is a named sub-partition of a system's source tree.
type ModuleRecord struct {
	Name string `toml:"name" json:"name" yaml:"name" validate:"required"`
	Path string `toml:"path" json:"path" yaml:"path" validate:"required"`
}

package models

import (
	"path/filepath"
	"sort"
	"strings"
)

// ChangeKind mirrors the single-letter status git reports for a staged path.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "A"
	ChangeModified ChangeKind = "M"
	ChangeRenamed  ChangeKind = "R"
	ChangeCopied   ChangeKind = "C"
	ChangeTypeFlip ChangeKind = "T"
	ChangeDeleted  ChangeKind = "D"
)

// ParseChangeKind maps a git name-status token (e.g. "R100") to a ChangeKind.
func ParseChangeKind(status string) ChangeKind {
	if status == "" {
		return ChangeModified
	}
	return ChangeKind(strings.ToUpper(status[:1]))
}

// ChangedFile is a repository-relative path staged for commit.
type ChangedFile struct {
	Path string     `json:"path"`
	Kind ChangeKind `json:"kind"`
}

// Ext returns the lower-cased extension of the file.
func (f ChangedFile) Ext() string {
	return strings.ToLower(filepath.Ext(f.Path))
}

// Association pairs a changed file with the system that owns it.
type Association struct {
	SystemID string `json:"system_id"`
	File     string `json:"file"`
}

// FilesFor returns the distinct files associated with systemID, sorted.
func FilesFor(associations []Association, systemID string) []string {
	seen := make(map[string]bool)
	var files []string
	for _, a := range associations {
		if a.SystemID != systemID || seen[a.File] {
			continue
		}
		seen[a.File] = true
		files = append(files, a.File)
	}
	sort.Strings(files)
	return files
}

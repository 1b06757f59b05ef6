package resolver

import (
	"sort"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/sonargate/internal/models"
)

// Unresolved is a changed file that no system claimed
type Unresolved struct {
	File models.ChangedFile
	Err  error
}

// ChangeSet is the outcome of resolving every staged file
type ChangeSet struct {
	Associations []models.Association
	Unresolved   []Unresolved
	Eligible     int
}

// Empty reports whether nothing needs scanning
func (c *ChangeSet) Empty() bool {
	return len(c.Associations) == 0
}

// Systems returns the distinct system identifiers, sorted
func (c *ChangeSet) Systems() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, a := range c.Associations {
		if !seen[a.SystemID] {
			seen[a.SystemID] = true
			ids = append(ids, a.SystemID)
		}
	}
	sort.Strings(ids)
	return ids
}

// Files returns the sorted, distinct files associated with systemID
func (c *ChangeSet) Files(systemID string) []string {
	return models.FilesFor(c.Associations, systemID)
}

// UnresolvedFiles returns the dropped files without their errors
func (c *ChangeSet) UnresolvedFiles() []models.ChangedFile {
	files := make([]models.ChangedFile, 0, len(c.Unresolved))
	for _, u := range c.Unresolved {
		files = append(files, u.File)
	}
	return files
}

// ChangeSetResolver applies a PathResolver to every eligible changed file
type ChangeSetResolver struct {
	paths     *PathResolver
	sourceExt string
	logger    arbor.ILogger
}

// NewChangeSetResolver creates a resolver accepting files with sourceExt
func NewChangeSetResolver(paths *PathResolver, sourceExt string, logger arbor.ILogger) *ChangeSetResolver {
	return &ChangeSetResolver{
		paths:     paths,
		sourceExt: strings.ToLower(sourceExt),
		logger:    logger,
	}
}

// Resolve associates eligible files with systems. A file that cannot be
// resolved is recorded as unresolved and never aborts the remaining files.
func (r *ChangeSetResolver) Resolve(files []models.ChangedFile) *ChangeSet {
	cs := &ChangeSet{}
	seen := make(map[string]bool)

	for _, f := range files {
		if f.Kind == models.ChangeDeleted || f.Ext() != r.sourceExt {
			continue
		}
		if seen[f.Path] {
			continue
		}
		seen[f.Path] = true
		cs.Eligible++

		res, err := r.paths.Resolve(f.Path)
		if err != nil {
			r.logger.Warn().Err(err).Str("file", f.Path).Msg("File not mapped to any known system, excluded from scan")
			cs.Unresolved = append(cs.Unresolved, Unresolved{File: f, Err: err})
			continue
		}

		cs.Associations = append(cs.Associations, models.Association{SystemID: res.System.ID, File: res.File})
	}

	r.logger.Debug().
		Int("changed", len(files)).
		Int("eligible", cs.Eligible).
		Int("associated", len(cs.Associations)).
		Int("unresolved", len(cs.Unresolved)).
		Msg("Resolved change set")

	return cs
}

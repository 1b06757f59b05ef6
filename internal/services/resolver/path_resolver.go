package resolver

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/sonargate/internal/interfaces"
	"github.com/ternarybob/sonargate/internal/models"
)

// Resolution is a changed file together with the system that owns it
type Resolution struct {
	System models.SystemRecord
	File   string
}

// PathResolver maps a repository-relative file to its owning system by walking
// up to the nearest directory holding a solution marker
type PathResolver struct {
	root      string
	markerExt string
	registry  interfaces.SystemRegistry
	logger    arbor.ILogger

	markers map[string]string // directory -> marker file name ("" when none)
}

// NewPathResolver creates a resolver rooted at the repository root
func NewPathResolver(root, markerExt string, registry interfaces.SystemRegistry, logger arbor.ILogger) *PathResolver {
	return &PathResolver{
		root:      filepath.Clean(root),
		markerExt: markerExt,
		registry:  registry,
		logger:    logger,
		markers:   make(map[string]string),
	}
}

// Resolve returns the system owning file, or a *models.ResolutionError
func (r *PathResolver) Resolve(file string) (Resolution, error) {
	rel := path.Clean(strings.ReplaceAll(file, "\\", "/"))
	if rel == ".." || strings.HasPrefix(rel, "../") || path.IsAbs(rel) {
		return Resolution{}, &models.ResolutionError{Kind: models.ErrNoSystemFound, File: file}
	}

	marker, found := r.findMarker(path.Dir(rel))
	if !found {
		return Resolution{}, &models.ResolutionError{Kind: models.ErrNoSystemFound, File: file}
	}

	system, err := r.registry.LookupByMarker(marker)
	if err != nil {
		return Resolution{}, &models.ResolutionError{Kind: models.ErrUnknownSystem, File: file, Marker: marker}
	}

	// Two systems whose solution names overlap can both match the marker;
	// only the one whose root actually contains the file may claim it.
	if !r.registry.Contains(file, system.RootPrefix()) {
		return Resolution{}, &models.ResolutionError{Kind: models.ErrPathMismatch, File: file, Marker: marker, SystemID: system.ID}
	}

	return Resolution{System: system, File: file}, nil
}

// findMarker walks from dir (repository-relative) up to and including the root
func (r *PathResolver) findMarker(dir string) (string, bool) {
	for {
		if marker := r.markerIn(dir); marker != "" {
			return marker, true
		}
		if dir == "." || dir == "/" || dir == "" {
			return "", false
		}
		dir = path.Dir(dir)
	}
}

// markerIn returns the first marker file among dir's immediate children.
// os.ReadDir returns entries sorted by name, which makes ties deterministic.
func (r *PathResolver) markerIn(dir string) string {
	if marker, ok := r.markers[dir]; ok {
		return marker
	}

	marker := ""
	entries, err := os.ReadDir(filepath.Join(r.root, filepath.FromSlash(dir)))
	if err != nil {
		r.logger.Debug().Err(err).Str("dir", dir).Msg("Cannot read directory while searching for solution marker")
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), r.markerExt) {
			marker = entry.Name()
			break
		}
	}

	r.markers[dir] = marker
	return marker
}

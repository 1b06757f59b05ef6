package registry

import (
	"fmt"
	"path"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/sonargate/internal/interfaces"
	"github.com/ternarybob/sonargate/internal/models"
)

// Registry is an in-memory, read-only lookup of systems and modules
type Registry struct {
	systems []models.SystemRecord
	modules []models.ModuleRecord
	match   interfaces.MatchStrategy
	logger  arbor.ILogger
}

var _ interfaces.SystemRegistry = (*Registry)(nil)

// New builds a registry. Records are copied; duplicates are kept and the first wins on lookup.
func New(systems []models.SystemRecord, modules []models.ModuleRecord, match interfaces.MatchStrategy, logger arbor.ILogger) *Registry {
	r := &Registry{
		systems: append([]models.SystemRecord(nil), systems...),
		modules: append([]models.ModuleRecord(nil), modules...),
		match:   match,
		logger:  logger,
	}

	seen := make(map[string]bool, len(systems))
	for _, s := range systems {
		key := strings.ToUpper(s.ID)
		if seen[key] {
			logger.Warn().Str("system", s.ID).Msg("Duplicate system in registry, first entry wins")
		}
		seen[key] = true
	}

	logger.Debug().
		Int("systems", len(r.systems)).
		Int("modules", len(r.modules)).
		Str("match_strategy", match.Name()).
		Msg("System registry loaded")

	return r
}

// LookupByMarker resolves a solution marker file name to its system
func (r *Registry) LookupByMarker(markerFileName string) (models.SystemRecord, error) {
	stem := strings.TrimSuffix(path.Base(markerFileName), path.Ext(markerFileName))
	for _, s := range r.systems {
		if r.match.MatchName(s.Solution, stem) {
			return s, nil
		}
	}
	return models.SystemRecord{}, fmt.Errorf("marker %s: %w", markerFileName, models.ErrSystemNotFound)
}

// LookupByID returns the system with the given identifier (case-insensitive)
func (r *Registry) LookupByID(id string) (models.SystemRecord, error) {
	for _, s := range r.systems {
		if strings.EqualFold(s.ID, id) {
			return s, nil
		}
	}
	return models.SystemRecord{}, fmt.Errorf("system %s: %w", id, models.ErrSystemNotFound)
}

// Modules returns the module records in declaration order
func (r *Registry) Modules() []models.ModuleRecord {
	return append([]models.ModuleRecord(nil), r.modules...)
}

// Contains reports whether file lies under root
func (r *Registry) Contains(file, root string) bool {
	return r.match.MatchPath(file, root)
}

package interfaces

import (
	"context"

	"github.com/ternarybob/sonargate/internal/models"
)

// RegistryLoader supplies the systems known to the repository, once per run.
type RegistryLoader interface {
	Load(ctx context.Context) ([]models.SystemRecord, error)
}

// SystemRegistry is a read-only lookup of systems and modules.
type SystemRegistry interface {
	// LookupByMarker returns the first system whose declared solution matches the
	// marker file name (extension stripped). Returns models.ErrSystemNotFound otherwise.
	LookupByMarker(markerFileName string) (models.SystemRecord, error)

	// LookupByID returns the system with the given identifier.
	LookupByID(id string) (models.SystemRecord, error)

	// Modules returns module records in declaration order.
	Modules() []models.ModuleRecord

	// Contains reports whether file lies under root according to the registry's
	// matching strategy.
	Contains(file, root string) bool
}

// MatchStrategy decides how declared names and paths are compared with observed ones.
type MatchStrategy interface {
	// Name identifies the strategy in logs and configuration.
	Name() string
	// MatchName reports whether observed (a marker stem) identifies declared (a solution path).
	MatchName(declared, observed string) bool
	// MatchPath reports whether path lies under prefix.
	MatchPath(path, prefix string) bool
}

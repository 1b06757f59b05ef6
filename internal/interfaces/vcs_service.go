package interfaces

import (
	"context"

	"github.com/ternarybob/sonargate/internal/models"
)

// VCS inspects the repository the commit is being made in.
type VCS interface {
	// ChangedFiles returns files staged for the pending commit.
	ChangedFiles(ctx context.Context) ([]models.ChangedFile, error)
	// BranchName returns the active branch.
	BranchName(ctx context.Context) (string, error)
	// IsMerging reports whether a merge is in progress.
	IsMerging(ctx context.Context) (bool, error)
	// StatusText returns the human-readable status output.
	StatusText(ctx context.Context) (string, error)
}

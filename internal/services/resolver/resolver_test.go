package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/sonargate/internal/models"
	"github.com/ternarybob/sonargate/internal/services/registry"
)

// createRepo lays out a repository with the given files (contents are irrelevant)
func createRepo(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		full := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("x"), 0o644))
	}
	return root
}

func newRegistry(systems ...models.SystemRecord) *registry.Registry {
	return registry.New(systems, nil, registry.SubstringMatch{}, arbor.NewLogger())
}

var (
	billing     = models.SystemRecord{ID: "BILLING", Solution: `Sistemas\Billing\Billing.sln`, Language: "cs"}
	billingCore = models.SystemRecord{ID: "BILLINGCORE", Solution: `Sistemas\Billing.Core\Billing.Core.sln`, Language: "cs"}
)

func standardRepo(t *testing.T) string {
	return createRepo(t,
		"Sistemas/Billing/Billing.sln",
		"Sistemas/Billing/Api/Controllers/Invoice.cs",
		"Sistemas/Billing.Core/Billing.Core.sln",
		"Sistemas/Billing.Core/Core.cs",
		"Sistemas/Orphan/Lost.cs",
		"Sistemas/Payroll/Payroll.sln",
		"Sistemas/Payroll/Pay.cs",
		"Legacy/Billing/Billing.sln",
		"Legacy/Billing/Old.cs",
	)
}

func TestPathResolver_Resolve(t *testing.T) {
	root := standardRepo(t)
	r := NewPathResolver(root, ".sln", newRegistry(billing, billingCore), arbor.NewLogger())

	tests := []struct {
		name    string
		file    string
		wantID  string
		wantErr error
	}{
		{"nested file walks up to marker", "Sistemas/Billing/Api/Controllers/Invoice.cs", "BILLING", nil},
		{"file beside marker", "Sistemas/Billing.Core/Core.cs", "BILLINGCORE", nil},
		{"directory missing on disk still walks up", "Sistemas/Billing/Gone/New.cs", "BILLING", nil},
		{"no marker up to root", "Sistemas/Orphan/Lost.cs", "", models.ErrNoSystemFound},
		{"marker not registered", "Sistemas/Payroll/Pay.cs", "", models.ErrUnknownSystem},
		{"marker matches a system rooted elsewhere", "Legacy/Billing/Old.cs", "", models.ErrPathMismatch},
		{"escaping the repository", "../outside/Evil.cs", "", models.ErrNoSystemFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Resolve(tt.file)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				var resErr *models.ResolutionError
				require.ErrorAs(t, err, &resErr)
				assert.Equal(t, tt.file, resErr.File)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, res.System.ID)
			assert.Equal(t, tt.file, res.File)
		})
	}
}

func TestPathResolver_MarkerAtRepositoryRoot(t *testing.T) {
	root := createRepo(t, "Root.sln", "Program.cs", "src/Deep/Thing.cs")
	rootSystem := models.SystemRecord{ID: "ROOT", Solution: "Root.sln", Language: "cs"}
	r := NewPathResolver(root, ".sln", newRegistry(rootSystem), arbor.NewLogger())

	for _, file := range []string{"Program.cs", "src/Deep/Thing.cs"} {
		res, err := r.Resolve(file)
		require.NoError(t, err, file)
		assert.Equal(t, "ROOT", res.System.ID)
	}
}

func TestPathResolver_RootFileWithoutMarker(t *testing.T) {
	root := createRepo(t, "Program.cs")
	r := NewPathResolver(root, ".sln", newRegistry(billing), arbor.NewLogger())

	_, err := r.Resolve("Program.cs")
	assert.ErrorIs(t, err, models.ErrNoSystemFound)
}

func TestChangeSetResolver_Resolve(t *testing.T) {
	root := standardRepo(t)
	paths := NewPathResolver(root, ".sln", newRegistry(billing, billingCore), arbor.NewLogger())
	r := NewChangeSetResolver(paths, ".cs", arbor.NewLogger())

	files := []models.ChangedFile{
		{Path: "Sistemas/Billing.Core/Core.cs", Kind: models.ChangeModified},
		{Path: "Sistemas/Billing/Api/Controllers/Invoice.cs", Kind: models.ChangeAdded},
		{Path: "Sistemas/Billing/Api/Controllers/Invoice.cs", Kind: models.ChangeModified},
		{Path: "Sistemas/Billing/Removed.cs", Kind: models.ChangeDeleted},
		{Path: "Sistemas/Billing/README.md", Kind: models.ChangeModified},
		{Path: "Sistemas/Billing/Api/Upper.CS", Kind: models.ChangeRenamed},
		{Path: "Sistemas/Orphan/Lost.cs", Kind: models.ChangeModified},
		{Path: "Sistemas/Payroll/Pay.cs", Kind: models.ChangeModified},
	}

	cs := r.Resolve(files)

	assert.False(t, cs.Empty())
	assert.Equal(t, 5, cs.Eligible)
	assert.Equal(t, []string{"BILLING", "BILLINGCORE"}, cs.Systems())
	assert.Equal(t, []string{"Sistemas/Billing/Api/Controllers/Invoice.cs", "Sistemas/Billing/Api/Upper.CS"}, cs.Files("BILLING"))
	assert.Equal(t, []string{"Sistemas/Billing.Core/Core.cs"}, cs.Files("BILLINGCORE"))

	require.Len(t, cs.Unresolved, 2)
	assert.Equal(t, "Sistemas/Orphan/Lost.cs", cs.Unresolved[0].File.Path)
	assert.ErrorIs(t, cs.Unresolved[0].Err, models.ErrNoSystemFound)
	assert.ErrorIs(t, cs.Unresolved[1].Err, models.ErrUnknownSystem)

	// Every eligible file is either associated exactly once or unresolved
	assert.Equal(t, cs.Eligible, len(cs.Associations)+len(cs.Unresolved))
}

func TestChangeSetResolver_NothingToScan(t *testing.T) {
	root := standardRepo(t)
	paths := NewPathResolver(root, ".sln", newRegistry(billing), arbor.NewLogger())
	r := NewChangeSetResolver(paths, ".cs", arbor.NewLogger())

	cs := r.Resolve([]models.ChangedFile{
		{Path: "docs/readme.md", Kind: models.ChangeModified},
		{Path: "Sistemas/Orphan/Lost.cs", Kind: models.ChangeModified},
	})

	assert.True(t, cs.Empty())
	assert.Empty(t, cs.Systems())
	assert.Len(t, cs.UnresolvedFiles(), 1)
}

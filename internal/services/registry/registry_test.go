package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/sonargate/internal/common"
	"github.com/ternarybob/sonargate/internal/models"
)

func testSystems() []models.SystemRecord {
	return []models.SystemRecord{
		{ID: "BILLING", Solution: `Sistemas\Billing\Billing.sln`, Language: "cs"},
		{ID: "BILLINGCORE", Solution: `Sistemas\Billing.Core\Billing.Core.sln`, Language: "cs"},
		{ID: "MSSNET", Solution: `Sistemas\Mss\MssNet.sln`, Language: "cs"},
	}
}

func newTestRegistry(t *testing.T, strategy string) *Registry {
	t.Helper()
	match, err := NewMatchStrategy(strategy)
	require.NoError(t, err)
	modules := []models.ModuleRecord{{Name: "webservices", Path: "Sistemas/Mss/WebServices"}}
	return New(testSystems(), modules, match, arbor.NewLogger())
}

func TestLookupByMarker_Substring(t *testing.T) {
	r := newTestRegistry(t, StrategySubstring)

	tests := []struct {
		name   string
		marker string
		wantID string
	}{
		{"first of several containing the stem wins", "Billing.sln", "BILLING"},
		{"case insensitive", "mssnet.sln", "MSSNET"},
		{"dotted stem", "Billing.Core.sln", "BILLINGCORE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.LookupByMarker(tt.marker)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestLookupByMarker_NotFound(t *testing.T) {
	r := newTestRegistry(t, StrategySubstring)

	_, err := r.LookupByMarker("Payroll.sln")
	assert.ErrorIs(t, err, models.ErrSystemNotFound)
}

func TestLookupByMarker_Segment(t *testing.T) {
	r := newTestRegistry(t, StrategySegment)

	got, err := r.LookupByMarker("Billing.Core.sln")
	require.NoError(t, err)
	assert.Equal(t, "BILLINGCORE", got.ID)

	// A partial stem is not enough for segment matching
	_, err = r.LookupByMarker("Mss.sln")
	assert.ErrorIs(t, err, models.ErrSystemNotFound)
}

func TestLookupByID(t *testing.T) {
	r := newTestRegistry(t, StrategySubstring)

	got, err := r.LookupByID("mssnet")
	require.NoError(t, err)
	assert.Equal(t, "MSSNET", got.ID)

	_, err = r.LookupByID("UNKNOWN")
	assert.ErrorIs(t, err, models.ErrSystemNotFound)
}

func TestModules_ReturnsCopy(t *testing.T) {
	r := newTestRegistry(t, StrategySubstring)

	modules := r.Modules()
	require.Len(t, modules, 1)
	modules[0].Name = "changed"

	assert.Equal(t, "webservices", r.Modules()[0].Name)
}

func TestSystemRecord_RootPrefix(t *testing.T) {
	assert.Equal(t, "Sistemas/Billing/", testSystems()[0].RootPrefix())
	assert.Equal(t, "", models.SystemRecord{Solution: "Root.sln"}.RootPrefix())
}

func TestMatchPath(t *testing.T) {
	tests := []struct {
		name      string
		strategy  string
		path      string
		prefix    string
		wantMatch bool
	}{
		{"substring contained", StrategySubstring, "Sistemas/Billing/Api/Foo.cs", "Sistemas/Billing/", true},
		{"substring case insensitive", StrategySubstring, "sistemas/billing/Foo.cs", `Sistemas\Billing\`, true},
		{"substring sibling rejected", StrategySubstring, "Sistemas/Billing/Foo.cs", "Sistemas/Billing.Core/", false},
		{"substring empty prefix", StrategySubstring, "Foo.cs", "", true},
		{"segment prefix", StrategySegment, "Sistemas/Billing/Foo.cs", "Sistemas/Billing", true},
		{"segment partial segment rejected", StrategySegment, "Sistemas/BillingX/Foo.cs", "Sistemas/Billing", false},
		{"segment nested not leading", StrategySegment, "other/Sistemas/Billing/Foo.cs", "Sistemas/Billing", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, err := NewMatchStrategy(tt.strategy)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMatch, match.MatchPath(tt.path, tt.prefix))
		})
	}
}

func TestNewMatchStrategy_Unknown(t *testing.T) {
	_, err := NewMatchStrategy("regex")
	assert.Error(t, err)
}

func TestFileLoader_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "systems.yaml")
	content := `systems:
  - id: BILLING
    solution: Sistemas\Billing\Billing.sln
    language: cs
  - id: MSSNET
    solution: Sistemas/Mss/MssNet.sln
    language: cs
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	loader, err := NewLoader(common.RegistryConfig{File: path}, dir, arbor.NewLogger())
	require.NoError(t, err)

	systems, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, systems, 2)
	assert.Equal(t, "BILLING", systems[0].ID)
	assert.Equal(t, "Sistemas/Mss/", systems[1].RootPrefix())
}

func TestFileLoader_JSONSingleObject(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "systems.json")
	content := "\xEF\xBB\xBF" + `{"ID":"BILLING","Solution":"Sistemas\\Billing\\Billing.sln","Language":"cs"}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	systems, err := (&FileLoader{Path: path, logger: arbor.NewLogger()}).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, systems, 1)
	assert.Equal(t, "Sistemas/Billing/", systems[0].RootPrefix())
}

func TestFileLoader_MissingFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "systems.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"ID":"BILLING"}]`), 0o644))

	_, err := (&FileLoader{Path: path, logger: arbor.NewLogger()}).Load(context.Background())
	assert.Error(t, err)
}

func TestNewLoader_Unconfigured(t *testing.T) {
	_, err := NewLoader(common.RegistryConfig{}, ".", arbor.NewLogger())
	assert.Error(t, err)
}

package vcs

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/sonargate/internal/models"
)

func TestParseNameStatus(t *testing.T) {
	out := []byte("M\x00src/a.cs\x00A\x00src/b.cs\x00R087\x00old/c.cs\x00new/c.cs\x00D\x00gone.cs\x00")

	files, err := parseNameStatus(out)
	require.NoError(t, err)

	assert.Equal(t, []models.ChangedFile{
		{Path: "src/a.cs", Kind: models.ChangeModified},
		{Path: "src/b.cs", Kind: models.ChangeAdded},
		{Path: "new/c.cs", Kind: models.ChangeRenamed},
		{Path: "gone.cs", Kind: models.ChangeDeleted},
	}, files)
}

func TestParseNameStatus_Malformed(t *testing.T) {
	_, err := parseNameStatus([]byte("R100\x00only-old.cs\x00"))
	assert.Error(t, err)
}

func TestParseNameStatus_Empty(t *testing.T) {
	files, err := parseNameStatus(nil)
	require.NoError(t, err)
	assert.Empty(t, files)
}

// gitRepo initialises a throwaway repository with one commit
func gitRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com")
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}
	run("init", "-q", "-b", "main")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep.cs"), []byte("a"), 0o644))
	run("add", "keep.cs")
	run("commit", "-q", "-m", "init")
	return dir
}

func TestGit_StagedChanges(t *testing.T) {
	dir := gitRepo(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "New.cs"), []byte("b"), 0o644))
	require.NoError(t, exec.Command("git", "-C", dir, "add", "src/New.cs").Run())

	g := NewGit(dir, arbor.NewLogger())
	ctx := context.Background()

	files, err := g.ChangedFiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.ChangedFile{{Path: "src/New.cs", Kind: models.ChangeAdded}}, files)

	branch, err := g.BranchName(ctx)
	require.NoError(t, err)
	assert.Equal(t, "main", branch)

	merging, err := g.IsMerging(ctx)
	require.NoError(t, err)
	assert.False(t, merging)

	status, err := g.StatusText(ctx)
	require.NoError(t, err)
	assert.Contains(t, status, "src/New.cs")
}

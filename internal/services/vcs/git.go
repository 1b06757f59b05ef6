package vcs

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/sonargate/internal/interfaces"
	"github.com/ternarybob/sonargate/internal/models"
)

// Git inspects a repository through the git command line
type Git struct {
	repoPath string
	binary   string
	logger   arbor.ILogger
}

var _ interfaces.VCS = (*Git)(nil)

// NewGit creates a git collaborator for repoPath
func NewGit(repoPath string, logger arbor.ILogger) *Git {
	return &Git{
		repoPath: repoPath,
		binary:   "git",
		logger:   logger,
	}
}

// ChangedFiles lists files staged against HEAD. Renames and copies report the new path.
func (g *Git) ChangedFiles(ctx context.Context) ([]models.ChangedFile, error) {
	out, err := g.run(ctx, "diff", "--cached", "--name-status", "-M", "-z")
	if err != nil {
		return nil, err
	}
	files, err := parseNameStatus(out)
	if err != nil {
		return nil, err
	}
	g.logger.Debug().Int("files", len(files)).Msg("Read staged changes")
	return files, nil
}

// BranchName returns the active branch name
func (g *Git) BranchName(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// IsMerging reports whether MERGE_HEAD exists
func (g *Git) IsMerging(ctx context.Context) (bool, error) {
	cmd := exec.CommandContext(ctx, g.binary, "-C", g.repoPath, "rev-parse", "-q", "--verify", "MERGE_HEAD")
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return false, nil
		}
		return false, fmt.Errorf("git rev-parse MERGE_HEAD: %w", err)
	}
	return true, nil
}

// StatusText returns the long-form status output
func (g *Git) StatusText(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "status")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (g *Git) run(ctx context.Context, args ...string) ([]byte, error) {
	full := append([]string{"-C", g.repoPath}, args...)
	cmd := exec.CommandContext(ctx, g.binary, full...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// parseNameStatus decodes NUL-separated `git diff --name-status -z` output:
// STATUS\0path\0 or, for renames and copies, STATUS\0old\0new\0
func parseNameStatus(out []byte) ([]models.ChangedFile, error) {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(splitNUL)

	var files []models.ChangedFile
	for scanner.Scan() {
		status := scanner.Text()
		if status == "" {
			continue
		}
		kind := models.ParseChangeKind(status)

		if !scanner.Scan() {
			return nil, fmt.Errorf("malformed name-status output after %q", status)
		}
		path := scanner.Text()

		if kind == models.ChangeRenamed || kind == models.ChangeCopied {
			if !scanner.Scan() {
				return nil, fmt.Errorf("malformed rename entry for %q", path)
			}
			path = scanner.Text()
		}

		files = append(files, models.ChangedFile{Path: path, Kind: kind})
	}
	return files, scanner.Err()
}

func splitNUL(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, 0); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

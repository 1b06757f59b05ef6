package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"
	"gopkg.in/yaml.v3"

	"github.com/ternarybob/sonargate/internal/common"
	"github.com/ternarybob/sonargate/internal/interfaces"
	"github.com/ternarybob/sonargate/internal/models"
)

// NewLoader picks the registry source from configuration. A file wins over a command.
func NewLoader(cfg common.RegistryConfig, workDir string, logger arbor.ILogger) (interfaces.RegistryLoader, error) {
	switch {
	case cfg.File != "":
		return &FileLoader{Path: cfg.File, logger: logger}, nil
	case len(cfg.Command) > 0:
		return &CommandLoader{Args: cfg.Command, Dir: workDir, logger: logger}, nil
	default:
		return nil, fmt.Errorf("registry source not configured: set registry.file or registry.command")
	}
}

// FileLoader reads systems from a YAML or JSON file
type FileLoader struct {
	Path   string
	logger arbor.ILogger
}

// Load reads and decodes the registry file
func (l *FileLoader) Load(ctx context.Context) ([]models.SystemRecord, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file %s: %w", l.Path, err)
	}

	var systems []models.SystemRecord
	switch strings.ToLower(filepath.Ext(l.Path)) {
	case ".yaml", ".yml":
		var doc struct {
			Systems []models.SystemRecord `yaml:"systems"`
		}
		if err := yaml.Unmarshal(stripBOM(data), &doc); err != nil {
			return nil, fmt.Errorf("failed to parse registry file %s: %w", l.Path, err)
		}
		systems = doc.Systems
	case ".json":
		systems, err = decodeJSONSystems(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse registry file %s: %w", l.Path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported registry file type: %s", l.Path)
	}

	l.logger.Debug().Str("file", l.Path).Int("systems", len(systems)).Msg("Loaded registry file")
	return validateSystems(systems)
}

// CommandLoader runs an external command (for example a PowerShell function piped
// through ConvertTo-Json) and decodes its standard output as JSON
type CommandLoader struct {
	Args   []string
	Dir    string
	logger arbor.ILogger
}

// Load executes the command and decodes its output
func (l *CommandLoader) Load(ctx context.Context) ([]models.SystemRecord, error) {
	cmd := exec.CommandContext(ctx, l.Args[0], l.Args[1:]...)
	cmd.Dir = l.Dir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("registry command %s failed: %w: %s", l.Args[0], err, strings.TrimSpace(stderr.String()))
	}

	systems, err := decodeJSONSystems(out)
	if err != nil {
		return nil, fmt.Errorf("failed to parse registry command output: %w", err)
	}

	l.logger.Debug().Strs("command", l.Args).Int("systems", len(systems)).Msg("Loaded registry from command")
	return validateSystems(systems)
}

// decodeJSONSystems accepts an array of records or a single record;
// ConvertTo-Json collapses one-element arrays into an object.
func decodeJSONSystems(data []byte) ([]models.SystemRecord, error) {
	data = bytes.TrimSpace(stripBOM(data))
	if len(data) == 0 {
		return nil, fmt.Errorf("empty registry document")
	}

	if data[0] == '{' {
		var single models.SystemRecord
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, err
		}
		return []models.SystemRecord{single}, nil
	}

	var systems []models.SystemRecord
	if err := json.Unmarshal(data, &systems); err != nil {
		return nil, err
	}
	return systems, nil
}

func validateSystems(systems []models.SystemRecord) ([]models.SystemRecord, error) {
	for i, s := range systems {
		if s.ID == "" || s.Solution == "" {
			return nil, fmt.Errorf("registry record %d: id and solution are required", i)
		}
	}
	return systems, nil
}

func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
}

package generator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/sonargate/internal/common"
	"github.com/ternarybob/sonargate/internal/interfaces"
	"github.com/ternarybob/sonargate/internal/models"
)

// ConfigFileSuffix is appended to the system id to name generated files
const ConfigFileSuffix = ".sonarsource.properties"

// Options holds the static inputs of configuration synthesis
type Options struct {
	TemplatePath   string
	OutputDir      string
	ServerURL      string
	Login          string
	Password       string
	RepositoryRoot string
	ModularSystem  string
}

// Service generates per-system scanner configuration files from a template
type Service struct {
	opts   Options
	match  interfaces.MatchStrategy
	logger arbor.ILogger
}

var _ interfaces.ConfigGenerator = (*Service)(nil)

// NewService creates a configuration generator
func NewService(opts Options, match interfaces.MatchStrategy, logger arbor.ILogger) *Service {
	return &Service{
		opts:   opts,
		match:  match,
		logger: logger,
	}
}

// ConfigPath returns the fixed path of systemID's generated configuration
func (s *Service) ConfigPath(systemID string) string {
	return filepath.Join(s.opts.OutputDir, systemID+ConfigFileSuffix)
}

// Generate renders and writes the configuration for req.System
func (s *Service) Generate(ctx context.Context, req models.GenerateRequest) (*models.GeneratedConfig, error) {
	systemID := req.System.ID

	template, err := os.ReadFile(s.opts.TemplatePath)
	if err != nil {
		return nil, &models.ConfigGenerationError{SystemID: systemID, Err: fmt.Errorf("read template: %w", err)}
	}

	cfg, err := s.Build(req, string(template))
	if err != nil {
		return nil, &models.ConfigGenerationError{SystemID: systemID, Err: err}
	}

	if err := common.WriteFileAtomic(cfg.Path, []byte(cfg.Content)); err != nil {
		return nil, &models.ConfigGenerationError{SystemID: systemID, Err: fmt.Errorf("write %s: %w", cfg.Path, err)}
	}

	s.logger.Info().
		Str("system", systemID).
		Str("file", cfg.Path).
		Strs("modules", cfg.Modules).
		Msg("Scanner configuration created")

	return cfg, nil
}

// Build renders the configuration in memory. Identical inputs give identical output.
func (s *Service) Build(req models.GenerateRequest, template string) (*models.GeneratedConfig, error) {
	systemID := req.System.ID
	files := models.FilesFor(req.Associations, systemID)

	var groups []ModuleGroup
	var residual []string
	if s.isModular(systemID) && len(req.Modules) > 0 {
		var err error
		groups, residual, err = Partition(files, req.Modules, s.match)
		if err != nil {
			return nil, err
		}
	}

	modulesBlock := RenderModules(groups)
	fileList := strings.Join(files, ",")
	sources := "sonar.sources=" + fileList
	if modulesBlock != "" {
		sources = ""
		if len(residual) > 0 {
			s.logger.Warn().
				Str("system", systemID).
				Strs("files", residual).
				Msg("Files outside every module are not scanned when modules are configured")
		}
	} else {
		residual = nil
	}

	values := map[string]string{
		PlaceholderURL:        s.opts.ServerURL,
		PlaceholderLogin:      s.opts.Login,
		PlaceholderPassword:   s.opts.Password,
		PlaceholderRepository: s.opts.RepositoryRoot,
		PlaceholderSystem:     systemID,
		PlaceholderBranch:     req.Branch,
		PlaceholderSources:    sources,
		PlaceholderFiles:      fileList,
		PlaceholderLanguage:   req.System.Language,
		PlaceholderModules:    modulesBlock,
	}

	titles := make([]string, 0, len(groups))
	for _, g := range groups {
		titles = append(titles, g.Title)
	}

	return &models.GeneratedConfig{
		SystemID: systemID,
		Path:     s.ConfigPath(systemID),
		Content:  Render(template, values),
		Modules:  titles,
		Residual: residual,
	}, nil
}

// Remove deletes a generated configuration file
func (s *Service) Remove(cfg *models.GeneratedConfig) error {
	if cfg == nil {
		return nil
	}
	if err := common.RemoveFile(cfg.Path); err != nil {
		return fmt.Errorf("remove %s: %w", cfg.Path, err)
	}
	s.logger.Debug().Str("file", cfg.Path).Msg("Scanner configuration removed")
	return nil
}

func (s *Service) isModular(systemID string) bool {
	return s.opts.ModularSystem != "" && strings.EqualFold(systemID, s.opts.ModularSystem)
}

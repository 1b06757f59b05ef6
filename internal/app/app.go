package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/sonargate/internal/common"
	"github.com/ternarybob/sonargate/internal/interfaces"
	"github.com/ternarybob/sonargate/internal/models"
	"github.com/ternarybob/sonargate/internal/services/gate"
	"github.com/ternarybob/sonargate/internal/services/generator"
	"github.com/ternarybob/sonargate/internal/services/registry"
	"github.com/ternarybob/sonargate/internal/services/scanner"
	"github.com/ternarybob/sonargate/internal/services/vcs"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	RepositoryRoot string

	Match      interfaces.MatchStrategy
	Loader     interfaces.RegistryLoader
	VCS        interfaces.VCS
	Generator  *generator.Service
	Scanner    *scanner.Service
	Summarizer *scanner.ReportSummarizer
	Gate       *gate.Orchestrator
}

// New initializes the application from a validated configuration
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	root, err := filepath.Abs(cfg.Repository.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve repository root %s: %w", cfg.Repository.Root, err)
	}

	app := &App{
		Config:         cfg,
		Logger:         logger,
		RepositoryRoot: root,
	}

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.Logger.Debug().
		Str("repository", app.RepositoryRoot).
		Str("match_strategy", app.Match.Name()).
		Str("scanner", cfg.Sonar.Scanner).
		Bool("fail_open", cfg.Gate.FailOpen).
		Bool("dry_run", cfg.Gate.DryRun).
		Msg("Application initialized")

	return app, nil
}

func (a *App) initServices() error {
	var err error
	cfg := a.Config

	a.Match, err = registry.NewMatchStrategy(cfg.Gate.MatchStrategy)
	if err != nil {
		return err
	}

	registryCfg := cfg.Registry
	if registryCfg.File != "" {
		registryCfg.File = a.resolve(registryCfg.File)
	}
	a.Loader, err = registry.NewLoader(registryCfg, a.RepositoryRoot, a.Logger)
	if err != nil {
		return err
	}

	a.VCS = vcs.NewGit(a.RepositoryRoot, a.Logger)

	a.Generator = generator.NewService(generator.Options{
		TemplatePath:   a.resolve(cfg.Sonar.Template),
		OutputDir:      a.resolve(cfg.Sonar.Folder),
		ServerURL:      cfg.Sonar.URL,
		Login:          cfg.Sonar.Login,
		Password:       cfg.Sonar.Password,
		RepositoryRoot: filepath.ToSlash(a.RepositoryRoot) + "/",
		ModularSystem:  cfg.Gate.ModularSystem,
	}, a.Match, a.Logger)

	a.Scanner = scanner.NewService(scanner.Options{
		ServerURL:       cfg.Sonar.URL,
		Command:         cfg.Sonar.Scanner,
		Args:            cfg.Sonar.ScannerArgs,
		WorkDir:         a.RepositoryRoot,
		ReportRoot:      a.resolve(cfg.Sonar.ReportRoot()),
		LivenessTimeout: cfg.Sonar.LivenessTimeoutDuration(),
		ScanTimeout:     cfg.Sonar.ScanTimeoutDuration(),
		FailureMarker:   cfg.Sonar.FailureMarker,
		WarningMarkers:  cfg.Sonar.WarningMarkers,
	}, a.Logger)

	a.Summarizer = scanner.NewReportSummarizer(cfg.Sonar.SeveritySelectors, a.Logger)

	a.Gate = gate.NewOrchestrator(gate.Options{
		Enabled:         cfg.Gate.Enabled,
		FailOpen:        cfg.Gate.FailOpen,
		DryRun:          cfg.Gate.DryRun,
		RepositoryRoot:  a.RepositoryRoot,
		SourceExtension: cfg.Gate.SourceExtension,
		MarkerExtension: cfg.Gate.MarkerExtension,
		MergeMarker:     cfg.Gate.MergeMarker,
		WorkDir:         cfg.Sonar.WorkDir,
	}, gate.Deps{
		VCS:        a.VCS,
		Loader:     a.Loader,
		Match:      a.Match,
		Modules:    cfg.Modules,
		Generator:  a.Generator,
		Scanner:    a.Scanner,
		Summarizer: a.Summarizer,
	}, a.Logger)

	return nil
}

// Run executes the gate once and returns the commit decision
func (a *App) Run(ctx context.Context) *models.Decision {
	return a.Gate.Run(ctx)
}

// resolve makes p absolute against the repository root
func (a *App) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.RepositoryRoot, p)
}

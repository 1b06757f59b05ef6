package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/sonargate/internal/app"
	"github.com/ternarybob/sonargate/internal/common"
	"github.com/ternarybob/sonargate/internal/models"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths
	repoRoot     = flag.String("repo", "", "Repository root (overrides config)")
	dryRun       = flag.Bool("dry-run", false, "Generate scanner configurations without scanning")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	os.Exit(run())
}

// run is the single decision point: its result is the hook's exit code
func run() (exitCode int) {
	var config *common.Config

	// A crash inside the gate must not leave the commit in limbo
	defer func() {
		if r := recover(); r != nil {
			if _, err := common.WriteCrashFile(common.CrashLogDir(config), r, string(debug.Stack())); err != nil {
				fmt.Fprintf(os.Stderr, "SonarGate: %v\n", err)
			}
			exitCode = models.VerdictAllow.ExitCode()
			if config != nil && !config.Gate.FailOpen {
				exitCode = models.VerdictBlock.ExitCode()
			}
		}
	}()

	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("SonarGate version %s\n", common.GetFullVersion())
		return 0
	}

	// Startup sequence:
	// 1. Load config (defaults -> file1 -> file2 -> ... -> variables -> env)
	// 2. Apply CLI overrides
	// 3. Validate
	// 4. Initialize logger and print banner
	if len(configFiles) == 0 {
		for _, candidate := range []string{"sonargate.toml", "sonar/sonargate.toml"} {
			if _, err := os.Stat(candidate); err == nil {
				configFiles = append(configFiles, candidate)
				break
			}
		}
	}

	startupLogger := common.NewConsoleLogger()

	config, err := common.LoadFromFiles(startupLogger, configFiles...)
	if err != nil {
		return configFailure(startupLogger, err)
	}

	common.ApplyFlagOverrides(config, *repoRoot, *dryRun)

	if err := config.Validate(); err != nil {
		return configFailure(startupLogger, err)
	}

	logger := common.SetupLogger(config)
	common.PrintBanner(common.GetVersion())

	logger.Info().
		Strs("config_files", configFiles).
		Str("repository", config.Repository.Root).
		Str("sonar_url", config.Sonar.URL).
		Msg("Configuration loaded")

	application, err := app.New(config, logger)
	if err != nil {
		return failure(logger, config.Gate.FailOpen, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	decision := application.Run(ctx)

	logger.Info().
		Str("verdict", decision.Verdict.String()).
		Int("systems", len(decision.Systems)).
		Int("unresolved", len(decision.Unresolved)).
		Str("elapsed", models.FormatElapsed(decision.Elapsed)).
		Msg("Commit decision")

	if decision.Verdict == models.VerdictBlock {
		fmt.Fprintln(os.Stderr, "Commit blocked: "+decision.Reason)
	}

	return decision.Verdict.ExitCode()
}

// configFailure applies the default fail-open policy before any configuration is trusted
func configFailure(logger arbor.ILogger, err error) int {
	if len(configFiles) == 0 {
		logger.Warn().Err(err).Msg("No usable configuration, commit allowed without scanning")
	} else {
		logger.Warn().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration, commit allowed without scanning")
	}
	return models.VerdictAllow.ExitCode()
}

func failure(logger arbor.ILogger, failOpen bool, err error) int {
	if failOpen {
		logger.Warn().Err(err).Msg("Gate could not start, commit allowed without scanning")
		return models.VerdictAllow.ExitCode()
	}
	logger.Error().Err(err).Msg("Gate could not start, commit blocked")
	return models.VerdictBlock.ExitCode()
}

package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/sonargate/internal/models"
)

// Config represents the application configuration
type Config struct {
	Gate       GateConfig            `toml:"gate"`
	Sonar      SonarConfig           `toml:"sonar"`
	Repository RepositoryConfig      `toml:"repository"`
	Registry   RegistryConfig        `toml:"registry"`
	Modules    []models.ModuleRecord `toml:"modules" validate:"dive"`
	Logging    LoggingConfig         `toml:"logging"`
	Variables  VariablesConfig       `toml:"variables"`
}

// GateConfig controls whether and how the commit gate runs
type GateConfig struct {
	Enabled         bool   `toml:"enabled"`          // Original "Status.on" switch; false allows every commit
	FailOpen        bool   `toml:"fail_open"`        // Allow the commit when infrastructure (VCS, registry, scanner, config) fails
	SourceExtension string `toml:"source_extension" validate:"required,startswith=."`
	MarkerExtension string `toml:"marker_extension" validate:"required,startswith=."`
	ModularSystem   string `toml:"modular_system"` // The single system id that uses the modules layout
	MatchStrategy   string `toml:"match_strategy" validate:"oneof=substring segment"`
	MergeMarker     string `toml:"merge_marker"` // Status text that identifies a merge commit with conflicts resolved
	DryRun          bool   `toml:"dry_run"`      // Generate configurations but do not scan
}

// SonarConfig describes the quality scanner service and its command line
type SonarConfig struct {
	URL               string            `toml:"url" validate:"required,url"`
	Login             string            `toml:"login"`
	Password          string            `toml:"password"`
	Scanner           string            `toml:"scanner" validate:"required"`
	ScannerArgs       []string          `toml:"scanner_args"`
	Folder            string            `toml:"folder" validate:"required"`   // Output directory for generated configuration files
	Template          string            `toml:"template" validate:"required"` // Configuration template with {placeholders}
	WorkDir           string            `toml:"work_dir"`                     // Scanner scratch directory, relative to the repository root
	ReportDir         string            `toml:"report_dir"`                   // Issues report root, defaults to <folder>/issues-report
	LivenessTimeout   string            `toml:"liveness_timeout"`             // e.g. "10s"
	ScanTimeout       string            `toml:"scan_timeout"`                 // e.g. "15m"; empty means no deadline
	FailureMarker     string            `toml:"failure_marker"`
	WarningMarkers    []string          `toml:"warning_markers"`
	SeveritySelectors map[string]string `toml:"severity_selectors"` // severity -> CSS selector in the HTML issues report
}

// RepositoryConfig locates the repository under commit
type RepositoryConfig struct {
	Root string `toml:"root" validate:"required"`
}

// RegistryConfig selects where system records come from
type RegistryConfig struct {
	File    string   `toml:"file" validate:"required_without=Command"`    // YAML or JSON file of systems
	Command []string `toml:"command" validate:"required_without=File"` // Command printing systems as JSON
}

// LoggingConfig contains logger settings
type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=debug info warn error"`
	Output     []string `toml:"output"`      // "stdout", "file"
	File       string   `toml:"file"`        // Log file path when "file" output is enabled
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
}

// VariablesConfig points at the TOML file holding {key-name} values (credentials)
type VariablesConfig struct {
	File string `toml:"file"`
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Gate: GateConfig{
			Enabled:         true,
			FailOpen:        true,
			SourceExtension: ".cs",
			MarkerExtension: ".sln",
			ModularSystem:   "MSSNET",
			MatchStrategy:   "substring",
			MergeMarker:     "All conflicts fixed but you are still merging.",
		},
		Sonar: SonarConfig{
			URL:             "http://localhost:9000",
			Scanner:         "sonar-scanner",
			Folder:          "./sonar",
			Template:        "./sonar/sonar-project.template.properties",
			WorkDir:         ".scannerwork",
			LivenessTimeout: "10s",
			FailureMarker:   "EXECUTION FAILURE",
			WarningMarkers:  []string{"major", "critical"},
			SeveritySelectors: map[string]string{
				"blocker":  ".severity-blocker",
				"critical": ".severity-critical",
				"major":    ".severity-major",
				"minor":    ".severity-minor",
				"info":     ".severity-info",
			},
		},
		Repository: RepositoryConfig{
			Root: ".",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
	}
}

// LoadFromFiles loads configuration with priority: default -> file1 -> file2 -> ... -> variables -> env.
// CLI flags are applied afterwards by ApplyFlagOverrides.
func LoadFromFiles(logger arbor.ILogger, paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Later files override earlier values
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	if config.Variables.File != "" {
		kvMap, err := LoadVariables(config.Variables.File)
		if err != nil {
			// Credentials that stay unresolved surface later as scanner auth failures
			logger.Warn().Err(err).Str("file", config.Variables.File).Msg("Failed to load variables, skipping replacement")
		} else if err := ReplaceInStruct(config, kvMap, logger); err != nil {
			logger.Warn().Err(err).Msg("Failed to replace key references in config")
		} else {
			logger.Debug().Int("keys", len(kvMap)).Msg("Applied variable replacements to config")
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies SONARGATE_* environment variables
func applyEnvOverrides(config *Config) {
	if root := os.Getenv("SONARGATE_REPOSITORY_ROOT"); root != "" {
		config.Repository.Root = root
	}

	if enabled := os.Getenv("SONARGATE_GATE_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.Gate.Enabled = b
		}
	}
	if failOpen := os.Getenv("SONARGATE_GATE_FAIL_OPEN"); failOpen != "" {
		if b, err := strconv.ParseBool(failOpen); err == nil {
			config.Gate.FailOpen = b
		}
	}

	if url := os.Getenv("SONARGATE_SONAR_URL"); url != "" {
		config.Sonar.URL = url
	}
	if login := os.Getenv("SONARGATE_SONAR_LOGIN"); login != "" {
		config.Sonar.Login = login
	}
	if password := os.Getenv("SONARGATE_SONAR_PASSWORD"); password != "" {
		config.Sonar.Password = password
	}
	if scanner := os.Getenv("SONARGATE_SONAR_SCANNER"); scanner != "" {
		config.Sonar.Scanner = scanner
	}

	if level := os.Getenv("SONARGATE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("SONARGATE_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// ApplyFlagOverrides applies command-line flags (highest priority)
func ApplyFlagOverrides(config *Config, repoRoot string, dryRun bool) {
	if repoRoot != "" {
		config.Repository.Root = repoRoot
	}
	if dryRun {
		config.Gate.DryRun = true
	}
}

// Validate checks the resolved configuration using struct tags
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := parseOptionalDuration(c.Sonar.LivenessTimeout); err != nil {
		return fmt.Errorf("invalid sonar.liveness_timeout: %w", err)
	}
	if _, err := parseOptionalDuration(c.Sonar.ScanTimeout); err != nil {
		return fmt.Errorf("invalid sonar.scan_timeout: %w", err)
	}
	return nil
}

// LivenessTimeoutDuration returns the liveness probe timeout, 10s when unset
func (s SonarConfig) LivenessTimeoutDuration() time.Duration {
	d, err := parseOptionalDuration(s.LivenessTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// ScanTimeoutDuration returns the per-scan deadline, zero meaning none
func (s SonarConfig) ScanTimeoutDuration() time.Duration {
	d, _ := parseOptionalDuration(s.ScanTimeout)
	return d
}

// ReportRoot returns the directory holding per-system issues reports
func (s SonarConfig) ReportRoot() string {
	if s.ReportDir != "" {
		return s.ReportDir
	}
	return filepath.Join(s.Folder, "issues-report")
}

func parseOptionalDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

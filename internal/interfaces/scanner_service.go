package interfaces

import (
	"context"

	"github.com/ternarybob/sonargate/internal/models"
)

// Scanner drives the external code-quality scanner.
type Scanner interface {
	// Ping checks the scanner server answers at all.
	Ping(ctx context.Context) error
	// Scan runs the scanner against a generated configuration file.
	Scan(ctx context.Context, systemID, configPath string) (models.ScanResult, error)
	// ReportPath returns where the scanner writes the issues report for systemID.
	ReportPath(systemID string) string
}

// ReportSummarizer counts findings per severity in a scanner report.
type ReportSummarizer interface {
	Summarize(reportPath string) (map[string]int, error)
}

// ConfigGenerator materialises a scanner configuration for one system.
type ConfigGenerator interface {
	Generate(ctx context.Context, req models.GenerateRequest) (*models.GeneratedConfig, error)
	// ConfigPath is where Generate writes systemID's configuration.
	ConfigPath(systemID string) string
	Remove(cfg *models.GeneratedConfig) error
}

package scanner

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/sonargate/internal/interfaces"
	"github.com/ternarybob/sonargate/internal/models"
)

// Options configures the scanner command line and server probe
type Options struct {
	ServerURL       string
	Command         string
	Args            []string
	WorkDir         string // directory the scanner runs in (the repository root)
	ReportRoot      string
	LivenessTimeout time.Duration
	ScanTimeout     time.Duration
	FailureMarker   string
	WarningMarkers  []string
}

// Service drives the external scanner
type Service struct {
	opts   Options
	client *http.Client
	logger arbor.ILogger
}

var _ interfaces.Scanner = (*Service)(nil)

// NewService creates a scanner service
func NewService(opts Options, logger arbor.ILogger) *Service {
	return &Service{
		opts:   opts,
		client: &http.Client{Timeout: opts.LivenessTimeout},
		logger: logger,
	}
}

// Ping issues a HEAD request to the server root. Any HTTP response, whatever
// its status, counts as available.
func (s *Service) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, strings.TrimRight(s.opts.ServerURL, "/")+"/", nil)
	if err != nil {
		return fmt.Errorf("build liveness request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("scanner server %s not responding: %w", s.opts.ServerURL, err)
	}
	resp.Body.Close()

	s.logger.Debug().Str("url", s.opts.ServerURL).Int("status", resp.StatusCode).Msg("Scanner server responded")
	return nil
}

// Scan runs the scanner for one generated configuration and classifies its output
func (s *Service) Scan(ctx context.Context, systemID, configPath string) (models.ScanResult, error) {
	if s.opts.ScanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ScanTimeout)
		defer cancel()
	}

	args := append(append([]string(nil), s.opts.Args...), "-Dproject.settings="+configPath)
	cmd := exec.CommandContext(ctx, s.opts.Command, args...)
	cmd.Dir = s.opts.WorkDir

	s.logger.Debug().Str("system", systemID).Str("command", s.opts.Command).Strs("args", args).Msg("Running scanner")

	out, err := cmd.CombinedOutput()
	output := string(out)

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr) && ctx.Err() == nil:
		// Non-zero exit is judged by the output below
	default:
		return models.ScanResult{Outcome: models.OutcomeExecutionFailure, Output: output}, fmt.Errorf("run %s: %w", s.opts.Command, err)
	}

	outcome := Classify(output, s.opts.FailureMarker, s.opts.WarningMarkers)
	if outcome == models.OutcomeClean && exitErr != nil {
		outcome = models.OutcomeExecutionFailure
	}

	return models.ScanResult{Outcome: outcome, Output: output}, nil
}

// ReportPath returns the HTML issues report location for systemID
func (s *Service) ReportPath(systemID string) string {
	return filepath.Join(s.opts.ReportRoot, systemID, "issues-report-"+systemID+".html")
}

// Classify maps scanner output to an outcome. The failure marker wins over
// warning markers; warning markers are matched case-sensitively as printed by the scanner.
func Classify(output, failureMarker string, warningMarkers []string) models.ScanOutcome {
	if failureMarker != "" && strings.Contains(output, failureMarker) {
		return models.OutcomeExecutionFailure
	}
	for _, marker := range warningMarkers {
		if marker != "" && strings.Contains(output, marker) {
			return models.OutcomeWarnings
		}
	}
	return models.OutcomeClean
}

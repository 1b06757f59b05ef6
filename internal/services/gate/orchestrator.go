package gate

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/sonargate/internal/common"
	"github.com/ternarybob/sonargate/internal/interfaces"
	"github.com/ternarybob/sonargate/internal/models"
	"github.com/ternarybob/sonargate/internal/services/registry"
	"github.com/ternarybob/sonargate/internal/services/resolver"
)

// State is a step of a gate run
type State string

const (
	StateIdle        State = "idle"
	StateResolving   State = "resolving"
	StateConfiguring State = "configuring"
	StateScanning    State = "scanning"
	StateCleaningUp  State = "cleaning_up"
	StateAggregating State = "aggregating"
	StateDone        State = "done"
)

// Options are the run-wide switches of the gate
type Options struct {
	Enabled         bool
	FailOpen        bool
	DryRun          bool
	RepositoryRoot  string
	SourceExtension string
	MarkerExtension string
	MergeMarker     string
	WorkDir         string // scanner scratch directory, removed after the run
}

// Deps are the collaborators of the orchestrator
type Deps struct {
	VCS        interfaces.VCS
	Loader     interfaces.RegistryLoader
	Match      interfaces.MatchStrategy
	Modules    []models.ModuleRecord
	Generator  interfaces.ConfigGenerator
	Scanner    interfaces.Scanner
	Summarizer interfaces.ReportSummarizer
}

// Orchestrator sequences resolution, configuration, scanning and aggregation
// into a single commit decision
type Orchestrator struct {
	opts   Options
	deps   Deps
	logger arbor.ILogger
	now    func() time.Time
}

// NewOrchestrator creates a gate orchestrator
func NewOrchestrator(opts Options, deps Deps, logger arbor.ILogger) *Orchestrator {
	return &Orchestrator{
		opts:   opts,
		deps:   deps,
		logger: logger,
		now:    time.Now,
	}
}

// run holds the mutable state of one Run call
type run struct {
	decision *models.Decision
	logger   arbor.ILogger
	state    State
	flagged  bool // a scan reported findings
	failed   bool // an error occurred while fail-open is off
}

func (r *run) enter(state State) {
	r.logger.Debug().Str("from", string(r.state)).Str("to", string(state)).Msg("Gate state")
	r.state = state
}

// Run executes the gate once. It never returns an error: every failure is
// folded into the decision according to the fail-open policy.
func (o *Orchestrator) Run(ctx context.Context) *models.Decision {
	start := o.now()
	runID := uuid.New().String()

	r := &run{
		decision: &models.Decision{RunID: runID, Verdict: models.VerdictAllow},
		logger:   o.logger.WithCorrelationId(runID),
		state:    StateIdle,
	}

	o.execute(ctx, r)

	r.decision.Elapsed = o.now().Sub(start)
	r.enter(StateDone)

	event := r.logger.Info()
	if r.decision.Verdict == models.VerdictBlock {
		event = r.logger.Warn()
	}
	event.
		Str("verdict", r.decision.Verdict.String()).
		Str("reason", r.decision.Reason).
		Str("elapsed", models.FormatElapsed(r.decision.Elapsed)).
		Msg("Gate finished")

	return r.decision
}

func (o *Orchestrator) execute(ctx context.Context, r *run) {
	if !o.opts.Enabled {
		r.logger.Warn().Msg("Quality gate is disabled, commit allowed without scanning")
		r.decision.Reason = "gate disabled"
		return
	}

	skip, err := o.isMergeCommit(ctx)
	if err != nil {
		o.infrastructureFailure(r, "vcs", err)
		return
	}
	if skip {
		r.logger.Info().Msg("Merge commit detected, skipping scan")
		r.decision.Reason = "merge commit"
		return
	}

	r.enter(StateResolving)

	changed, err := o.deps.VCS.ChangedFiles(ctx)
	if err != nil {
		o.infrastructureFailure(r, "vcs", err)
		return
	}
	if len(changed) == 0 {
		r.logger.Info().Msg("No staged changes")
		r.decision.Reason = "no changes"
		return
	}

	systems, err := o.deps.Loader.Load(ctx)
	if err != nil {
		o.infrastructureFailure(r, "registry", err)
		return
	}

	reg := registry.New(systems, o.deps.Modules, o.deps.Match, r.logger)
	paths := resolver.NewPathResolver(o.opts.RepositoryRoot, o.opts.MarkerExtension, reg, r.logger)
	changeSet := resolver.NewChangeSetResolver(paths, o.opts.SourceExtension, r.logger).Resolve(changed)
	r.decision.Unresolved = changeSet.UnresolvedFiles()

	if changeSet.Empty() {
		r.logger.Info().
			Int("changed", len(changed)).
			Int("eligible", changeSet.Eligible).
			Msg("Nothing to scan")
		r.decision.Reason = "nothing to scan"
		return
	}

	ids := changeSet.Systems()
	for _, id := range ids {
		r.logger.Info().Str("system", id).Strs("files", changeSet.Files(id)).Msg("System selected for scan")
	}

	branch, err := o.deps.VCS.BranchName(ctx)
	if err != nil {
		o.infrastructureFailure(r, "vcs", err)
		return
	}

	if !o.opts.DryRun {
		if err := o.deps.Scanner.Ping(ctx); err != nil {
			o.infrastructureFailure(r, "scanner", err)
			return
		}
	}

	defer o.removeWorkDir(r)

	for _, id := range ids {
		system, err := reg.LookupByID(id)
		if err != nil {
			// Associations only carry registered ids
			system = models.SystemRecord{ID: id}
		}

		req := models.GenerateRequest{
			System:       system,
			Associations: changeSet.Associations,
			Modules:      reg.Modules(),
			Branch:       branch,
		}

		result, stop := o.processSystem(ctx, r, req, changeSet.Files(id))
		r.decision.Systems = append(r.decision.Systems, result)
		if stop {
			return
		}
	}

	r.enter(StateAggregating)
	o.aggregate(r)
}

// processSystem runs configure, scan and cleanup for one system. stop reports
// that the whole run must end.
func (o *Orchestrator) processSystem(ctx context.Context, r *run, req models.GenerateRequest, files []string) (result models.SystemResult, stop bool) {
	systemID := req.System.ID
	started := o.now()
	result = models.SystemResult{SystemID: systemID, Files: files}

	logger := r.logger

	r.enter(StateConfiguring)
	cfg, err := o.deps.Generator.Generate(ctx, req)

	defer func() {
		r.enter(StateCleaningUp)
		target := cfg
		if target == nil {
			target = &models.GeneratedConfig{SystemID: systemID, Path: o.deps.Generator.ConfigPath(systemID)}
		}
		if err := o.deps.Generator.Remove(target); err != nil {
			logger.Warn().Err(err).Str("system", systemID).Msg("Failed to remove scanner configuration")
		}
		result.Duration = o.now().Sub(started)
	}()

	if err != nil {
		result.Outcome = models.OutcomeConfigFailure
		result.Err = err
		logger.Error().Err(err).Str("system", systemID).Msg("Scanner configuration failed, system not scanned")
		if !o.opts.FailOpen {
			r.failed = true
		}
		return result, false
	}

	if len(cfg.Residual) > 0 {
		logger.Warn().Str("system", systemID).Strs("files", cfg.Residual).Msg("Files outside every module are not scanned")
	}

	if o.opts.DryRun {
		logger.Info().Str("system", systemID).Str("file", cfg.Path).Msg("Dry run, scan skipped")
		result.Outcome = models.OutcomeSkipped
		return result, false
	}

	r.enter(StateScanning)
	logger.Info().Str("system", systemID).Msg("Scanning")

	scan, err := o.deps.Scanner.Scan(ctx, systemID, cfg.Path)
	if err == nil && scan.Outcome == models.OutcomeExecutionFailure {
		err = models.ErrScannerReportedFailure
	}
	if err != nil {
		result.Outcome = models.OutcomeExecutionFailure
		result.Err = &models.ScanExecutionError{SystemID: systemID, Err: err}
		o.stopRun(r, result.Err)
		return result, true
	}

	result.Outcome = scan.Outcome
	if scan.Outcome == models.OutcomeWarnings {
		r.flagged = true
		result.ReportPath = o.deps.Scanner.ReportPath(systemID)
		if o.deps.Summarizer != nil {
			counts, err := o.deps.Summarizer.Summarize(result.ReportPath)
			if err != nil {
				logger.Warn().Err(err).Str("report", result.ReportPath).Msg("Failed to summarise issues report")
			} else {
				result.Severities = counts
			}
		}
		logger.Warn().
			Str("system", systemID).
			Str("report", result.ReportPath).
			Str("severities", formatSeverities(result.Severities)).
			Msg("Scan reported findings")
	} else {
		logger.Info().Str("system", systemID).Msg("Scan clean")
	}

	return result, false
}

// stopRun ends the run after a scan could not execute
func (o *Orchestrator) stopRun(r *run, err error) {
	r.decision.Err = err
	if o.opts.FailOpen {
		r.logger.Error().Err(err).Msg("Scan execution failed, commit allowed")
		r.decision.Verdict = models.VerdictAllow
		r.decision.Reason = "scan execution failed"
		return
	}
	r.logger.Error().Err(err).Msg("Scan execution failed, commit blocked")
	r.decision.Verdict = models.VerdictBlock
	r.decision.Reason = "scan execution failed"
}

func (o *Orchestrator) aggregate(r *run) {
	switch {
	case r.flagged:
		r.decision.Verdict = models.VerdictBlock
		r.decision.Reason = "findings reported"
	case r.failed:
		r.decision.Verdict = models.VerdictBlock
		r.decision.Reason = "scanner configuration failed"
		for _, s := range r.decision.Systems {
			if s.Err != nil {
				r.decision.Err = s.Err
				break
			}
		}
	default:
		r.decision.Verdict = models.VerdictAllow
		r.decision.Reason = "clean"
		if o.opts.DryRun {
			r.decision.Reason = "dry run"
		}
	}
}

// infrastructureFailure applies the fail-open policy to an unreachable collaborator
func (o *Orchestrator) infrastructureFailure(r *run, component string, err error) {
	infra := &models.InfrastructureError{Component: component, Err: err}
	r.decision.Err = infra
	r.decision.Reason = component + " unavailable"

	if o.opts.FailOpen {
		r.logger.Warn().Err(infra).Msg("Commit allowed without scanning")
		r.decision.Verdict = models.VerdictAllow
		return
	}
	r.logger.Error().Err(infra).Msg("Commit blocked")
	r.decision.Verdict = models.VerdictBlock
}

func (o *Orchestrator) isMergeCommit(ctx context.Context) (bool, error) {
	merging, err := o.deps.VCS.IsMerging(ctx)
	if err != nil {
		return false, err
	}
	if merging {
		return true, nil
	}
	if o.opts.MergeMarker == "" {
		return false, nil
	}
	status, err := o.deps.VCS.StatusText(ctx)
	if err != nil {
		return false, err
	}
	return strings.Contains(status, o.opts.MergeMarker), nil
}

func (o *Orchestrator) removeWorkDir(r *run) {
	if o.opts.WorkDir == "" {
		return
	}
	dir := o.opts.WorkDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(o.opts.RepositoryRoot, dir)
	}
	if err := common.RemoveDir(dir); err != nil {
		r.logger.Warn().Err(err).Str("dir", dir).Msg("Failed to remove scanner work directory")
	}
}

var severityOrder = map[string]int{"blocker": 0, "critical": 1, "major": 2, "minor": 3, "info": 4}

func formatSeverities(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for sev := range counts {
		keys = append(keys, sev)
	}
	sort.Slice(keys, func(i, j int) bool {
		oi, iok := severityOrder[keys[i]]
		oj, jok := severityOrder[keys[j]]
		switch {
		case iok && jok:
			return oi < oj
		case iok != jok:
			return iok
		default:
			return keys[i] < keys[j]
		}
	})

	parts := make([]string, 0, len(keys))
	for _, sev := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", sev, counts[sev]))
	}
	return strings.Join(parts, " ")
}

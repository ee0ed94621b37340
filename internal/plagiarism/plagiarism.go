package plagiarism

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/RishiKendai/lichen/internal/config"
	"github.com/RishiKendai/lichen/internal/metrics"
	"github.com/RishiKendai/lichen/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ResultSink persists the outcome of a run. A nil sink keeps results on disk only.
type ResultSink interface {
	SaveRankings(ctx context.Context, runID, gradeable string, rankings []models.SubmissionRanking, overall []models.SubmissionStats) error
	SaveRun(ctx context.Context, report *models.RunReport) error
}

// Runner executes the hash and rank stages over a run base path. The CLI,
// the HTTP API and the stream consumer all go through it.
type Runner struct {
	pool         *WorkerPool
	languages    config.LanguageTable
	width        int
	maxSequences int
	status       StatusTracker
	sink         ResultSink
}

type RunnerOption func(*Runner)

func WithStatusTracker(t StatusTracker) RunnerOption {
	return func(r *Runner) { r.status = t }
}

func WithResultSink(s ResultSink) RunnerOption {
	return func(r *Runner) { r.sink = s }
}

func NewRunner(pool *WorkerPool, languages config.LanguageTable, width, maxSequences int, opts ...RunnerOption) *Runner {
	r := &Runner{
		pool:         pool,
		languages:    languages,
		width:        width,
		maxSequences: maxSequences,
		status:       NopStatusTracker{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func validMode(mode string) bool {
	switch mode {
	case models.ModeHash, models.ModeRank, models.ModeAll:
		return true
	}
	return false
}

// Run executes req against req.BasePath, which the caller has already
// resolved. The returned report is non-nil whenever the run started, also on
// failure.
func (r *Runner) Run(ctx context.Context, req models.RunRequest) (*models.RunReport, error) {
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	if req.Mode == "" {
		req.Mode = models.ModeAll
	}
	if !validMode(req.Mode) {
		return nil, fmt.Errorf("unknown mode %q", req.Mode)
	}

	report := &models.RunReport{
		RunID:     req.RunID,
		BasePath:  req.BasePath,
		Status:    models.StepInitiated,
		Warnings:  []string{},
		CreatedAt: time.Now(),
	}
	r.updateStatus(ctx, req.RunID, models.StepInitiated)

	rc, err := config.LoadRunConfig(req.BasePath, r.languages)
	if err == nil {
		rc, err = rc.WithOverrides(req.Language, req.SequenceLength).Resolve(r.languages)
	}
	if err != nil {
		return r.fail(ctx, report, err)
	}

	report.Gradeable = req.Gradeable
	if report.Gradeable == "" {
		report.Gradeable = rc.Gradeable
	}
	if report.Gradeable == "" {
		report.Gradeable = filepath.Base(req.BasePath)
	}

	logger := log.With().
		Str("runID", req.RunID).
		Str("gradeable", report.Gradeable).
		Str("language", rc.Language).
		Int("sequenceLength", rc.SequenceLength).
		Logger()
	logger.Info().Str("mode", req.Mode).Msg("Run started")

	if req.Mode == models.ModeHash || req.Mode == models.ModeAll {
		r.updateStatus(ctx, req.RunID, models.StepHashing)
		report.Status = models.StepHashing

		hasher, err := NewHasher(rc, r.width, r.maxSequences)
		if err != nil {
			return r.fail(ctx, report, err)
		}
		hs, err := HashAll(ctx, req.BasePath, hasher, r.pool)
		if err != nil {
			return r.fail(ctx, report, err)
		}
		report.SubmissionsHashed = hs.Hashed
		report.TruncatedFiles = hs.Truncated
		report.HashDuration = hs.Duration
		report.Warnings = append(report.Warnings, hs.Warnings...)
	}

	if req.Mode == models.ModeRank || req.Mode == models.ModeAll {
		r.updateStatus(ctx, req.RunID, models.StepRanking)
		report.Status = models.StepRanking

		rs, err := RankAll(ctx, req.BasePath, rc.SequenceLength, r.pool)
		if err != nil {
			return r.fail(ctx, report, err)
		}
		report.SubmissionsRanked = len(rs.Rankings)
		report.OverallEntries = len(rs.Overall)
		report.RankDuration = rs.Duration
		report.Warnings = append(report.Warnings, rs.Warnings...)

		if r.sink != nil {
			if err := r.sink.SaveRankings(ctx, req.RunID, report.Gradeable, rs.Rankings, rs.Overall); err != nil {
				return r.fail(ctx, report, fmt.Errorf("failed to save rankings: %w", err))
			}
		}
	}

	report.Status = models.StepCompleted
	report.CompletedAt = time.Now()
	r.updateStatus(ctx, req.RunID, models.StepCompleted)
	r.saveRun(ctx, report)
	metrics.RunsTotal.WithLabelValues(string(models.StepCompleted)).Inc()

	logger.Info().
		Int("hashed", report.SubmissionsHashed).
		Int("ranked", report.SubmissionsRanked).
		Int("overall", report.OverallEntries).
		Int("warnings", len(report.Warnings)).
		Msg("Run completed")

	return report, nil
}

func (r *Runner) fail(ctx context.Context, report *models.RunReport, err error) (*models.RunReport, error) {
	report.Status = models.StepFailed
	report.Error = err.Error()
	report.CompletedAt = time.Now()

	// the run context may be the reason we failed
	bg := context.WithoutCancel(ctx)
	r.updateStatus(bg, report.RunID, models.StepFailed)
	r.saveRun(bg, report)
	metrics.RunsTotal.WithLabelValues(string(models.StepFailed)).Inc()

	log.Error().Err(err).Str("runID", report.RunID).Msg("Run failed")
	return report, err
}

// status updates are best effort: a run is never aborted because Redis is down
func (r *Runner) updateStatus(ctx context.Context, runID string, step models.Step) {
	if err := r.status.UpdateStatus(ctx, runID, step); err != nil {
		log.Warn().Err(err).Str("runID", runID).Str("step", string(step)).Msg("Failed to update run status")
	}
}

func (r *Runner) saveRun(ctx context.Context, report *models.RunReport) {
	if r.sink == nil {
		return
	}
	if err := r.sink.SaveRun(ctx, report); err != nil {
		log.Error().Err(err).Str("runID", report.RunID).Msg("Failed to save run report")
	}
}

package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/RishiKendai/lichen/internal/config"
	"github.com/RishiKendai/lichen/internal/models"
	"github.com/RishiKendai/lichen/internal/plagiarism"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RunExecutor runs one pipeline request
type RunExecutor interface {
	Run(ctx context.Context, req models.RunRequest) (*models.RunReport, error)
}

// ResultReader reads persisted run reports and rankings
type ResultReader interface {
	GetRun(ctx context.Context, runID string) (*models.RunReport, error)
	GetOverallRanking(ctx context.Context, gradeable string) (*models.OverallRanking, error)
	GetSubmissionRanking(ctx context.Context, gradeable, userID, version string) (*models.SubmissionRanking, error)
}

// Handler holds dependencies for handlers
type Handler struct {
	dataDir    string
	runner     RunExecutor
	status     plagiarism.StatusTracker
	results    ResultReader
	runSem     chan struct{}
	runTimeout time.Duration
	runs       sync.WaitGroup
}

func NewHandler(cfg *config.Config, runner RunExecutor, status plagiarism.StatusTracker, results ResultReader) *Handler {
	return &Handler{
		dataDir:    cfg.DataDir,
		runner:     runner,
		status:     status,
		results:    results,
		runSem:     make(chan struct{}, cfg.MaxConcurrentRuns),
		runTimeout: cfg.RunTimeout,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

func abortWithError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{
		Error: msg,
		Code:  code,
	})
}

// CreateRun validates the request, reserves a run slot and starts the run in
// the background. The response only says the run was accepted.
func (h *Handler) CreateRun(c *gin.Context) {
	var req models.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	if req.Mode == "" {
		req.Mode = models.ModeAll
	}
	switch req.Mode {
	case models.ModeHash, models.ModeRank, models.ModeAll:
	default:
		abortWithError(c, http.StatusBadRequest, "INVALID_MODE", "mode must be one of hash, rank, all")
		return
	}
	if req.SequenceLength < 0 {
		abortWithError(c, http.StatusBadRequest, "INVALID_SEQUENCE_LENGTH", "sequenceLength must be >= 1")
		return
	}

	basePath, err := config.ResolveBasePath(h.dataDir, req.BasePath)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_BASE_PATH", err.Error())
		return
	}
	if _, err := os.Stat(filepath.Join(basePath, config.RunConfigFile)); err != nil {
		abortWithError(c, http.StatusNotFound, "RUN_CONFIG_NOT_FOUND", "No run configuration found at basePath")
		return
	}
	req.BasePath = basePath

	select {
	case h.runSem <- struct{}{}:
	default:
		abortWithError(c, http.StatusTooManyRequests, "TOO_MANY_RUNS", "Maximum number of concurrent runs reached")
		return
	}

	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}

	ctx := c.Request.Context()
	if err := h.status.UpdateStatus(ctx, req.RunID, models.StepInitiated); err != nil {
		log.Warn().Err(err).Str("runID", req.RunID).Msg("Failed to update initiated status")
	}

	c.JSON(http.StatusAccepted, models.RunResponse{
		Step:  models.StepInitiated,
		RunID: req.RunID,
	})

	h.runs.Add(1)
	go h.processRun(req)
}

// Wait blocks until every run started through CreateRun has returned
func (h *Handler) Wait() {
	h.runs.Wait()
}

func (h *Handler) processRun(req models.RunRequest) {
	defer h.runs.Done()
	defer func() { <-h.runSem }()

	ctx, cancel := context.WithCancel(context.Background())
	if h.runTimeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), h.runTimeout)
	}
	defer cancel()

	if _, err := h.runner.Run(ctx, req); err != nil {
		log.Error().Err(err).Str("runID", req.RunID).Msg("Run failed")
		return
	}
	log.Debug().Str("runID", req.RunID).Msg("Run finished")
}

func (h *Handler) GetRunStatus(c *gin.Context) {
	runID := c.Param("id")
	ctx := c.Request.Context()

	step, err := h.status.GetStatus(ctx, runID)
	if err != nil && !errors.Is(err, plagiarism.ErrRunNotFound) {
		log.Error().Err(err).Str("runID", runID).Msg("Failed to read run status")
		abortWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to read run status")
		return
	}

	report, rerr := h.results.GetRun(ctx, runID)
	if rerr != nil {
		log.Error().Err(rerr).Str("runID", runID).Msg("Failed to read run report")
		abortWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to read run report")
		return
	}

	if step == "" && report == nil {
		abortWithError(c, http.StatusNotFound, "RUN_NOT_FOUND", "Run not found")
		return
	}
	if step == "" {
		// status key expired, the stored report still knows the outcome
		step = report.Status
	}

	c.JSON(http.StatusOK, models.RunStatusResponse{
		RunID:  runID,
		Step:   step,
		Report: report,
	})
}

func (h *Handler) GetOverallRanking(c *gin.Context) {
	gradeable := c.Param("gradeable")

	ranking, err := h.results.GetOverallRanking(c.Request.Context(), gradeable)
	if err != nil {
		log.Error().Err(err).Str("gradeable", gradeable).Msg("Failed to read overall ranking")
		abortWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to read overall ranking")
		return
	}
	if ranking == nil {
		abortWithError(c, http.StatusNotFound, "RANKING_NOT_FOUND", "No ranking for gradeable")
		return
	}

	c.JSON(http.StatusOK, ranking)
}

func (h *Handler) GetSubmissionRanking(c *gin.Context) {
	gradeable, user, version := c.Param("gradeable"), c.Param("user"), c.Param("version")

	ranking, err := h.results.GetSubmissionRanking(c.Request.Context(), gradeable, user, version)
	if err != nil {
		log.Error().Err(err).
			Str("gradeable", gradeable).
			Str("user", user).
			Str("version", version).
			Msg("Failed to read submission ranking")
		abortWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to read submission ranking")
		return
	}
	if ranking == nil {
		abortWithError(c, http.StatusNotFound, "RANKING_NOT_FOUND", "No ranking for submission")
		return
	}

	c.JSON(http.StatusOK, ranking)
}

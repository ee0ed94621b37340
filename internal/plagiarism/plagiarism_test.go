package plagiarism

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/RishiKendai/lichen/internal/config"
	"github.com/RishiKendai/lichen/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStatus struct {
	mu    sync.Mutex
	steps []models.Step
}

func (r *recordingStatus) UpdateStatus(_ context.Context, _ string, step models.Step) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, step)
	return nil
}

func (r *recordingStatus) GetStatus(context.Context, string) (models.Step, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.steps) == 0 {
		return "", ErrRunNotFound
	}
	return r.steps[len(r.steps)-1], nil
}

type recordingSink struct {
	gradeable string
	rankings  []models.SubmissionRanking
	overall   []models.SubmissionStats
	reports   []models.RunReport
}

func (s *recordingSink) SaveRankings(_ context.Context, _ string, gradeable string, rankings []models.SubmissionRanking, overall []models.SubmissionStats) error {
	s.gradeable = gradeable
	s.rankings = rankings
	s.overall = overall
	return nil
}

func (s *recordingSink) SaveRun(_ context.Context, report *models.RunReport) error {
	s.reports = append(s.reports, *report)
	return nil
}

func newTestRunner(t *testing.T, opts ...RunnerOption) *Runner {
	t.Helper()
	return NewRunner(newTestPool(t), config.DefaultLanguages(), config.DefaultFingerprintWidth, 0, opts...)
}

func TestRunnerHashThenRank(t *testing.T) {
	base := newRunBase(t)
	status := &recordingStatus{}
	sink := &recordingSink{}
	runner := newTestRunner(t, WithStatusTracker(status), WithResultSink(sink))

	report, err := runner.Run(context.Background(), models.RunRequest{RunID: "r1", BasePath: base, Mode: models.ModeHash})
	require.NoError(t, err)
	assert.Equal(t, models.StepCompleted, report.Status)
	assert.Equal(t, 6, report.SubmissionsHashed)
	assert.Zero(t, report.SubmissionsRanked)
	assert.Equal(t, filepath.Base(base), report.Gradeable)
	assert.Equal(t, []models.Step{models.StepInitiated, models.StepHashing, models.StepCompleted}, status.steps)
	assert.Nil(t, sink.rankings, "hash mode saves no rankings")

	addMatches(t, base)
	status.steps = nil
	report, err = runner.Run(context.Background(), models.RunRequest{RunID: "r2", BasePath: base, Gradeable: "hw1", Mode: models.ModeRank})
	require.NoError(t, err)
	assert.Equal(t, 4, report.SubmissionsRanked)
	assert.Equal(t, 2, report.OverallEntries)
	assert.Equal(t, []models.Step{models.StepInitiated, models.StepRanking, models.StepCompleted}, status.steps)

	assert.Equal(t, "hw1", sink.gradeable)
	assert.Len(t, sink.rankings, 4)
	assert.Len(t, sink.overall, 2)
	require.Len(t, sink.reports, 2)
	assert.Equal(t, "r2", sink.reports[1].RunID)
	assert.FileExists(t, filepath.Join(base, OverallRankingFile))
}

func TestRunnerAllWithOverrides(t *testing.T) {
	base := newRunBase(t)
	runner := newTestRunner(t)

	report, err := runner.Run(context.Background(), models.RunRequest{BasePath: base, SequenceLength: 4})
	require.NoError(t, err)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, models.StepCompleted, report.Status)
	assert.Equal(t, 6, report.SubmissionsHashed)
	assert.Equal(t, 4, report.SubmissionsRanked)
	assert.Zero(t, report.OverallEntries)

	// 11 tokens, L=4
	n, err := CountFingerprints(filepath.Join(base, UsersDir, "alice", "1", HashesFile))
	require.NoError(t, err)
	assert.Equal(t, 8, n)
}

func TestRunnerFailures(t *testing.T) {
	t.Run("missing users directory", func(t *testing.T) {
		base := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(base, config.RunConfigFile), []byte(`{"language":"python","hash_size":5}`), 0o644))
		status := &recordingStatus{}
		sink := &recordingSink{}
		runner := newTestRunner(t, WithStatusTracker(status), WithResultSink(sink))

		report, err := runner.Run(context.Background(), models.RunRequest{RunID: "r1", BasePath: base})
		assert.ErrorIs(t, err, ErrUsersDirMissing)
		require.NotNil(t, report)
		assert.Equal(t, models.StepFailed, report.Status)
		assert.NotEmpty(t, report.Error)

		step, err := status.GetStatus(context.Background(), "r1")
		require.NoError(t, err)
		assert.Equal(t, models.StepFailed, step)
		require.Len(t, sink.reports, 1)
		assert.Equal(t, models.StepFailed, sink.reports[0].Status)
	})

	t.Run("missing run config", func(t *testing.T) {
		report, err := newTestRunner(t).Run(context.Background(), models.RunRequest{BasePath: t.TempDir()})
		assert.Error(t, err)
		require.NotNil(t, report)
		assert.Equal(t, models.StepFailed, report.Status)
	})

	t.Run("unsupported language", func(t *testing.T) {
		base := newRunBase(t)
		_, err := newTestRunner(t).Run(context.Background(), models.RunRequest{BasePath: base, Language: "cobol"})
		assert.Error(t, err)
	})

	t.Run("unknown mode", func(t *testing.T) {
		report, err := newTestRunner(t).Run(context.Background(), models.RunRequest{BasePath: t.TempDir(), Mode: "compare"})
		assert.Error(t, err)
		assert.Nil(t, report)
	})
}

func TestRunnerFailsOnClosedPool(t *testing.T) {
	base := newRunBase(t)
	status := &recordingStatus{}
	pool := NewWorkerPool(context.Background(), 2)
	pool.Close()
	runner := NewRunner(pool, config.DefaultLanguages(), config.DefaultFingerprintWidth, 0, WithStatusTracker(status))

	report, err := runner.Run(context.Background(), models.RunRequest{RunID: "r1", BasePath: base})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Equal(t, models.StepFailed, report.Status)
	assert.Equal(t, models.StepFailed, status.steps[len(status.steps)-1])
}

package plagiarism

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/RishiKendai/lichen/internal/metrics"
	"github.com/RishiKendai/lichen/internal/models"
	"github.com/RishiKendai/lichen/internal/preprocess"
	"github.com/rs/zerolog/log"
)

// Layout of a run base path
const (
	UsersDir           = "users"
	OtherGradeablesDir = "other_gradeables"
	ProvidedCodeDir    = "provided_code"
)

var (
	ErrUsersDirMissing           = errors.New("users directory not found")
	ErrOtherGradeablesDirMissing = errors.New("other_gradeables directory not found")
)

const (
	stageHash = "hash"
	stageRank = "rank"
)

// Submission is one <user>/<version> directory of a submission pool
type Submission struct {
	UserID  string
	Version string
	Dir     string
}

// requireDir reports sentinel when path is not an existing directory
func requireDir(path string, sentinel error) error {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", sentinel, path)
	}
	return nil
}

func listDirs(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", path, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// sortVersions orders numeric version names numerically, followed by the
// remaining names lexicographically.
func sortVersions(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		a, errA := strconv.Atoi(names[i])
		b, errB := strconv.Atoi(names[j])
		switch {
		case errA == nil && errB == nil:
			if a != b {
				return a < b
			}
			return names[i] < names[j]
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return names[i] < names[j]
		}
	})
}

// ListSubmissions enumerates root/<user>/<version> in encounter order: users
// lexicographically, versions via sortVersions.
func ListSubmissions(root string) ([]Submission, error) {
	users, err := listDirs(root)
	if err != nil {
		return nil, err
	}
	sort.Strings(users)

	var subs []Submission
	for _, user := range users {
		versions, err := listDirs(filepath.Join(root, user))
		if err != nil {
			return nil, err
		}
		sortVersions(versions)
		for _, version := range versions {
			subs = append(subs, Submission{
				UserID:  user,
				Version: version,
				Dir:     filepath.Join(root, user, version),
			})
		}
	}
	return subs, nil
}

// HashSummary is the outcome of the hash stage
type HashSummary struct {
	Hashed    int
	Truncated int
	Warnings  []string
	Duration  time.Duration
}

// hashTargets lists every directory the hash stage fingerprints: all user
// submissions, every other gradeable's submissions and the provided code.
func hashTargets(basePath string) ([]string, error) {
	usersDir := filepath.Join(basePath, UsersDir)
	if err := requireDir(usersDir, ErrUsersDirMissing); err != nil {
		return nil, err
	}
	othersDir := filepath.Join(basePath, OtherGradeablesDir)
	if err := requireDir(othersDir, ErrOtherGradeablesDirMissing); err != nil {
		return nil, err
	}

	subs, err := ListSubmissions(usersDir)
	if err != nil {
		return nil, err
	}
	targets := make([]string, 0, len(subs)+1)
	for _, s := range subs {
		targets = append(targets, s.Dir)
	}

	gradeables, err := listDirs(othersDir)
	if err != nil {
		return nil, err
	}
	sort.Strings(gradeables)
	for _, g := range gradeables {
		subs, err := ListSubmissions(filepath.Join(othersDir, g))
		if err != nil {
			return nil, err
		}
		for _, s := range subs {
			targets = append(targets, s.Dir)
		}
	}

	return append(targets, filepath.Join(basePath, ProvidedCodeDir)), nil
}

// HashAll writes hashes.txt next to every tokens.json of the run. Failures of
// a single file are recorded as warnings; a missing users/ or
// other_gradeables/ directory aborts the stage.
func HashAll(ctx context.Context, basePath string, hasher *Hasher, pool *WorkerPool) (HashSummary, error) {
	start := time.Now()

	targets, err := hashTargets(basePath)
	if err != nil {
		return HashSummary{}, err
	}

	results := make([]HashResult, len(targets))
	errs := make([]error, len(targets))
	err = runIndexed(ctx, pool, len(targets), func(_ context.Context, i int) {
		dir := targets[i]
		results[i], errs[i] = hasher.HashFile(
			filepath.Join(dir, preprocess.TokensFile),
			filepath.Join(dir, HashesFile),
		)
	})
	if err != nil {
		return HashSummary{}, fmt.Errorf("hash stage interrupted: %w", err)
	}

	var summary HashSummary
	for i, dir := range targets {
		if errs[i] != nil {
			log.Warn().Err(errs[i]).Str("dir", dir).Msg("Failed to hash submission")
			metrics.SoftWarnings.WithLabelValues(stageHash).Inc()
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("hash %s: %v", dir, errs[i]))
			continue
		}
		summary.Hashed++
		metrics.SubmissionsProcessed.WithLabelValues(stageHash).Inc()
		if results[i].Truncated {
			summary.Truncated++
			metrics.FingerprintTruncations.Inc()
			metrics.SoftWarnings.WithLabelValues(stageHash).Inc()
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("hash %s: truncated to %d fingerprints", dir, results[i].Fingerprints))
		}
	}

	summary.Duration = time.Since(start)
	metrics.StageDuration.WithLabelValues(stageHash).Observe(summary.Duration.Seconds())
	log.Info().
		Int("hashed", summary.Hashed).
		Int("truncated", summary.Truncated).
		Int("warnings", len(summary.Warnings)).
		Dur("elapsed", summary.Duration).
		Msg("Hashing done")

	return summary, nil
}

// RankSummary is the outcome of the rank stage
type RankSummary struct {
	Rankings []models.SubmissionRanking
	Overall  []models.SubmissionStats
	Warnings []string
	Duration time.Duration
}

// RankAll computes every user submission's statistics, writes its
// ranking.txt and, once all of them have reported, overall_ranking.txt.
func RankAll(ctx context.Context, basePath string, sequenceLength int, pool *WorkerPool) (RankSummary, error) {
	start := time.Now()

	usersDir := filepath.Join(basePath, UsersDir)
	if err := requireDir(usersDir, ErrUsersDirMissing); err != nil {
		return RankSummary{}, err
	}
	subs, err := ListSubmissions(usersDir)
	if err != nil {
		return RankSummary{}, err
	}

	rankings := make([]models.SubmissionRanking, len(subs))
	errs := make([]error, len(subs))
	err = runIndexed(ctx, pool, len(subs), func(_ context.Context, i int) {
		s := subs[i]
		stats, others, err := GetSubmissionStats(s.UserID, s.Version, s.Dir, sequenceLength)
		if err != nil {
			// rank what we have: zero stats and an empty ranking.txt
			stats = models.SubmissionStats{UserID: s.UserID, Version: s.Version}
			others = nil
			errs[i] = err
		}
		rankings[i] = models.SubmissionRanking{Stats: stats, Matches: others}
		if werr := WriteRanking(filepath.Join(s.Dir, RankingFile), others); werr != nil {
			errs[i] = errors.Join(errs[i], werr)
		}
	})
	if err != nil {
		return RankSummary{}, fmt.Errorf("rank stage interrupted: %w", err)
	}

	summary := RankSummary{Rankings: rankings}
	all := make([]models.SubmissionStats, len(rankings))
	for i, r := range rankings {
		all[i] = r.Stats
		metrics.SubmissionsProcessed.WithLabelValues(stageRank).Inc()
		if errs[i] != nil {
			log.Warn().Err(errs[i]).Str("user", subs[i].UserID).Str("version", subs[i].Version).Msg("Failed to rank submission")
			metrics.SoftWarnings.WithLabelValues(stageRank).Inc()
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("rank %s: %v", subs[i].Dir, errs[i]))
		}
	}

	SortByHighestMatch(all)
	summary.Overall = OverallRanking(all)
	if err := WriteOverallRanking(filepath.Join(basePath, OverallRankingFile), summary.Overall); err != nil {
		return RankSummary{}, err
	}

	summary.Duration = time.Since(start)
	metrics.StageDuration.WithLabelValues(stageRank).Observe(summary.Duration.Seconds())
	log.Info().
		Int("ranked", len(rankings)).
		Int("overall", len(summary.Overall)).
		Int("warnings", len(summary.Warnings)).
		Dur("elapsed", summary.Duration).
		Msg("Similarity ranking done")

	return summary, nil
}

package plagiarism

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/RishiKendai/lichen/internal/models"
)

const MatchesFile = "matches.json"

// clippedSpan returns how many positions of the inclusive range [start, end]
// lie after prevEnd, never less than zero.
func clippedSpan(prevEnd, start, end int) int {
	return max(0, end-max(prevEnd, start-1))
}

// ComputeSubmissionStats aggregates one submission's matches. tokenCount is
// the approximate token count (fingerprint lines + sequence length).
//
// matches must be sorted by ascending Start, as the match detector writes
// them. That order is trusted, not checked: out-of-order input silently
// miscounts overlap instead of failing.
//
// The returned list has one entry per other submission with at least one
// shared hash, sorted by count descending; ties keep first-seen order.
func ComputeSubmissionStats(userID, version string, tokenCount int, matches []models.Match) (models.SubmissionStats, []models.MatchingSubmission) {
	stats := models.SubmissionStats{
		UserID:     userID,
		Version:    version,
		TokenCount: tokenCount,
	}

	// blank/empty submission
	if tokenCount <= 1 {
		return stats, nil
	}

	var others []models.MatchingSubmission
	index := make(map[models.SubmissionKey]int)
	prevEnd := 0

	for _, match := range matches {
		// common and provided code: not evidence of copying between students
		if match.Type != models.MatchTypeMatch {
			continue
		}

		span := clippedSpan(prevEnd, match.Start, match.End)
		for _, other := range match.Others {
			i, ok := index[other]
			if !ok {
				i = len(others)
				index[other] = i
				others = append(others, models.MatchingSubmission{SubmissionKey: other})
			}
			others[i].MatchingHashCount += span
		}
		stats.TotalHashesMatched += span
		prevEnd = max(prevEnd, match.End)
	}

	stats.PercentMatch = float64(stats.TotalHashesMatched) / float64(tokenCount)

	ranked := others[:0]
	for _, o := range others {
		if o.MatchingHashCount > 0 {
			ranked = append(ranked, o)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].MatchingHashCount > ranked[j].MatchingHashCount
	})
	if len(ranked) > 0 {
		stats.HighestMatchCount = ranked[0].MatchingHashCount
	}

	return stats, ranked
}

// CountFingerprints returns the number of fingerprint lines in a hashes file
func CountFingerprints(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open fingerprints %s: %w", path, err)
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if len(bytes.TrimSpace(scanner.Bytes())) > 0 {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("failed to read fingerprints %s: %w", path, err)
	}
	return count, nil
}

// LoadMatches reads a matches.json file. A missing file means no matches and
// is reported with found=false rather than an error.
func LoadMatches(path string) (matches []models.Match, found bool, err error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read matches %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &matches); err != nil {
		return nil, true, fmt.Errorf("failed to parse matches %s: %w", path, err)
	}
	return matches, true, nil
}

// GetSubmissionStats computes the statistics of the submission stored in dir
// (hashes.txt + optional matches.json).
func GetSubmissionStats(userID, version, dir string, sequenceLength int) (models.SubmissionStats, []models.MatchingSubmission, error) {
	stats := models.SubmissionStats{UserID: userID, Version: version}

	lines, err := CountFingerprints(filepath.Join(dir, HashesFile))
	if err != nil {
		return stats, nil, err
	}
	stats.TokenCount = lines + sequenceLength
	if stats.TokenCount <= 1 {
		return stats, nil, nil
	}

	matches, found, err := LoadMatches(filepath.Join(dir, MatchesFile))
	if err != nil || !found {
		return stats, nil, err
	}

	stats, others := ComputeSubmissionStats(userID, version, stats.TokenCount, matches)
	return stats, others, nil
}

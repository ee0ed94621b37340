package plagiarism

import (
	"fmt"
	"sort"
	"strings"

	"github.com/RishiKendai/lichen/internal/models"
	"github.com/RishiKendai/lichen/internal/repository"
)

const (
	RankingFile        = "ranking.txt"
	OverallRankingFile = "overall_ranking.txt"
)

// SortByHighestMatch orders stats by HighestMatchCount, largest first.
// The sort is stable so equal counts keep their encounter order.
func SortByHighestMatch(stats []models.SubmissionStats) {
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].HighestMatchCount > stats[j].HighestMatchCount
	})
}

// FormatRankingLine renders one line of a submission's ranking.txt
func FormatRankingLine(m models.MatchingSubmission) string {
	return fmt.Sprintf("%-10s %3d %s %8d\n", m.UserID, m.Version, m.SourceGradeable, m.MatchingHashCount)
}

// WriteRanking writes matches, already sorted, to path. No matches gives an
// empty file.
func WriteRanking(path string, matches []models.MatchingSubmission) error {
	var b strings.Builder
	for _, m := range matches {
		b.WriteString(FormatRankingLine(m))
	}
	return repository.WriteFileAtomic(path, []byte(b.String()), 0o644)
}

// OverallRanking picks the entries of overall_ranking.txt from stats sorted
// by SortByHighestMatch: the first submission seen for each user, skipping
// submissions that matched nothing. A skipped submission does not claim its
// user, so a later version of the same user can still appear.
func OverallRanking(sorted []models.SubmissionStats) []models.SubmissionStats {
	seen := make(map[string]bool)
	entries := make([]models.SubmissionStats, 0)
	for _, s := range sorted {
		if seen[s.UserID] || s.TotalHashesMatched <= 0 {
			continue
		}
		seen[s.UserID] = true
		entries = append(entries, s)
	}
	return entries
}

// FormatOverallLine renders one line of overall_ranking.txt
func FormatOverallLine(s models.SubmissionStats) string {
	return fmt.Sprintf("%-10s %-3s %3.0f%% %8d\n", s.UserID, s.Version, s.PercentMatch*100, s.TotalHashesMatched)
}

func WriteOverallRanking(path string, entries []models.SubmissionStats) error {
	var b strings.Builder
	for _, s := range entries {
		b.WriteString(FormatOverallLine(s))
	}
	return repository.WriteFileAtomic(path, []byte(b.String()), 0o644)
}

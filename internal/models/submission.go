package models

import "fmt"

// SubmissionKey identifies one version of one user's work within a gradeable
type SubmissionKey struct {
	UserID          string `json:"username" bson:"userId"`
	Version         int    `json:"version" bson:"version"`
	SourceGradeable string `json:"source_gradeable" bson:"sourceGradeable"`
}

func (k SubmissionKey) String() string {
	return fmt.Sprintf("%s_%d_%s", k.UserID, k.Version, k.SourceGradeable)
}

// Match is one record of matches.json: the fingerprint positions [Start, End]
// (1-indexed, inclusive) of this submission shared with Others. Records whose
// Type is not MatchTypeMatch (common or provided code) carry no Others.
type Match struct {
	Type   string          `json:"type"`
	Start  int             `json:"start"`
	End    int             `json:"end"`
	Others []SubmissionKey `json:"others,omitempty"`
}

const MatchTypeMatch = "match"

// MatchingSubmission is another submission and the number of hashes it shares
type MatchingSubmission struct {
	SubmissionKey     `bson:",inline"`
	MatchingHashCount int `json:"matching_hash_count" bson:"matchingHashCount"`
}

// SubmissionStats summarizes how much of one submission matches the rest
type SubmissionStats struct {
	UserID             string  `json:"user_id" bson:"userId"`
	Version            string  `json:"version" bson:"version"`
	TokenCount         int     `json:"token_count" bson:"tokenCount"`
	PercentMatch       float64 `json:"percent_match" bson:"percentMatch"`
	TotalHashesMatched int     `json:"total_hashes_matched" bson:"totalHashesMatched"`
	HighestMatchCount  int     `json:"highest_match_count" bson:"highestMatchCount"`
}

package models

import (
	"time"
)

type Step string

const (
	StepIdle      Step = "idle"
	StepInitiated Step = "initiated"
	StepHashing   Step = "hashing"
	StepRanking   Step = "ranking"
	StepCompleted Step = "completed"
	StepFailed    Step = "failed"
)

// ValidSteps lists every step a run can report
var ValidSteps = map[Step]bool{
	StepIdle:      true,
	StepInitiated: true,
	StepHashing:   true,
	StepRanking:   true,
	StepCompleted: true,
	StepFailed:    true,
}

// SubmissionRanking is one submission's stats and its ranking.txt content
type SubmissionRanking struct {
	RunID     string               `bson:"runId" json:"runId"`
	Gradeable string               `bson:"gradeable" json:"gradeable"`
	Stats     SubmissionStats      `bson:"stats" json:"stats"`
	Matches   []MatchingSubmission `bson:"matches" json:"matches"`
	CreatedAt time.Time            `bson:"createdAt" json:"createdAt"`
}

// OverallRanking is the assignment-wide ranking of one run
type OverallRanking struct {
	RunID     string            `bson:"runId" json:"runId"`
	Gradeable string            `bson:"gradeable" json:"gradeable"`
	Entries   []SubmissionStats `bson:"entries" json:"entries"`
	CreatedAt time.Time         `bson:"createdAt" json:"createdAt"`
}

// RunReport summarizes one pipeline run
type RunReport struct {
	RunID             string        `bson:"runId" json:"runId"`
	Gradeable         string        `bson:"gradeable" json:"gradeable"`
	BasePath          string        `bson:"basePath" json:"basePath"`
	Status            Step          `bson:"status" json:"status"`
	Error             string        `bson:"error,omitempty" json:"error,omitempty"`
	SubmissionsHashed int           `bson:"submissionsHashed" json:"submissionsHashed"`
	TruncatedFiles    int           `bson:"truncatedFiles" json:"truncatedFiles"`
	SubmissionsRanked int           `bson:"submissionsRanked" json:"submissionsRanked"`
	OverallEntries    int           `bson:"overallEntries" json:"overallEntries"`
	Warnings          []string      `bson:"warnings" json:"warnings"`
	HashDuration      time.Duration `bson:"hashDuration" json:"hashDuration"`
	RankDuration      time.Duration `bson:"rankDuration" json:"rankDuration"`
	CreatedAt         time.Time     `bson:"createdAt" json:"createdAt"`
	CompletedAt       time.Time     `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
}

// RunRequest asks for the pipeline to be run over one base path
type RunRequest struct {
	RunID          string `json:"runId"`
	BasePath       string `json:"basePath" binding:"required"`
	Gradeable      string `json:"gradeable"`
	Mode           string `json:"mode"`
	Language       string `json:"language"`
	SequenceLength int    `json:"sequenceLength"`
}

const (
	ModeHash = "hash"
	ModeRank = "rank"
	ModeAll  = "all"
)

// RunResponse is returned when a run is accepted
type RunResponse struct {
	Step  Step   `json:"step"`
	RunID string `json:"runId"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// RunStatusResponse reports the live step of a run and, once finished, its report
type RunStatusResponse struct {
	RunID  string     `json:"runId"`
	Step   Step       `json:"step"`
	Report *RunReport `json:"report,omitempty"`
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RishiKendai/lichen/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	submissionRankingsCollection = "submission_rankings"
	overallRankingsCollection    = "overall_rankings"
)

type RankingsRepository struct {
	mongoRepo *MongoRepository
}

func NewRankingsRepository(mongoRepo *MongoRepository) *RankingsRepository {
	return &RankingsRepository{
		mongoRepo: mongoRepo,
	}
}

// SaveRankings stores a run's per-submission rankings and its overall
// ranking. Rankings left by an earlier run of the same gradeable are
// replaced, since outputs are regenerated wholesale each run.
func (r *RankingsRepository) SaveRankings(ctx context.Context, runID, gradeable string, rankings []models.SubmissionRanking, overall []models.SubmissionStats) error {
	now := time.Now()

	if _, err := r.mongoRepo.DeleteMany(ctx, submissionRankingsCollection, bson.M{"gradeable": gradeable}); err != nil {
		return fmt.Errorf("failed to clear submission rankings: %w", err)
	}

	docs := make([]interface{}, 0, len(rankings))
	for _, sr := range rankings {
		sr.RunID = runID
		sr.Gradeable = gradeable
		sr.CreatedAt = now
		if sr.Matches == nil {
			sr.Matches = []models.MatchingSubmission{}
		}
		docs = append(docs, sr)
	}
	if err := r.mongoRepo.InsertMany(ctx, submissionRankingsCollection, docs); err != nil {
		return fmt.Errorf("failed to insert submission rankings: %w", err)
	}

	doc := models.OverallRanking{
		RunID:     runID,
		Gradeable: gradeable,
		Entries:   overall,
		CreatedAt: now,
	}
	if err := r.mongoRepo.Upsert(ctx, overallRankingsCollection, bson.M{"gradeable": gradeable}, doc); err != nil {
		return fmt.Errorf("failed to save overall ranking: %w", err)
	}

	return nil
}

// GetOverallRanking returns the latest overall ranking of gradeable, or nil, nil
func (r *RankingsRepository) GetOverallRanking(ctx context.Context, gradeable string) (*models.OverallRanking, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	var ranking models.OverallRanking
	err := r.mongoRepo.FindOne(ctx, overallRankingsCollection, bson.M{"gradeable": gradeable}, opts).Decode(&ranking)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find overall ranking: %w", err)
	}
	return &ranking, nil
}

// GetSubmissionRanking returns one submission's stored ranking, or nil, nil
func (r *RankingsRepository) GetSubmissionRanking(ctx context.Context, gradeable, userID, version string) (*models.SubmissionRanking, error) {
	filter := bson.M{
		"gradeable":     gradeable,
		"stats.userId":  userID,
		"stats.version": version,
	}

	var ranking models.SubmissionRanking
	err := r.mongoRepo.FindOne(ctx, submissionRankingsCollection, filter).Decode(&ranking)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find submission ranking: %w", err)
	}
	return &ranking, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/RishiKendai/lichen/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const runsCollection = "lichen_runs"

type RunsRepository struct {
	mongoRepo *MongoRepository
}

func NewRunsRepository(mongoRepo *MongoRepository) *RunsRepository {
	return &RunsRepository{
		mongoRepo: mongoRepo,
	}
}

// SaveRun stores the report, replacing an earlier one with the same run ID
func (r *RunsRepository) SaveRun(ctx context.Context, report *models.RunReport) error {
	filter := bson.M{"runId": report.RunID}
	if err := r.mongoRepo.Upsert(ctx, runsCollection, filter, report); err != nil {
		return fmt.Errorf("failed to save run report: %w", err)
	}
	return nil
}

// GetRun returns nil, nil when no report exists for runID
func (r *RunsRepository) GetRun(ctx context.Context, runID string) (*models.RunReport, error) {
	var report models.RunReport
	err := r.mongoRepo.FindOne(ctx, runsCollection, bson.M{"runId": runID}).Decode(&report)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find run report: %w", err)
	}
	return &report, nil
}

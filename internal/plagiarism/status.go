package plagiarism

import (
	"context"
	"errors"
	"fmt"
	"time"

	redisInfra "github.com/RishiKendai/lichen/internal/infra/redis"
	"github.com/RishiKendai/lichen/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	statusKeyPrefix = "lichen_run_status:"
	statusTTL       = 12 * time.Hour
)

var ErrRunNotFound = errors.New("run not found")

// StatusTracker records the step a run has reached
type StatusTracker interface {
	UpdateStatus(ctx context.Context, runID string, step models.Step) error
	GetStatus(ctx context.Context, runID string) (models.Step, error)
}

type RedisStatusTracker struct {
	client *redisInfra.Client
}

func NewRedisStatusTracker(client *redisInfra.Client) *RedisStatusTracker {
	return &RedisStatusTracker{client: client}
}

func statusKey(runID string) string {
	return statusKeyPrefix + runID
}

func (t *RedisStatusTracker) UpdateStatus(ctx context.Context, runID string, step models.Step) error {
	if !models.ValidSteps[step] {
		return fmt.Errorf("unknown step: %s", step)
	}

	rkey := statusKey(runID)
	if err := t.client.Set(ctx, rkey, string(step), statusTTL).Err(); err != nil {
		log.Error().Err(err).
			Str("step", string(step)).
			Str("runID", runID).
			Str("redisKey", rkey).
			Msg("Failed to update status in Redis")
		return fmt.Errorf("failed to update status in Redis: %w", err)
	}

	log.Trace().
		Str("step", string(step)).
		Str("runID", runID).
		Msg("Status updated in Redis")
	return nil
}

func (t *RedisStatusTracker) GetStatus(ctx context.Context, runID string) (models.Step, error) {
	val, err := t.client.Get(ctx, statusKey(runID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrRunNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read status from Redis: %w", err)
	}
	return models.Step(val), nil
}

// NopStatusTracker is used by batch runs without Redis
type NopStatusTracker struct{}

func (NopStatusTracker) UpdateStatus(context.Context, string, models.Step) error {
	return nil
}

func (NopStatusTracker) GetStatus(context.Context, string) (models.Step, error) {
	return "", ErrRunNotFound
}

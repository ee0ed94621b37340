package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RishiKendai/lichen/internal/config"
	"github.com/RishiKendai/lichen/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RunExecutor runs one pipeline request
type RunExecutor interface {
	Run(ctx context.Context, req models.RunRequest) (*models.RunReport, error)
}

// StreamClient is the part of the Redis client the consumer talks to
type StreamClient interface {
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAutoClaim(ctx context.Context, a *redis.XAutoClaimArgs) *redis.XAutoClaimCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XTrimMinID(ctx context.Context, key string, minID string) *redis.IntCmd
}

type Consumer struct {
	client              StreamClient
	streamKey           string
	consumerGroup       string
	consumerName        string
	deadLetterKey       string
	dataDir             string
	runner              RunExecutor
	runTimeout          time.Duration
	retentionDuration   time.Duration
	pelRecoveryInterval time.Duration
	cleanupInterval     time.Duration
	lastPELCheck        time.Time
}

type ConsumerConfig struct {
	StreamKey         string
	ConsumerGroup     string
	ConsumerName      string
	DeadLetterKey     string
	DataDir           string
	RunTimeout        time.Duration
	RetentionDuration time.Duration
}

func NewConsumer(client StreamClient, runner RunExecutor, cfg ConsumerConfig) *Consumer {
	return &Consumer{
		client:              client,
		streamKey:           cfg.StreamKey,
		consumerGroup:       cfg.ConsumerGroup,
		consumerName:        cfg.ConsumerName,
		deadLetterKey:       cfg.DeadLetterKey,
		dataDir:             cfg.DataDir,
		runner:              runner,
		runTimeout:          cfg.RunTimeout,
		retentionDuration:   cfg.RetentionDuration,
		pelRecoveryInterval: 30 * time.Second,
		cleanupInterval:     1 * time.Hour,
		lastPELCheck:        time.Now(),
	}
}

func (c *Consumer) Start(ctx context.Context) error {
	if err := c.createConsumerGroup(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to create consumer group, may be already exists")
	}

	log.Info().Msg("Recovering pending run requests on startup")
	if err := c.recoverPEL(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to recover PEL messages on startup")
	}
	c.lastPELCheck = time.Now()

	go c.runCleanupPeriodically(ctx)
	log.Info().
		Dur("cleanup_interval", c.cleanupInterval).
		Dur("retention", c.retentionDuration).
		Msg("Started cleanup goroutine")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := c.consume(ctx); err != nil {
				log.Error().Err(err).Msg("Error consuming messages")
				time.Sleep(time.Second)
			}
		}
	}
}

func (c *Consumer) createConsumerGroup(ctx context.Context) error {
	// MKSTREAM will create the stream if it doesn't exist
	err := c.client.XGroupCreateMkStream(ctx, c.streamKey, c.consumerGroup, "$").Err()
	if err != nil {
		if strings.Contains(err.Error(), "BUSYGROUP") {
			log.Debug().
				Str("group", c.consumerGroup).
				Msg("Consumer group already exists")
			return nil
		}
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	log.Info().
		Str("group", c.consumerGroup).
		Str("stream", c.streamKey).
		Msg("Created new consumer group (will only read new messages)")
	return nil
}

// recoverPEL claims requests left pending by a consumer that died mid-run
func (c *Consumer) recoverPEL(ctx context.Context) error {
	// a run in progress elsewhere stays idle in the PEL until it acks
	claimed, _, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   c.streamKey,
		Group:    c.consumerGroup,
		Consumer: c.consumerName,
		MinIdle:  c.claimIdle(),
		Start:    "0-0",
		Count:    10,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to claim pending messages: %w", err)
	}
	if len(claimed) == 0 {
		return nil
	}

	log.Info().Int("claimed", len(claimed)).Msg("Claimed stale run requests, processing")
	for _, msg := range claimed {
		if err := c.processMessage(ctx, &msg); err != nil {
			log.Error().
				Err(err).
				Str("message_id", msg.ID).
				Msg("Failed to process claimed message")
		}
	}
	return nil
}

// claimIdle is how long a pending message must sit before another consumer
// may take it over
func (c *Consumer) claimIdle() time.Duration {
	if c.runTimeout > 0 {
		return c.runTimeout + time.Minute
	}
	return time.Minute
}

func (c *Consumer) consume(ctx context.Context) error {
	if time.Since(c.lastPELCheck) > c.pelRecoveryInterval {
		if err := c.recoverPEL(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to recover PEL messages")
		}
		c.lastPELCheck = time.Now()
	}

	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.consumerGroup,
		Consumer: c.consumerName,
		Streams:  []string{c.streamKey, ">"},
		Count:    1,           // runs are long, take one at a time
		Block:    time.Second,
	}).Result()

	if errors.Is(err, redis.Nil) {
		return nil // No messages available
	}
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, stream := range streams {
		if stream.Stream != c.streamKey {
			continue
		}

		for _, msg := range stream.Messages {
			if err := c.processMessage(ctx, &msg); err != nil {
				log.Error().
					Err(err).
					Str("message_id", msg.ID).
					Msg("Failed to process message")
			}
		}
	}

	return nil
}

// processMessage runs one request. Messages are acknowledged whatever the
// outcome; failed runs are copied to the dead-letter stream, not retried.
func (c *Consumer) processMessage(ctx context.Context, msg *redis.XMessage) error {
	fields := make(map[string]string)
	for key, val := range msg.Values {
		if value, ok := val.(string); ok {
			fields[key] = value
		}
	}

	streamMsg := &StreamMessage{
		ID:     msg.ID,
		Fields: fields,
	}

	req, err := ParseRunRequest(streamMsg)
	if err == nil {
		req.BasePath, err = config.ResolveBasePath(c.dataDir, req.BasePath)
	}
	if err != nil {
		log.Error().Err(err).Str("message_id", msg.ID).Msg("Failed to parse run request")
		c.deadLetter(ctx, streamMsg, err)
		_ = c.acknowledge(ctx, msg.ID)
		return err
	}

	runCtx := ctx
	if c.runTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.runTimeout)
		defer cancel()
	}

	if _, err := c.runner.Run(runCtx, req); err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			// shutting down: leave it pending so PEL recovery picks it up
			return err
		}
		c.deadLetter(ctx, streamMsg, err)
		_ = c.acknowledge(ctx, msg.ID)
		return err
	}

	return c.acknowledge(ctx, msg.ID)
}

// deadLetter copies a failed message to the dead-letter stream
func (c *Consumer) deadLetter(ctx context.Context, msg *StreamMessage, cause error) {
	values := make(map[string]interface{}, len(msg.Fields)+3)
	for k, v := range msg.Fields {
		values[k] = v
	}
	values["original_id"] = msg.ID
	values["error"] = cause.Error()
	values["failed_at"] = time.Now().UTC().Format(time.RFC3339)

	err := c.client.XAdd(context.WithoutCancel(ctx), &redis.XAddArgs{
		Stream: c.deadLetterKey,
		Values: values,
	}).Err()
	if err != nil {
		log.Error().Err(err).Str("message_id", msg.ID).Msg("Failed to write message to dead-letter stream")
		return
	}

	log.Warn().
		Str("message_id", msg.ID).
		Str("dead_letter", c.deadLetterKey).
		Msg("Message moved to dead-letter stream")
}

// trimStreams drops entries older than the retention window from the request
// stream and from the dead-letter stream
func (c *Consumer) trimStreams(ctx context.Context) error {
	cutoff := time.Now().Add(-c.retentionDuration)
	minID := fmt.Sprintf("%d-0", cutoff.UnixMilli())

	var errs []error
	for _, key := range []string{c.streamKey, c.deadLetterKey} {
		trimmed, err := c.client.XTrimMinID(ctx, key, minID).Result()
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to trim stream %s: %w", key, err))
			continue
		}
		if trimmed > 0 {
			log.Debug().
				Str("stream", key).
				Int64("trimmed", trimmed).
				Str("cutoff_time", cutoff.Format(time.RFC3339)).
				Msg("Trimmed old stream entries")
		}
	}
	return errors.Join(errs...)
}

func (c *Consumer) runCleanupPeriodically(ctx context.Context) {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	if err := c.trimStreams(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to run initial cleanup")
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Cleanup goroutine shutting down")
			return
		case <-ticker.C:
			if err := c.trimStreams(ctx); err != nil {
				log.Error().Err(err).Msg("Failed to trim streams")
			}
		}
	}
}

func (c *Consumer) acknowledge(ctx context.Context, messageID string) error {
	err := c.client.XAck(ctx, c.streamKey, c.consumerGroup, messageID).Err()
	if err != nil {
		log.Error().Err(err).Str("message_id", messageID).Msg("Failed to acknowledge message")
		return err
	}

	log.Debug().
		Str("message_id", messageID).
		Msg("Message acknowledged")

	return nil
}

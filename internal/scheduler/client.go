package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"leadmarket_backend/platform/config"
)

// Client enqueues background tasks. It implements intake.Enqueuer; a failed
// enqueue is never fatal because the database queue row is the source of
// truth and the sweep re-enqueues it.
type Client struct {
	client *asynq.Client
	queue  string
}

// NewClient creates an asynq client from the queue configuration.
func NewClient(cfg config.QueueConfig) (*Client, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetQueueName()
	if queue == "" {
		queue = "default"
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

// Close releases the underlying redis connections.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueRoute schedules routing for one lead.
func (c *Client) EnqueueRoute(ctx context.Context, workspaceID, leadID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewLeadRouteTask(LeadRoutePayload{
		LeadID:      leadID.String(),
		WorkspaceID: workspaceID.String(),
	})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(5),
		asynq.Timeout(time.Minute),
	)
	return err
}

// EnqueueSweep schedules one maintenance sweep run.
func (c *Client) EnqueueSweep(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}

	_, err := c.client.EnqueueContext(ctx, NewMaintenanceSweepTask(),
		asynq.Queue(c.queue),
		asynq.MaxRetry(0),
	)
	return err
}

func redisClientOpt(redisURL string) (asynq.RedisClientOpt, error) {
	if redisURL == "" {
		return asynq.RedisClientOpt{}, fmt.Errorf("redis url not configured")
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}

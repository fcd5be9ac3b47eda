package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"leadmarket_backend/internal/leads/repository"
	"leadmarket_backend/internal/leads/routing"
	"leadmarket_backend/platform/config"
	"leadmarket_backend/platform/logger"
)

const (
	sweepInterval = 5 * time.Minute
	// stuckAfter is how long a routing job may sit in processing before the
	// sweep assumes its worker died.
	stuckAfter      = 10 * time.Minute
	maxRouteRetries = 5
)

// Worker consumes background tasks: lead routing jobs and the periodic
// maintenance sweep that expires overdue offers and recovers stuck jobs.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	client *Client
	repo   *repository.Repo
	engine *routing.Engine
	log    *logger.Logger
}

// NewWorker creates the asynq worker.
func NewWorker(cfg config.QueueConfig, repo *repository.Repo, engine *routing.Engine, client *Client, log *logger.Logger) (*Worker, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetQueueConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		client: client,
		repo:   repo,
		engine: engine,
		log:    log,
	}

	mux.HandleFunc(TaskLeadRoute, w.handleLeadRoute)
	mux.HandleFunc(TaskMaintenanceSweep, w.handleMaintenanceSweep)

	return w, nil
}

// Run serves tasks until the context is cancelled. A ticker enqueues the
// maintenance sweep alongside.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go w.runSweepTicker(ctx)

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) runSweepTicker(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.client.EnqueueSweep(ctx); err != nil {
				w.log.Error("enqueue maintenance sweep", "error", err)
			}
		}
	}
}

// handleLeadRoute claims the lead's queue row and runs the routing engine.
// The claim makes delivery effectively once: a redelivered task finds no
// pending row and returns clean.
func (w *Worker) handleLeadRoute(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLeadRoutePayload(task)
	if err != nil {
		return err
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return err
	}
	workspaceID, err := uuid.Parse(payload.WorkspaceID)
	if err != nil {
		return err
	}

	claimed, err := w.repo.ClaimPending(ctx, leadID)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	if err := w.engine.RouteLead(ctx, workspaceID, leadID); err != nil {
		if markErr := w.repo.MarkQueueFailed(ctx, leadID); markErr != nil {
			w.log.Error("mark routing job failed", "error", markErr, "leadId", leadID)
		}
		w.log.Error("route lead", "error", err, "leadId", leadID)
		return err
	}

	return w.repo.MarkQueueDone(ctx, leadID)
}

// handleMaintenanceSweep expires overdue matches and leads and puts stuck
// routing jobs back on the queue.
func (w *Worker) handleMaintenanceSweep(ctx context.Context, _ *asynq.Task) error {
	now := time.Now()

	expiredMatches, err := w.repo.ExpireOverdueMatches(ctx, now)
	if err != nil {
		w.log.Error("expire overdue matches", "error", err)
	}
	expiredLeads, err := w.repo.ExpireOverdueLeads(ctx, now)
	if err != nil {
		w.log.Error("expire overdue leads", "error", err)
	}

	jobs, err := w.repo.RequeueStuck(ctx, stuckAfter, maxRouteRetries)
	if err != nil {
		w.log.Error("requeue stuck routing jobs", "error", err)
	}
	for _, job := range jobs {
		if err := w.client.EnqueueRoute(ctx, job.WorkspaceID, job.LeadID); err != nil {
			w.log.Error("re-enqueue routing job", "error", err, "leadId", job.LeadID)
		}
	}

	if expiredMatches > 0 || expiredLeads > 0 || len(jobs) > 0 {
		w.log.Info("maintenance sweep",
			"expiredMatches", expiredMatches,
			"expiredLeads", expiredLeads,
			"requeued", len(jobs),
		)
	}
	return nil
}

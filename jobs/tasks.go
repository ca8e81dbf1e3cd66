// Package jobs wires background work through Asynq: currently the
// periodic prune of used and expired credential tokens.
package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/daniry/backoffice/internal/jobs"
	"github.com/daniry/backoffice/internal/token"
)

// QueueDefault is the queue every task runs on.
const QueueDefault = "default"

// TaskTokenPrune removes inert credential tokens. Verification never
// matches used or expired rows, so pruning is hygiene, not correctness.
const TaskTokenPrune = "tokens:prune"

// NewTokenPruneTask builds a prune task. The task carries no payload.
func NewTokenPruneTask() *asynq.Task {
	return asynq.NewTask(TaskTokenPrune, nil)
}

// NewTokenPruneHandler returns the Asynq handler for TaskTokenPrune.
func NewTokenPruneHandler(repo token.Repository, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track("token_prune")
		removed, err := repo.DeleteInert(ctx)
		if err != nil {
			if logger != nil {
				logger.Error("token prune", slog.Any("error", err))
			}
			return tracker.End(err)
		}
		metrics.AddTokensPruned(removed)
		if logger != nil {
			logger.Info("token prune", slog.Int64("removed", removed))
		}
		return tracker.End(nil)
	}
}

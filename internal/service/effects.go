package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fleetline/fleet-api/internal/models"
	appErrors "github.com/fleetline/fleet-api/pkg/errors"
	"github.com/fleetline/fleet-api/pkg/jobs"
)

type errorLogWriter interface {
	Create(ctx context.Context, entry *models.ErrorLog) error
}

type effectQueue interface {
	Enqueue(job jobs.Job) error
}

// Effect names used for metrics, warnings and error logs.
const (
	EffectHistory      = "history_append"
	EffectDerivedTasks = "derived_task_sync"
	EffectNotification = "notification"
)

// EffectRunner executes work that follows a committed primary write. A failing effect
// never fails the request: it becomes a warning, is written to error_logs and is queued
// for retry.
type EffectRunner struct {
	queue     effectQueue
	errorLogs errorLogWriter
	metrics   *MetricsService
	logger    *zap.Logger
	timeout   time.Duration
}

// NewEffectRunner constructs an EffectRunner. queue and errorLogs may be nil.
func NewEffectRunner(queue effectQueue, errorLogs errorLogWriter, metrics *MetricsService, logger *zap.Logger) *EffectRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EffectRunner{queue: queue, errorLogs: errorLogs, metrics: metrics, logger: logger, timeout: 30 * time.Second}
}

// Run attempts fn inline and returns a warning message when it failed, or "" on success.
// Retries run on the queue's context, not the request's.
func (r *EffectRunner) Run(ctx context.Context, effect, subject string, fn func(context.Context) error) string {
	err := fn(ctx)
	if err == nil {
		r.metrics.RecordEffect(effect, "ok")
		return ""
	}

	r.metrics.RecordEffect(effect, "failed")
	info := RequestFromContext(ctx)
	r.logger.Warn("post-commit effect failed",
		zap.String("effect", effect),
		zap.String("subject", subject),
		zap.String("request_id", info.RequestID),
		zap.Error(err),
	)
	r.recordFailure(context.WithoutCancel(ctx), effect, subject, err)

	warning := fmt.Sprintf("%s failed for %s", effect, subject)
	if r.queue == nil {
		return warning
	}

	job := jobs.Job{
		Type: effect,
		Run: func(jobCtx context.Context) error {
			runCtx, cancel := context.WithTimeout(jobCtx, r.timeout)
			defer cancel()
			return fn(runCtx)
		},
	}
	if qErr := r.queue.Enqueue(job); qErr != nil {
		r.logger.Error("failed to queue effect retry", zap.String("effect", effect), zap.Error(qErr))
		return warning
	}
	return warning + "; retry scheduled"
}

func (r *EffectRunner) recordFailure(ctx context.Context, effect, subject string, cause error) {
	if r.errorLogs == nil {
		return
	}
	info := RequestFromContext(ctx)
	appErr := appErrors.FromError(cause)
	detail := cause.Error()
	entry := &models.ErrorLog{
		RequestID: optional(info.RequestID),
		Method:    optional(info.Method),
		Path:      optional(info.Path),
		ActorID:   optional(info.ActorID),
		Code:      appErr.Code,
		Message:   fmt.Sprintf("%s failed for %s", effect, subject),
		Detail:    &detail,
	}
	if err := r.errorLogs.Create(ctx, entry); err != nil {
		r.logger.Error("failed to record effect failure", zap.String("effect", effect), zap.Error(err))
	}
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

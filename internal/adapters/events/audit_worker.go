package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/reqquli/reqquli/internal/ports"
)

// AuditWorker pulls unpublished audit events and publishes them to the stream.
// This separates transactional writes from broker delivery for reliability.
type AuditWorker struct {
	logger     *slog.Logger
	audit      ports.AuditRepository
	publisher  ports.EventPublisher
	interval   time.Duration
	batchSize  int
	claimTTL   time.Duration
	maxRetries int
}

// NewAuditWorker constructs the audit publisher loop with sane defaults.
func NewAuditWorker(
	logger *slog.Logger,
	audit ports.AuditRepository,
	publisher ports.EventPublisher,
	interval time.Duration,
	batchSize int,
	claimTTL time.Duration,
	maxRetries int,
) *AuditWorker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if claimTTL <= 0 {
		claimTTL = 30 * time.Second
	}
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &AuditWorker{
		logger:     logger,
		audit:      audit,
		publisher:  publisher,
		interval:   interval,
		batchSize:  batchSize,
		claimTTL:   claimTTL,
		maxRetries: maxRetries,
	}
}

// Run executes the periodic publish loop until context cancellation.
func (w *AuditWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.processOnce(ctx); err != nil {
			w.logger.ErrorContext(ctx, "audit publish iteration failed",
				"module", "events.audit_worker",
				"layer", "adapter",
				"operation", "audit_process_once",
				"outcome", "failure",
				"error", err,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *AuditWorker) processOnce(ctx context.Context) error {
	claimToken := uuid.NewString()
	records, err := w.audit.ClaimUnpublished(ctx, w.batchSize, claimToken, time.Now().UTC().Add(w.claimTTL))
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	published := 0
	failed := 0
	deadLettered := 0
	for _, rec := range records {
		if rec.RetryCount >= w.maxRetries {
			deadLettered++
			_ = w.audit.MarkDeadLettered(ctx, rec.EventID, claimToken, "retry threshold reached before publish", now)
			continue
		}

		// Partition key is the entity ID so an entity's history stays ordered.
		if err := w.publisher.Publish(ctx, rec.Action, rec.EntityID, rec.Payload); err != nil {
			failed++
			retriesAfterFailure := rec.RetryCount + 1
			if retriesAfterFailure >= w.maxRetries {
				deadLettered++
				w.logger.ErrorContext(ctx, "audit event moved to dlq",
					"module", "events.audit_worker",
					"layer", "adapter",
					"operation", "publish_event",
					"outcome", "failure",
					"event_id", rec.EventID,
					"action", rec.Action,
					"entity_id", rec.EntityID,
					"payload_bytes", len(rec.Payload),
					"retry_count", retriesAfterFailure,
					"error", err,
				)
				_ = w.audit.MarkDeadLettered(ctx, rec.EventID, claimToken, err.Error(), now)
				continue
			}

			w.logger.WarnContext(ctx, "audit publish failed; retry scheduled",
				"module", "events.audit_worker",
				"layer", "adapter",
				"operation", "publish_event",
				"outcome", "failure",
				"event_id", rec.EventID,
				"action", rec.Action,
				"entity_id", rec.EntityID,
				"payload_bytes", len(rec.Payload),
				"retry_count", retriesAfterFailure,
				"error", err,
			)
			_ = w.audit.MarkFailed(ctx, rec.EventID, claimToken, err.Error(), now)
			continue
		}
		published++
		_ = w.audit.MarkPublished(ctx, rec.EventID, claimToken, now)
	}
	if len(records) > 0 {
		w.logger.InfoContext(ctx, "audit batch processed",
			"module", "events.audit_worker",
			"layer", "adapter",
			"operation", "audit_process_once",
			"outcome", "success",
			"batch_size", len(records),
			"published_count", published,
			"failed_count", failed,
			"dead_lettered_count", deadLettered,
		)
	}
	return nil
}

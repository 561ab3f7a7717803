// Package worker drains background jobs. The only job today is retrying the
// identity revocation step of an account removal.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noor-academy/backend/internal/identity"
	"github.com/noor-academy/backend/internal/models"
	"github.com/noor-academy/backend/pkg/apperr"
	"github.com/noor-academy/backend/pkg/queue"
)

// dequeueTimeout bounds each blocking pop so shutdown is noticed promptly.
const dequeueTimeout = 5 * time.Second

// Queue is the job source the processor drains.
type Queue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// AccountReader reads the removal state of an account.
type AccountReader interface {
	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// RevocationProcessor revokes identities of removed accounts whose revocation
// failed during removal.
type RevocationProcessor struct {
	accounts AccountReader
	revoker  identity.Revoker
	queue    Queue
	backoff  time.Duration
	logger   *zap.Logger
}

// NewRevocationProcessor creates a revocation processor.
func NewRevocationProcessor(accounts AccountReader, revoker identity.Revoker, q Queue, logger *zap.Logger) *RevocationProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RevocationProcessor{accounts: accounts, revoker: revoker, queue: q, backoff: queue.RetryBackoff, logger: logger}
}

// Process executes one revocation job. Jobs for accounts that are gone or
// no longer removed are dropped.
func (p *RevocationProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeIdentityRevocation {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.RevocationPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	acc, err := p.accounts.GetAccount(ctx, payload.AccountID)
	if apperr.Is(err, apperr.KindNotFound) {
		p.logger.Warn("revocation for unknown account dropped", zap.String("account_id", payload.AccountID.String()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	if !acc.Removed {
		p.logger.Warn("revocation for live account dropped", zap.String("account_id", acc.ID.String()))
		return nil
	}

	if err := p.revoker.RevokeIdentity(ctx, acc.ID); err != nil {
		return fmt.Errorf("revoke identity: %w", err)
	}
	p.logger.Info("identity revoked by worker",
		zap.String("account_id", acc.ID.String()),
		zap.String("removed_by", payload.RemovedBy.String()),
		zap.Int("attempt", job.Attempt),
	)
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *RevocationProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("revocation worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *RevocationProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noor-academy/backend/internal/memstore"
	"github.com/noor-academy/backend/internal/models"
	"github.com/noor-academy/backend/pkg/queue"
)

type stubRevoker struct {
	mu      sync.Mutex
	err     error
	revoked []uuid.UUID
}

func (r *stubRevoker) RevokeIdentity(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.revoked = append(r.revoked, id)
	return nil
}

func (r *stubRevoker) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.revoked)
}

// chanQueue serves jobs from a channel and records retries.
type chanQueue struct {
	jobs    chan *queue.Job
	mu      sync.Mutex
	retried []*queue.Job
}

func (q *chanQueue) Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error) {
	select {
	case job := <-q.jobs:
		return job, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(timeout):
		return nil, nil
	}
}

func (q *chanQueue) Retry(_ context.Context, job *queue.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	job.Attempt++
	q.retried = append(q.retried, job)
	return nil
}

func revocationJob(t *testing.T, accountID uuid.UUID) *queue.Job {
	t.Helper()
	body, err := json.Marshal(queue.RevocationPayload{AccountID: accountID, RemovedBy: uuid.New()})
	require.NoError(t, err)
	return &queue.Job{ID: uuid.NewString(), Type: queue.JobTypeIdentityRevocation, Payload: body}
}

func TestProcess(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	removedAt := time.Now()
	removed := models.Account{ID: uuid.New(), Role: models.RoleStudent, Removed: true, RemovedAt: &removedAt}
	live := models.Account{ID: uuid.New(), Role: models.RoleStudent}
	store.PutAccount(removed)
	store.PutAccount(live)

	revoker := &stubRevoker{}
	p := NewRevocationProcessor(store, revoker, nil, nil)

	require.NoError(t, p.Process(ctx, revocationJob(t, removed.ID)))
	require.NoError(t, p.Process(ctx, revocationJob(t, live.ID)))
	require.NoError(t, p.Process(ctx, revocationJob(t, uuid.New())))
	assert.Equal(t, []uuid.UUID{removed.ID}, revoker.revoked)

	revoker.err = errors.New("provider down")
	assert.Error(t, p.Process(ctx, revocationJob(t, removed.ID)))

	assert.Error(t, p.Process(ctx, &queue.Job{Type: "email"}))
}

func TestRunRetriesFailedJobs(t *testing.T) {
	store := memstore.New()
	removedAt := time.Now()
	acc := models.Account{ID: uuid.New(), Role: models.RoleTeacher, Removed: true, RemovedAt: &removedAt}
	store.PutAccount(acc)

	revoker := &stubRevoker{err: errors.New("provider down")}
	q := &chanQueue{jobs: make(chan *queue.Job, 1)}
	p := NewRevocationProcessor(store, revoker, q, nil)
	p.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	q.jobs <- revocationJob(t, acc.ID)
	require.Eventually(t, func() bool {
		q.mu.Lock()
		defer q.mu.Unlock()
		return len(q.retried) == 1
	}, time.Second, 5*time.Millisecond)

	revoker.mu.Lock()
	revoker.err = nil
	revoker.mu.Unlock()
	q.mu.Lock()
	job := q.retried[0]
	q.mu.Unlock()
	q.jobs <- job
	require.Eventually(t, func() bool { return revoker.count() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

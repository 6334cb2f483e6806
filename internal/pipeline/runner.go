package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/erandesamadhan2003/autopost-backend/pkg/db/models"
	"github.com/erandesamadhan2003/autopost-backend/pkg/enums"
	pkgerrors "github.com/erandesamadhan2003/autopost-backend/pkg/errors"
	"github.com/erandesamadhan2003/autopost-backend/pkg/logger"
)

// handle tracks one in-process run.
type handle struct {
	done chan struct{}
	job  *models.PipelineJob
	err  error
}

// Runner starts pipeline runs in the background and hands back the job id.
// Callers poll the job record or Wait on it in-process.
type Runner struct {
	orchestrator *Orchestrator
	tracker      Tracker
	drafts       DraftStore
	logg         *logger.Logger

	mu       sync.Mutex
	inflight map[uuid.UUID]*handle
	wg       sync.WaitGroup
}

// NewRunner wraps an orchestrator.
func NewRunner(orchestrator *Orchestrator) (*Runner, error) {
	if orchestrator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orchestrator required")
	}
	return &Runner{
		orchestrator: orchestrator,
		tracker:      orchestrator.tracker,
		drafts:       orchestrator.drafts,
		logg:         orchestrator.logg,
		inflight:     map[uuid.UUID]*handle{},
	}, nil
}

// Submit moves the draft into processing, creates its job and runs it in the
// background. A draft with a job still pending or processing is rejected.
func (r *Runner) Submit(ctx context.Context, draftID uuid.UUID) (*models.PipelineJob, error) {
	draft, err := r.drafts.FindByID(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if !draft.Status.CanResubmit() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("draft in status %s cannot be submitted for generation", draft.Status))
	}
	active, err := r.tracker.ActiveJobForDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("pipeline job %s is still %s", active.ID, active.Status))
	}

	err = r.drafts.UpdateStatus(ctx, draftID,
		[]enums.DraftStatus{enums.DraftStatusDraft, enums.DraftStatusFailed},
		enums.DraftStatusProcessing,
		map[string]any{"generator_status": datatypes.NewJSONType(processingStates())},
	)
	if err != nil {
		return nil, err
	}

	job, err := r.tracker.CreateJob(ctx, draftID)
	if err != nil {
		rollbackErr := r.drafts.UpdateStatus(context.WithoutCancel(ctx), draftID,
			[]enums.DraftStatus{enums.DraftStatusProcessing}, enums.DraftStatusFailed, nil)
		if rollbackErr != nil {
			r.logg.Error(ctx, "restore draft status after failed submit", rollbackErr)
		}
		return nil, err
	}
	draft.Status = enums.DraftStatusProcessing

	h := &handle{done: make(chan struct{})}
	r.mu.Lock()
	r.inflight[job.ID] = h
	r.mu.Unlock()

	runCtx := context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				h.err = pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("pipeline run panicked: %v", rec))
				r.logg.Error(runCtx, "pipeline run panicked", h.err)
			}
			close(h.done)
			r.mu.Lock()
			delete(r.inflight, job.ID)
			r.mu.Unlock()
		}()
		h.job, h.err = r.orchestrator.Execute(runCtx, job.ID, draft)
	}()

	return job, nil
}

// Wait blocks until the job finishes. Jobs not running in this process are
// answered from the job record once settled.
func (r *Runner) Wait(ctx context.Context, jobID uuid.UUID) (*models.PipelineJob, error) {
	r.mu.Lock()
	h, ok := r.inflight[jobID]
	r.mu.Unlock()

	if ok {
		select {
		case <-h.done:
			return h.job, h.err
		case <-ctx.Done():
			return nil, pkgerrors.Wrap(pkgerrors.CodeTimeout, ctx.Err(), "waiting for pipeline job")
		}
	}

	job, err := r.tracker.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.Status.IsSettled() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("pipeline job %s is %s and not running in this process", jobID, job.Status))
	}
	return job, nil
}

// Job returns the current job record.
func (r *Runner) Job(ctx context.Context, jobID uuid.UUID) (*models.PipelineJob, error) {
	return r.tracker.GetJob(ctx, jobID)
}

// Shutdown waits for in-flight runs to settle or for ctx to end.
func (r *Runner) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return pkgerrors.Wrap(pkgerrors.CodeTimeout, ctx.Err(), "pipeline runs still in flight")
	}
}

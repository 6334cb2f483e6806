package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/erandesamadhan2003/autopost-backend/internal/generation"
	"github.com/erandesamadhan2003/autopost-backend/pkg/clock"
	"github.com/erandesamadhan2003/autopost-backend/pkg/db/models"
	"github.com/erandesamadhan2003/autopost-backend/pkg/enums"
	pkgerrors "github.com/erandesamadhan2003/autopost-backend/pkg/errors"
	"github.com/erandesamadhan2003/autopost-backend/pkg/logger"
	"github.com/erandesamadhan2003/autopost-backend/pkg/metrics"
)

const (
	defaultMusicMood = "upbeat"
	maxRetryDelay    = 30 * time.Second
)

// Generators is the set of external content generators a run fans out to.
type Generators interface {
	GenerateCaptions(ctx context.Context, req generation.CaptionRequest) (*generation.CaptionResult, error)
	ProcessImages(ctx context.Context, req generation.ImageRequest) (*generation.ImageResult, error)
	GenerateVideo(ctx context.Context, req generation.VideoRequest) (*generation.VideoResult, error)
	SuggestMusic(ctx context.Context, req generation.MusicRequest) (*generation.MusicResult, error)
}

// DraftStore is the draft persistence a run needs.
type DraftStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Draft, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from []enums.DraftStatus, to enums.DraftStatus, fields map[string]any) error
	SaveGenerated(ctx context.Context, draft *models.Draft) error
}

// Params configure the orchestrator.
type Params struct {
	Tracker      Tracker
	Drafts       DraftStore
	Generators   Generators
	Logger       *logger.Logger
	Metrics      *metrics.PipelineMetrics
	RetryBackoff time.Duration
	MusicMood    string
}

// Orchestrator fans a draft out to every generator, waits for all of them to
// settle and merges whatever succeeded.
type Orchestrator struct {
	tracker      Tracker
	drafts       DraftStore
	generators   Generators
	logg         *logger.Logger
	metrics      *metrics.PipelineMetrics
	retryBackoff time.Duration
	musicMood    string
	now          func() time.Time
	wait         func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator builds an orchestrator.
func NewOrchestrator(p Params) (*Orchestrator, error) {
	if p.Tracker == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "pipeline tracker required")
	}
	if p.Drafts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "draft store required")
	}
	if p.Generators == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "generators required")
	}
	if p.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	mood := p.MusicMood
	if mood == "" {
		mood = defaultMusicMood
	}
	return &Orchestrator{
		tracker:      p.Tracker,
		drafts:       p.Drafts,
		generators:   p.Generators,
		logg:         p.Logger,
		metrics:      p.Metrics,
		retryBackoff: p.RetryBackoff,
		musicMood:    mood,
		now:          time.Now,
		wait:         clock.Sleep,
	}, nil
}

// Run creates a job for the draft and executes it to completion.
func (o *Orchestrator) Run(ctx context.Context, draft *models.Draft) (*models.PipelineJob, error) {
	if draft == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "draft is required")
	}
	job, err := o.tracker.CreateJob(ctx, draft.ID)
	if err != nil {
		return nil, err
	}
	return o.Execute(ctx, job.ID, draft)
}

// Execute runs an already created job. Generator failures are recorded on
// their slots; only a failure to persist the merge fails the job.
func (o *Orchestrator) Execute(ctx context.Context, jobID uuid.UUID, draft *models.Draft) (*models.PipelineJob, error) {
	ctx = o.logg.WithFields(ctx, map[string]any{"job_id": jobID.String(), "draft_id": draft.ID.String()})
	// Bookkeeping outlives the caller so every slot settles.
	book := context.WithoutCancel(ctx)

	if err := o.tracker.MarkJobProcessing(book, jobID); err != nil {
		return o.abort(book, jobID, draft.ID, fmt.Sprintf("start pipeline job: %s", pkgerrors.MessageOf(err)), false)
	}
	o.logg.Info(ctx, "pipeline dispatch started")

	out := &outputs{}
	var group errgroup.Group
	for _, generator := range enums.GeneratorTypes {
		group.Go(func() error {
			o.dispatch(ctx, book, jobID, generator, func(callCtx context.Context) error {
				return o.call(callCtx, generator, draft, out)
			})
			return nil
		})
	}
	_ = group.Wait()

	return o.finalize(ctx, book, jobID, draft.ID, out)
}

// dispatch drives one slot through processing and its retries until it settles.
func (o *Orchestrator) dispatch(ctx, book context.Context, jobID uuid.UUID, generator enums.GeneratorType, call func(context.Context) error) {
	ctx = o.logg.WithField(ctx, "generator", string(generator))
	backoff := o.newBackoff()

	for attempt := 1; ; attempt++ {
		if err := o.tracker.MarkProcessing(book, jobID, generator); err != nil {
			o.logg.Error(ctx, "mark generator slot processing", err)
			return
		}

		start := o.now()
		err := call(ctx)
		o.metrics.ObserveGenerator(string(generator), o.now().Sub(start), err)

		if err == nil {
			if markErr := o.tracker.MarkCompleted(book, jobID, generator); markErr != nil {
				o.logg.Error(ctx, "mark generator slot completed", markErr)
			}
			return
		}

		msg := pkgerrors.MessageOf(err)
		o.logg.Warn(o.logg.WithField(ctx, "attempt", attempt), fmt.Sprintf("generator failed: %s", msg))
		if markErr := o.tracker.MarkFailed(book, jobID, generator, msg); markErr != nil {
			o.logg.Error(ctx, "mark generator slot failed", markErr)
			return
		}
		if !pkgerrors.Retryable(err) {
			return
		}

		slot, retryErr := o.tracker.IncrementRetry(book, jobID, generator)
		if retryErr != nil {
			o.logg.Error(ctx, "increment generator retry", retryErr)
			return
		}
		if slot.Status != enums.JobStatusPending {
			o.logg.Warn(ctx, fmt.Sprintf("generator retries exhausted after %d attempts", slot.RetryCount))
			return
		}
		o.metrics.IncGeneratorRetry(string(generator))

		delay, _ := backoff.Next()
		if waitErr := o.wait(ctx, delay); waitErr != nil {
			if markErr := o.tracker.MarkFailed(book, jobID, generator, fmt.Sprintf("retry abandoned: %v", waitErr)); markErr != nil {
				o.logg.Error(ctx, "mark generator slot failed", markErr)
			}
			return
		}
	}
}

// call invokes one generator and stages its output on success.
func (o *Orchestrator) call(ctx context.Context, generator enums.GeneratorType, draft *models.Draft, out *outputs) error {
	switch generator {
	case enums.GeneratorCaption:
		res, err := o.generators.GenerateCaptions(ctx, o.captionRequest(draft))
		if err != nil {
			return err
		}
		out.captions = res
	case enums.GeneratorImage:
		res, err := o.generators.ProcessImages(ctx, generation.ImageRequest{
			DraftID:     draft.ID,
			Images:      draft.UploadedImages,
			Description: draft.Description,
		})
		if err != nil {
			return err
		}
		out.images = res
	case enums.GeneratorVideo:
		res, err := o.generators.GenerateVideo(ctx, generation.VideoRequest{
			DraftID:     draft.ID,
			Images:      draft.UploadedImages,
			Description: draft.Description,
		})
		if err != nil {
			return err
		}
		out.video = res
	case enums.GeneratorMusic:
		res, err := o.generators.SuggestMusic(ctx, generation.MusicRequest{
			DraftID:     draft.ID,
			Description: draft.Description,
			Mood:        o.musicMood,
		})
		if err != nil {
			return err
		}
		out.music = res
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown generator %q", generator))
	}
	return nil
}

func (o *Orchestrator) captionRequest(draft *models.Draft) generation.CaptionRequest {
	platforms := []string(draft.Platforms)
	if len(platforms) == 0 && draft.Platform != "" {
		platforms = []string{draft.Platform.String()}
	}
	req := generation.CaptionRequest{
		DraftID:     draft.ID,
		Description: draft.Description,
		Platforms:   platforms,
		Images:      draft.UploadedImages,
	}
	if draft.BrandTone != "" {
		req.Preferences = &generation.Preferences{Tone: draft.BrandTone}
	}
	return req
}

// finalize merges staged outputs once every slot has settled.
func (o *Orchestrator) finalize(ctx, book context.Context, jobID, draftID uuid.UUID, out *outputs) (*models.PipelineJob, error) {
	job, err := o.tracker.GetJob(book, jobID)
	if err != nil {
		return nil, err
	}
	for _, slot := range job.Slots {
		if !slot.Status.IsSettled() {
			return o.abort(book, jobID, draftID, fmt.Sprintf("%s slot did not settle (%s)", slot.GeneratorType, slot.Status), true)
		}
	}

	draft, err := o.drafts.FindByID(book, draftID)
	if err != nil {
		return o.abort(book, jobID, draftID, fmt.Sprintf("load draft for merge: %s", pkgerrors.MessageOf(err)), false)
	}
	mergeOutputs(draft, out)
	draft.GeneratorStatus = datatypes.NewJSONType(generatorStates(job))
	draft.Status = enums.DraftStatusReady
	if err := o.drafts.SaveGenerated(book, draft); err != nil {
		return o.abort(book, jobID, draftID, fmt.Sprintf("persist merged draft: %s", pkgerrors.MessageOf(err)), false)
	}

	if err := o.tracker.CompleteJob(book, jobID); err != nil {
		o.logg.Error(ctx, "complete pipeline job", err)
		return nil, err
	}
	o.metrics.IncPipelineRun(enums.JobStatusCompleted.String())

	succeeded := 0
	for _, generator := range enums.GeneratorTypes {
		if out.succeeded(generator) {
			succeeded++
		}
	}
	o.logg.Info(o.logg.WithField(ctx, "succeeded", succeeded), "pipeline completed")
	return o.tracker.GetJob(book, jobID)
}

// abort fails the job. When failDraft is set the draft also leaves processing
// so it can be resubmitted.
func (o *Orchestrator) abort(ctx context.Context, jobID, draftID uuid.UUID, reason string, failDraft bool) (*models.PipelineJob, error) {
	cause := pkgerrors.New(pkgerrors.CodeDependency, reason)
	o.logg.Error(ctx, "pipeline job failed", cause)
	o.metrics.IncPipelineRun(enums.JobStatusFailed.String())

	if err := o.tracker.FailJob(ctx, jobID, reason); err != nil {
		o.logg.Error(ctx, "mark pipeline job failed", err)
		return nil, errors.Join(cause, err)
	}
	if failDraft {
		err := o.drafts.UpdateStatus(ctx, draftID,
			[]enums.DraftStatus{enums.DraftStatusProcessing}, enums.DraftStatusFailed, nil)
		if err != nil {
			o.logg.Warn(ctx, fmt.Sprintf("could not fail draft after aborted run: %s", pkgerrors.MessageOf(err)))
		}
	}
	job, err := o.tracker.GetJob(ctx, jobID)
	if err != nil {
		return nil, errors.Join(cause, err)
	}
	return job, cause
}

func (o *Orchestrator) newBackoff() retry.Backoff {
	if o.retryBackoff <= 0 {
		return retry.BackoffFunc(func() (time.Duration, bool) { return 0, false })
	}
	return retry.WithCappedDuration(maxRetryDelay, retry.NewExponential(o.retryBackoff))
}

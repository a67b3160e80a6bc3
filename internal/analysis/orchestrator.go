// Package analysis implements the job lifecycle orchestration for
// sponsorship analysis: starting provider jobs, polling their status,
// projecting progress for display, and merging per-video reports.
package analysis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brandpulse/sponsorship-analysis-go/internal/metrics"
	"github.com/brandpulse/sponsorship-analysis-go/internal/models"
	"github.com/brandpulse/sponsorship-analysis-go/pkg/logger"
)

// ProviderAPI is the slice of the provider client the orchestrator needs.
type ProviderAPI interface {
	CreateJob(ctx context.Context, videoIDs, brands []string) (string, error)
	StatusFetcher
}

// JobRecorder persists terminal job outcomes. Implemented by the repository
// layer; optional.
type JobRecorder interface {
	RecordOutcome(ctx context.Context, job models.AnalysisJob, state models.JobState, errorMessage string, result *models.AnalysisResult) error
}

// EventPublisher publishes terminal job events. Implemented by the queue
// layer; optional.
type EventPublisher interface {
	PublishJobEvent(ctx context.Context, event *models.JobEvent) error
}

// Orchestrator owns the lifecycle of at most one analysis job at a time.
// Start hands back a JobHandle; while that handle is live and uncancelled,
// further Start calls are rejected with ErrJobInFlight. A fresh Orchestrator
// is cheap, so callers wanting concurrent jobs create one per job.
type Orchestrator struct {
	api       ProviderAPI
	poller    *Poller
	recorder  JobRecorder
	publisher EventPublisher

	mu     sync.Mutex
	active *JobHandle
}

// NewOrchestrator creates an Orchestrator over the given provider API.
func NewOrchestrator(api ProviderAPI, pollerConfig PollerConfig) *Orchestrator {
	return &Orchestrator{
		api:    api,
		poller: NewPoller(api, pollerConfig),
	}
}

// SetRecorder configures optional persistence of terminal outcomes.
func (o *Orchestrator) SetRecorder(r JobRecorder) {
	o.recorder = r
}

// SetPublisher configures optional publishing of terminal job events.
func (o *Orchestrator) SetPublisher(p EventPublisher) {
	o.publisher = p
}

// Active returns the currently owned handle, or nil.
func (o *Orchestrator) Active() *JobHandle {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

// Start creates a provider job for the given videos and begins polling it in
// the background. Mode is derived from the input: exactly one video id means
// a single-video job, more than one a batch job.
//
// If the orchestrator already owns a live, uncancelled handle, Start returns
// ErrJobInFlight without contacting the provider. If job creation fails, no
// handle is produced and the error is wrapped in StartFailedError; the caller
// may simply retry.
func (o *Orchestrator) Start(ctx context.Context, videoIDs, brands []string) (*JobHandle, error) {
	if len(videoIDs) == 0 {
		return nil, &StartFailedError{Cause: errors.New("no video ids provided")}
	}

	mode := models.JobModeBatch
	if len(videoIDs) == 1 {
		mode = models.JobModeSingle
	}

	handle := newJobHandle(o, mode)

	// Claim the single-job slot before the provider round trip so two
	// concurrent Start calls cannot both create jobs.
	o.mu.Lock()
	if o.active != nil && o.active.live() {
		o.mu.Unlock()
		return nil, ErrJobInFlight
	}
	o.active = handle
	o.mu.Unlock()

	jobID, err := o.api.CreateJob(ctx, videoIDs, brands)
	if err != nil {
		o.releaseSlot(handle)
		logger.Log.Error("failed to create analysis job",
			zap.Strings("videoIds", videoIDs),
			zap.Error(err),
		)
		return nil, &StartFailedError{Cause: err}
	}

	handle.job = models.AnalysisJob{
		JobID:             jobID,
		Mode:              mode,
		RequestedVideoIDs: append([]string(nil), videoIDs...),
		RequestedBrands:   append([]string(nil), brands...),
		CreatedAt:         time.Now().UTC(),
	}

	metrics.JobsStarted.WithLabelValues(string(mode)).Inc()
	logger.Log.Info("analysis job started",
		zap.String("jobId", jobID),
		zap.String("mode", string(mode)),
		zap.Int("videoCount", len(videoIDs)),
	)

	go o.run(handle)
	return handle, nil
}

// run drives one job from creation to settlement on a background goroutine.
func (o *Orchestrator) run(h *JobHandle) {
	defer o.releaseSlot(h)
	defer close(h.updates)

	projector := NewProjector()
	onStatus := func(status *models.AnalysisStatus) {
		h.publishProgress(projector.Observe(status))
	}

	status, err := o.poller.Poll(h.ctx, h.job.JobID, onStatus)

	if h.cancelled.Load() {
		// Abandoned by the caller. The handle never settles; the provider
		// job keeps running unobserved.
		metrics.JobsFinished.WithLabelValues(string(h.job.Mode), metrics.OutcomeAbandoned).Inc()
		logger.Log.Info("analysis job abandoned",
			zap.String("jobId", h.job.JobID),
		)
		return
	}

	if err != nil {
		o.settle(h, nil, err)
		return
	}

	// Fold the terminal snapshot into the displayed progress so late
	// brand discoveries are not lost.
	h.publishProgress(projector.Observe(status))

	if status.State == models.JobStateFailed {
		o.settle(h, nil, &JobFailedError{JobID: h.job.JobID, Reason: status.ErrorMessage})
		return
	}

	result := status.ResultPayload
	if !resultMatchesMode(result, h.job.Mode) {
		o.settle(h, nil, &MalformedResultError{JobID: h.job.JobID, Mode: string(h.job.Mode)})
		return
	}
	o.settle(h, result, nil)
}

// resultMatchesMode checks the terminal payload has the shape the job mode
// requires: a single report with a summary for single jobs, a combined report
// with a combined summary for batch jobs.
func resultMatchesMode(result *models.AnalysisResult, mode models.JobMode) bool {
	if result == nil {
		return false
	}
	switch mode {
	case models.JobModeSingle:
		return result.Single != nil && result.Single.Summary != nil
	case models.JobModeBatch:
		return result.Combined != nil && result.Combined.CombinedSummary != nil
	}
	return false
}

// settle resolves or rejects the handle exactly once and runs the optional
// recorder and publisher hooks. Hook failures are logged, never fatal.
func (o *Orchestrator) settle(h *JobHandle, result *models.AnalysisResult, err error) {
	// Free the slot before the handle becomes observable as settled, so a
	// caller woken by Done can immediately start the next job.
	o.releaseSlot(h)

	h.settleOnce.Do(func() {
		h.result = result
		h.err = err
		close(h.done)
	})

	state := models.JobStateCompleted
	errorMessage := ""
	outcome := metrics.OutcomeCompleted
	if err != nil {
		state = models.JobStateFailed
		errorMessage = err.Error()
		outcome = outcomeFor(err)
	}
	metrics.JobsFinished.WithLabelValues(string(h.job.Mode), outcome).Inc()

	logger.Log.Info("analysis job settled",
		zap.String("jobId", h.job.JobID),
		zap.String("state", string(state)),
		zap.String("outcome", outcome),
	)

	hookCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if o.recorder != nil {
		if recErr := o.recorder.RecordOutcome(hookCtx, h.job, state, errorMessage, result); recErr != nil {
			logger.Log.Error("failed to record job outcome",
				zap.String("jobId", h.job.JobID),
				zap.Error(recErr),
			)
		}
	}

	if o.publisher != nil {
		event := &models.JobEvent{
			EventID:   uuid.New().String(),
			JobID:     h.job.JobID,
			Mode:      h.job.Mode,
			VideoIDs:  h.job.RequestedVideoIDs,
			State:     state,
			Error:     errorMessage,
			Timestamp: time.Now().UTC(),
		}
		if pubErr := o.publisher.PublishJobEvent(hookCtx, event); pubErr != nil {
			logger.Log.Error("failed to publish job event",
				zap.String("jobId", h.job.JobID),
				zap.Error(pubErr),
			)
		}
	}
}

func outcomeFor(err error) string {
	switch err.(type) {
	case *JobExpiredError:
		return metrics.OutcomeExpired
	case *MalformedResultError:
		return metrics.OutcomeMalformed
	case *TransientFailureLimitError:
		return metrics.OutcomeTransientLimit
	default:
		return metrics.OutcomeFailed
	}
}

// releaseSlot frees the single-job slot if h still holds it.
func (o *Orchestrator) releaseSlot(h *JobHandle) {
	o.mu.Lock()
	if o.active == h {
		o.active = nil
	}
	o.mu.Unlock()
}

// JobHandle is the caller's ownership token for one running analysis job.
// It settles at most once, with either a result or an error; a cancelled
// handle is abandoned and never settles.
type JobHandle struct {
	job    models.AnalysisJob
	ctx    context.Context
	cancel context.CancelFunc

	cancelled atomic.Bool

	done       chan struct{}
	settleOnce sync.Once
	result     *models.AnalysisResult
	err        error

	progressMu sync.RWMutex
	latest     models.DisplayProgress
	updates    chan models.DisplayProgress
}

func newJobHandle(o *Orchestrator, mode models.JobMode) *JobHandle {
	ctx, cancel := context.WithCancel(context.Background())
	return &JobHandle{
		job:     models.AnalysisJob{Mode: mode},
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		updates: make(chan models.DisplayProgress, 16),
		latest: models.DisplayProgress{
			StageIndex:  -1,
			StageList:   models.Stages(),
			BrandsFound: []string{},
		},
	}
}

// Job returns the job's identity and request parameters.
func (h *JobHandle) Job() models.AnalysisJob {
	return h.job
}

// Done is closed when the handle settles. It stays open forever for a
// cancelled handle.
func (h *JobHandle) Done() <-chan struct{} {
	return h.done
}

// Settled reports whether the handle has resolved or rejected.
func (h *JobHandle) Settled() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Result blocks until the handle settles or ctx is done, then returns the
// terminal result or error. Safe to call from multiple goroutines.
func (h *JobHandle) Result(ctx context.Context) (*models.AnalysisResult, error) {
	select {
	case <-h.done:
		return h.result, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Progress returns the latest projected progress snapshot.
func (h *JobHandle) Progress() models.DisplayProgress {
	h.progressMu.RLock()
	defer h.progressMu.RUnlock()
	return h.latest
}

// Updates streams projected progress snapshots. Sends never block the
// polling loop: when the buffer is full the snapshot is dropped and the
// caller catches up via Progress. Closed when the job stops being observed.
func (h *JobHandle) Updates() <-chan models.DisplayProgress {
	return h.updates
}

// Cancelled reports whether Cancel has been called.
func (h *JobHandle) Cancelled() bool {
	return h.cancelled.Load()
}

// Cancel abandons the job: polling stops, the handle never settles, and the
// orchestrator's slot is freed for a new Start. The provider job itself is
// not stopped. Idempotent.
func (h *JobHandle) Cancel() {
	if h.cancelled.CompareAndSwap(false, true) {
		h.cancel()
	}
}

// live reports whether the handle still blocks the orchestrator slot.
func (h *JobHandle) live() bool {
	return !h.cancelled.Load() && !h.Settled()
}

func (h *JobHandle) publishProgress(p models.DisplayProgress) {
	h.progressMu.Lock()
	h.latest = p
	h.progressMu.Unlock()

	select {
	case h.updates <- p:
	default:
	}
}

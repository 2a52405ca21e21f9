package transcription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/johnquangdev/transcript-pipeline/internal/domain/entities"
	"github.com/johnquangdev/transcript-pipeline/internal/domain/providers"
	"github.com/johnquangdev/transcript-pipeline/internal/domain/repositories"
	"github.com/johnquangdev/transcript-pipeline/pkg/jobcontext"
)

// errAwaitingLocator asks the backoff loop for its single delayed re-query
var errAwaitingLocator = errors.New("result locator not yet available")

// ReconcilerConfig holds reconciler tuning
type ReconcilerConfig struct {
	CallTimeout  time.Duration
	RequeryDelay time.Duration
	// Now is the clock used for elapsed time; defaults to time.Now
	Now func() time.Time
}

// Reconciler brings a job record in line with the provider's view of the job
type Reconciler struct {
	jobs      repositories.JobRepository
	results   repositories.ResultRepository
	provider  providers.TranscriptProvider
	assembler *Assembler
	policy    CompletionPolicy
	cfg       ReconcilerConfig
	assembly  singleflight.Group
	logger    *zap.Logger
}

// NewReconciler creates a reconciler; a nil policy means LocatorFirstPolicy
func NewReconciler(
	jobs repositories.JobRepository,
	results repositories.ResultRepository,
	provider providers.TranscriptProvider,
	assembler *Assembler,
	policy CompletionPolicy,
	cfg ReconcilerConfig,
	logger *zap.Logger,
) *Reconciler {
	if policy == nil {
		policy = LocatorFirstPolicy{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		jobs:      jobs,
		results:   results,
		provider:  provider,
		assembler: assembler,
		policy:    policy,
		cfg:       cfg,
		logger:    logger,
	}
}

// PollOutcome is the best-known state of a job after one poll
type PollOutcome struct {
	Job *entities.TranscriptionJob `json:"job"`
	// Result is set once the job is COMPLETED and its transcript is assembled
	Result *TranscriptView `json:"result,omitempty"`
	// AssemblyError is the reason a completed job has no result yet
	AssemblyError string `json:"assembly_error,omitempty"`
}

// TranscriptView is the assembled transcript returned to pollers
type TranscriptView struct {
	FullText string             `json:"full_text"`
	Speakers []entities.Speaker `json:"speakers"`
}

// PollStatus observes the provider once (plus at most one delayed re-query)
// and records what it saw. Terminal jobs are reported from the store without a
// provider status call. A provider failure is returned as a ProviderError and
// leaves the record untouched.
func (r *Reconciler) PollStatus(ctx context.Context, job *entities.TranscriptionJob) (*PollOutcome, error) {
	if job.Status.IsTerminal() {
		return r.terminalOutcome(ctx, job)
	}

	verdict, err := r.observe(ctx, job)
	if err != nil {
		r.logger.Warn("⚠️ Provider status check failed",
			zap.String("job_id", job.ID.String()),
			zap.String("provider_job_id", job.ProviderJobID),
			zap.Bool("timeout", jobcontext.IsTimeout(err)),
			zap.Error(err),
		)
		return nil, err
	}

	switch verdict.Status {
	case entities.JobStatusCompleted:
		if _, err := r.jobs.MarkCompleted(ctx, job.ID, verdict.ResultLocator); err != nil {
			return nil, fmt.Errorf("failed to mark job completed: %w", err)
		}
		r.logger.Info("✅ Transcription completed",
			zap.String("job_id", job.ID.String()),
			zap.String("result_locator", verdict.ResultLocator),
		)

	case entities.JobStatusFailed:
		if _, err := r.jobs.MarkFailed(ctx, job.ID, verdict.FailureReason); err != nil {
			return nil, fmt.Errorf("failed to mark job failed: %w", err)
		}
		r.logger.Error("❌ Transcription failed at provider",
			zap.String("job_id", job.ID.String()),
			zap.String("reason", verdict.FailureReason),
		)

	default:
		if _, err := r.jobs.RecordProgress(ctx, job.ID, verdict.Status, verdict.Progress); err != nil {
			return nil, fmt.Errorf("failed to record progress: %w", err)
		}
	}

	// Re-read: a concurrent poll may have moved the job further than this one saw
	current, err := r.jobs.GetByID(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload job: %w", err)
	}
	if current == nil {
		return nil, entities.ErrJobNotFound
	}

	if current.Status.IsTerminal() {
		return r.terminalOutcome(ctx, current)
	}
	return &PollOutcome{Job: current}, nil
}

// observe queries the provider and evaluates the report. When the policy asks
// for it, one more query is made after RequeryDelay.
func (r *Reconciler) observe(ctx context.Context, job *entities.TranscriptionJob) (Verdict, error) {
	var (
		verdict  Verdict
		attempts int
	)

	operation := func() error {
		attempts++
		report, err := r.fetchStatus(ctx, job)
		if err != nil {
			return backoff.Permanent(err)
		}

		verdict = r.policy.Evaluate(report, r.elapsed(report, job))
		if r.policy.ShouldRequery(verdict) {
			return errAwaitingLocator
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(r.cfg.RequeryDelay), 1),
		ctx,
	)

	err := backoff.Retry(operation, policy)
	switch {
	case err == nil:
		return verdict, nil

	case errors.Is(err, errAwaitingLocator):
		r.logger.Info("⏳ Result locator still absent after re-query",
			zap.String("job_id", job.ID.String()),
			zap.Int("progress", verdict.Progress),
		)
		return verdict, nil

	case attempts > 1:
		// The first observation succeeded; only the re-query failed
		r.logger.Warn("⚠️ Re-query failed, keeping first observation",
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
		return verdict, nil

	default:
		return Verdict{}, entities.NewProviderError("get_status", err)
	}
}

func (r *Reconciler) fetchStatus(ctx context.Context, job *entities.TranscriptionJob) (*providers.StatusReport, error) {
	callCtx, cancel := jobcontext.CallBegin(ctx, job.ID, "get_status", r.cfg.CallTimeout)
	defer cancel()

	report, err := r.provider.GetStatus(callCtx, job.ProviderJobID)
	if err != nil {
		return nil, entities.NewProviderError("get_status", err)
	}
	if report == nil {
		return nil, entities.NewProviderError("get_status", errors.New("empty status report"))
	}
	return report, nil
}

// elapsed is measured from the provider's creation time when it reports one
func (r *Reconciler) elapsed(report *providers.StatusReport, job *entities.TranscriptionJob) time.Duration {
	start := report.CreatedAt
	if start.IsZero() {
		start = job.CreatedAt
	}
	d := r.cfg.Now().Sub(start)
	if d < 0 {
		return 0
	}
	return d
}

// terminalOutcome reports a terminal job, assembling its result first if a
// completed job has none stored yet
func (r *Reconciler) terminalOutcome(ctx context.Context, job *entities.TranscriptionJob) (*PollOutcome, error) {
	outcome := &PollOutcome{Job: job}
	if job.Status != entities.JobStatusCompleted {
		return outcome, nil
	}

	view, err := r.storedView(ctx, job)
	if err != nil {
		return nil, err
	}
	if view != nil {
		outcome.Result = view
		return outcome, nil
	}

	if !job.HasResultLocator() {
		outcome.AssemblyError = "completed job has no result locator"
		return outcome, nil
	}

	view, err = r.assemble(ctx, job)
	if err != nil {
		// The job itself succeeded; a later poll retries from the stored locator
		r.logger.Error("❌ Failed to assemble transcript",
			zap.String("job_id", job.ID.String()),
			zap.String("result_locator", *job.ResultLocator),
			zap.Error(err),
		)
		outcome.AssemblyError = err.Error()
		return outcome, nil
	}
	outcome.Result = view
	return outcome, nil
}

// assemble builds and stores the transcript once; concurrent polls in this
// process share one fetch
func (r *Reconciler) assemble(ctx context.Context, job *entities.TranscriptionJob) (*TranscriptView, error) {
	v, err, _ := r.assembly.Do(job.ID.String(), func() (interface{}, error) {
		assembly, err := r.assembler.Assemble(ctx, job.ID, *job.ResultLocator)
		if err != nil {
			return nil, err
		}

		inserted, err := r.results.SaveAssembly(ctx,
			entities.NewResultText(job.ID, assembly),
			entities.NewSpeakerSegments(job.ID, assembly))
		if err != nil {
			return nil, fmt.Errorf("failed to save transcript: %w", err)
		}
		if inserted {
			r.logger.Info("💾 Transcript stored",
				zap.String("job_id", job.ID.String()),
				zap.Int("speakers", len(assembly.Speakers)),
			)
		}

		// Another process may have stored first; serve what is stored
		return r.storedView(ctx, job)
	})
	if err != nil {
		return nil, err
	}
	view, _ := v.(*TranscriptView)
	if view == nil {
		return nil, errors.New("transcript not stored")
	}
	return view, nil
}

func (r *Reconciler) storedView(ctx context.Context, job *entities.TranscriptionJob) (*TranscriptView, error) {
	result, err := r.results.GetResult(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}
	if result == nil {
		return nil, nil
	}

	view := &TranscriptView{FullText: result.FullText}
	if !result.Diarized {
		return view, nil
	}

	segments, err := r.results.GetSpeakerSegments(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load speaker segments: %w", err)
	}
	view.Speakers = make([]entities.Speaker, 0, len(segments))
	for _, seg := range segments {
		view.Speakers = append(view.Speakers, entities.Speaker{Label: seg.SpeakerLabel, Text: seg.Text})
	}
	return view, nil
}

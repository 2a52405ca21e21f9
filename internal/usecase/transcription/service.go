package transcription

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/transcript-pipeline/internal/domain/entities"
	"github.com/johnquangdev/transcript-pipeline/internal/domain/providers"
	"github.com/johnquangdev/transcript-pipeline/internal/domain/repositories"
	"github.com/johnquangdev/transcript-pipeline/internal/infrastructure/cache"
	"github.com/johnquangdev/transcript-pipeline/pkg/jobcontext"
	"github.com/johnquangdev/transcript-pipeline/pkg/validator"
)

// supportedFormats are the audio containers accepted at submission
var supportedFormats = map[string]struct{}{
	"mp3": {}, "mp4": {}, "m4a": {}, "wav": {}, "flac": {}, "ogg": {}, "webm": {}, "amr": {},
}

const maxSpeakersLimit = 30

// ServiceConfig holds service tuning
type ServiceConfig struct {
	CallTimeout  time.Duration
	AudioURLTTL  time.Duration
	PollCacheTTL time.Duration
}

// SubmitInput is one transcription submission
type SubmitInput struct {
	OwnerID       string
	SourceLocator string // storage object key or http(s) URL
	Format        string
	LanguageHint  string
	Diarize       bool
	MaxSpeakers   int
}

// ResultDetails is everything stored for a completed job
type ResultDetails struct {
	JobID        uuid.UUID          `json:"job_id"`
	FullText     string             `json:"full_text"`
	Speakers     []entities.Speaker `json:"speakers"`
	Summary      *string            `json:"summary,omitempty"`
	KeyPhrases   []string           `json:"key_phrases"`
	Translations []string           `json:"translations"`
	LinkedNoteID *string            `json:"linked_note_id,omitempty"`
}

// Service exposes the transcription job operations
type Service struct {
	jobs       repositories.JobRepository
	results    repositories.ResultRepository
	provider   providers.TranscriptProvider
	reconciler *Reconciler
	signer     providers.AudioURLSigner
	notes      providers.NoteWriter
	snapshots  cache.Store
	cfg        ServiceConfig
	logger     *zap.Logger
}

// NewService wires the transcription service. signer and snapshots may be nil.
func NewService(
	jobs repositories.JobRepository,
	results repositories.ResultRepository,
	provider providers.TranscriptProvider,
	reconciler *Reconciler,
	signer providers.AudioURLSigner,
	notes providers.NoteWriter,
	snapshots cache.Store,
	cfg ServiceConfig,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		jobs:       jobs,
		results:    results,
		provider:   provider,
		reconciler: reconciler,
		signer:     signer,
		notes:      notes,
		snapshots:  snapshots,
		cfg:        cfg,
		logger:     logger,
	}
}

// SubmitJob hands the audio to the provider and records a SUBMITTED job
func (s *Service) SubmitJob(ctx context.Context, in SubmitInput) (*entities.TranscriptionJob, error) {
	in.OwnerID = strings.TrimSpace(in.OwnerID)
	in.SourceLocator = strings.TrimSpace(in.SourceLocator)
	in.Format = strings.ToLower(strings.TrimSpace(in.Format))
	in.LanguageHint = strings.TrimSpace(in.LanguageHint)

	if err := validateSubmit(in); err != nil {
		return nil, err
	}

	audioURL, err := s.resolveAudioURL(ctx, in.SourceLocator)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := jobcontext.CallBegin(ctx, uuid.Nil, "submit", s.cfg.CallTimeout)
	defer cancel()

	providerJobID, err := s.provider.Submit(callCtx, providers.SubmitRequest{
		AudioURL:     audioURL,
		Format:       in.Format,
		LanguageHint: in.LanguageHint,
		Diarize:      in.Diarize,
		MaxSpeakers:  in.MaxSpeakers,
	})
	if err != nil {
		s.logger.Error("❌ Transcription submit failed",
			zap.String("owner_id", in.OwnerID),
			zap.Error(err),
		)
		return nil, entities.NewProviderError("submit", err)
	}

	job := entities.NewTranscriptionJob(in.OwnerID, providerJobID, in.SourceLocator, entities.JobOptions{
		Format:       in.Format,
		LanguageHint: in.LanguageHint,
		Diarize:      in.Diarize,
		MaxSpeakers:  in.MaxSpeakers,
	})
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	s.logger.Info("🎙️ Transcription job submitted",
		zap.String("job_id", job.ID.String()),
		zap.String("provider_job_id", providerJobID),
		zap.String("owner_id", in.OwnerID),
		zap.Bool("diarize", in.Diarize),
	)
	return job, nil
}

func validateSubmit(in SubmitInput) error {
	if in.OwnerID == "" {
		return entities.NewValidationError("owner_id", "is required")
	}
	if in.SourceLocator == "" {
		return entities.NewValidationError("source_locator", "is required")
	}
	if in.Format != "" {
		if _, ok := supportedFormats[in.Format]; !ok {
			return entities.NewValidationError("format", fmt.Sprintf("%q is not supported", in.Format))
		}
	}
	if in.LanguageHint != "" && !validator.IsLanguageCode(in.LanguageHint) {
		return entities.NewValidationError("language_hint", fmt.Sprintf("%q is not a language code", in.LanguageHint))
	}
	if in.MaxSpeakers < 0 || in.MaxSpeakers > maxSpeakersLimit {
		return entities.NewValidationError("max_speakers", fmt.Sprintf("must be between 0 and %d", maxSpeakersLimit))
	}
	return nil
}

// resolveAudioURL passes URLs through and presigns storage object keys
func (s *Service) resolveAudioURL(ctx context.Context, locator string) (string, error) {
	if isURL(locator) {
		return locator, nil
	}
	if s.signer == nil {
		return "", entities.NewValidationError("source_locator", "storage is not configured, pass an http(s) URL")
	}
	url, err := s.signer.PresignedAudioURL(ctx, locator, s.cfg.AudioURLTTL)
	if err != nil {
		return "", fmt.Errorf("failed to presign audio url: %w", err)
	}
	return url, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// PollJob returns the best-known state of a job. When the provider check fails
// the stored snapshot is still returned, together with the ProviderError.
func (s *Service) PollJob(ctx context.Context, jobID uuid.UUID) (*PollOutcome, error) {
	if cached := s.cachedOutcome(ctx, jobID); cached != nil {
		return cached, nil
	}

	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	if job == nil {
		return nil, entities.ErrJobNotFound
	}

	outcome, err := s.reconciler.PollStatus(ctx, job)
	if err != nil {
		if entities.IsProviderError(err) {
			return &PollOutcome{Job: job}, err
		}
		return nil, err
	}

	s.cacheOutcome(ctx, outcome)
	return outcome, nil
}

func (s *Service) cachedOutcome(ctx context.Context, jobID uuid.UUID) *PollOutcome {
	if s.snapshots == nil {
		return nil
	}
	raw, ok, err := s.snapshots.Get(ctx, cache.PollSnapshotKey(jobID))
	if err != nil {
		s.logger.Warn("⚠️ Poll snapshot cache read failed", zap.String("job_id", jobID.String()), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	var outcome PollOutcome
	if err := json.Unmarshal(raw, &outcome); err != nil || outcome.Job == nil {
		return nil
	}
	return &outcome
}

// cacheOutcome keeps final snapshots only: failed jobs, and completed jobs
// whose transcript is assembled
func (s *Service) cacheOutcome(ctx context.Context, outcome *PollOutcome) {
	if s.snapshots == nil || s.cfg.PollCacheTTL <= 0 {
		return
	}
	job := outcome.Job
	final := job.Status == entities.JobStatusFailed ||
		(job.Status == entities.JobStatusCompleted && outcome.Result != nil)
	if !final {
		return
	}

	raw, err := json.Marshal(outcome)
	if err != nil {
		return
	}
	if err := s.snapshots.Set(ctx, cache.PollSnapshotKey(job.ID), raw, s.cfg.PollCacheTTL); err != nil {
		s.logger.Warn("⚠️ Poll snapshot cache write failed", zap.String("job_id", job.ID.String()), zap.Error(err))
	}
}

func (s *Service) invalidateOutcome(ctx context.Context, jobID uuid.UUID) {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.Delete(ctx, cache.PollSnapshotKey(jobID)); err != nil {
		s.logger.Warn("⚠️ Poll snapshot cache delete failed", zap.String("job_id", jobID.String()), zap.Error(err))
	}
}

// ListJobHistory lists an owner's jobs, newest first
func (s *Service) ListJobHistory(ctx context.Context, ownerID string, limit, offset int) ([]entities.JobSummary, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, entities.NewValidationError("owner_id", "is required")
	}
	summaries, err := s.jobs.ListByOwner(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return summaries, nil
}

// GetResult returns the stored transcript and everything derived from it
func (s *Service) GetResult(ctx context.Context, jobID uuid.UUID) (*ResultDetails, error) {
	job, result, err := s.completedResult(ctx, jobID)
	if err != nil {
		return nil, err
	}

	view, err := s.reconciler.storedView(ctx, job)
	if err != nil {
		return nil, err
	}

	phrases, err := s.results.GetKeyPhrases(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load key phrases: %w", err)
	}
	languages, err := s.results.ListTranslationLanguages(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list translations: %w", err)
	}

	details := &ResultDetails{
		JobID:        jobID,
		FullText:     result.FullText,
		Speakers:     view.Speakers,
		Summary:      result.Summary,
		KeyPhrases:   make([]string, 0, len(phrases)),
		Translations: languages,
		LinkedNoteID: job.LinkedNoteID,
	}
	if details.Translations == nil {
		details.Translations = []string{}
	}
	for _, p := range phrases {
		details.KeyPhrases = append(details.KeyPhrases, p.Phrase)
	}
	return details, nil
}

// PromoteToNote turns a completed transcription into a note and links it.
// A job that is already linked returns its existing note id.
func (s *Service) PromoteToNote(ctx context.Context, jobID uuid.UUID, title string) (string, error) {
	job, result, err := s.completedResult(ctx, jobID)
	if err != nil {
		return "", err
	}
	if job.LinkedNoteID != nil {
		return *job.LinkedNoteID, nil
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = "Transcription " + job.CreatedAt.UTC().Format("2006-01-02 15:04")
	}

	audioURL, err := s.resolveAudioURL(ctx, job.SourceLocator)
	if err != nil {
		// The note is still useful without playback
		s.logger.Warn("⚠️ Audio URL unavailable for note",
			zap.String("job_id", jobID.String()),
			zap.Error(err),
		)
		audioURL = ""
	}

	draft := providers.NoteDraft{
		JobID:    job.ID,
		OwnerID:  job.OwnerID,
		Title:    title,
		Content:  result.FullText,
		AudioURL: audioURL,
	}
	if result.Summary != nil {
		draft.Summary = *result.Summary
	}

	noteID, err := s.notes.CreateNote(ctx, draft)
	if err != nil {
		return "", fmt.Errorf("failed to create note: %w", err)
	}

	linked, err := s.jobs.LinkNote(ctx, jobID, noteID)
	if err != nil {
		return "", fmt.Errorf("failed to link note: %w", err)
	}
	if !linked {
		current, err := s.jobs.GetByID(ctx, jobID)
		if err != nil {
			return "", fmt.Errorf("failed to reload job: %w", err)
		}
		if current != nil && current.LinkedNoteID != nil {
			noteID = *current.LinkedNoteID
		}
	}
	s.invalidateOutcome(ctx, jobID)

	s.logger.Info("📝 Transcription promoted to note",
		zap.String("job_id", jobID.String()),
		zap.String("note_id", noteID),
	)
	return noteID, nil
}

// completedResult loads a job that must be COMPLETED with a stored transcript
func (s *Service) completedResult(ctx context.Context, jobID uuid.UUID) (*entities.TranscriptionJob, *entities.ResultText, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get job: %w", err)
	}
	if job == nil {
		return nil, nil, entities.ErrJobNotFound
	}
	if job.Status != entities.JobStatusCompleted {
		return nil, nil, entities.ErrResultNotReady
	}
	result, err := s.results.GetResult(ctx, jobID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get result: %w", err)
	}
	if result == nil {
		return nil, nil, entities.ErrResultNotReady
	}
	return job, result, nil
}

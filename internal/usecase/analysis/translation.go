package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/johnquangdev/transcript-pipeline/internal/domain/entities"
	"github.com/johnquangdev/transcript-pipeline/internal/domain/providers"
	"github.com/johnquangdev/transcript-pipeline/internal/domain/repositories"
	"github.com/johnquangdev/transcript-pipeline/pkg/jobcontext"
	"github.com/johnquangdev/transcript-pipeline/pkg/validator"
)

// TranslationManager memoizes one translation per (job, language)
type TranslationManager struct {
	jobs        repositories.JobRepository
	results     repositories.ResultRepository
	provider    providers.TranslationProvider
	validate    *validator.CustomValidator
	callTimeout time.Duration
	inflight    singleflight.Group
	logger      *zap.Logger
}

// NewTranslationManager creates a translation manager
func NewTranslationManager(
	jobs repositories.JobRepository,
	results repositories.ResultRepository,
	provider providers.TranslationProvider,
	callTimeout time.Duration,
	logger *zap.Logger,
) *TranslationManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranslationManager{
		jobs:        jobs,
		results:     results,
		provider:    provider,
		validate:    validator.New(),
		callTimeout: callTimeout,
		logger:      logger,
	}
}

// Translate returns the stored translation of a job transcript into language,
// calling the provider only when none is stored. Concurrent callers for the
// same pair all receive the row that ended up stored.
func (m *TranslationManager) Translate(ctx context.Context, jobID uuid.UUID, language string) (*entities.Translation, error) {
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		return nil, entities.NewValidationError("language", "is required")
	}
	if err := m.validate.Var(language, "langcode"); err != nil {
		return nil, entities.NewValidationError("language", fmt.Sprintf("%q is not a language code", language))
	}

	job, result, err := loadCompleted(ctx, m.jobs, m.results, jobID)
	if err != nil {
		return nil, err
	}

	stored, err := m.results.GetTranslation(ctx, jobID, language)
	if err != nil {
		return nil, fmt.Errorf("failed to get translation: %w", err)
	}
	if stored != nil {
		return stored, nil
	}

	v, err := shared(ctx, &m.inflight, jobID.String()+":"+language, func(ctx context.Context) (interface{}, error) {
		return m.translate(ctx, job, result.FullText, language)
	})
	if err != nil {
		return nil, err
	}
	return v.(*entities.Translation), nil
}

func (m *TranslationManager) translate(ctx context.Context, job *entities.TranscriptionJob, text, language string) (*entities.Translation, error) {
	callCtx, cancel := jobcontext.CallBegin(ctx, job.ID, "translate", m.callTimeout)
	defer cancel()

	source := job.Options.Data().LanguageHint
	out, err := m.provider.Translate(callCtx, text, language, source)
	if err != nil {
		m.logger.Error("❌ Translation failed", append(jobcontext.Fields(callCtx),
			zap.String("language", language),
			zap.Bool("timeout", jobcontext.IsTimeout(err)),
			zap.Error(err),
		)...)
		return nil, entities.NewProviderError("translate", err)
	}

	detected := strings.ToLower(strings.TrimSpace(out.DetectedSourceLanguage))
	if detected != "" && !validator.IsLanguageCode(detected) {
		m.logger.Warn("⚠️ Discarding unrecognized source language",
			zap.String("job_id", job.ID.String()),
			zap.String("detected", out.DetectedSourceLanguage),
		)
		detected = ""
	}

	inserted, err := m.results.SaveTranslation(ctx, &entities.Translation{
		ID:             uuid.New(),
		JobID:          job.ID,
		Language:       language,
		Text:           out.Text,
		SourceLanguage: detected,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save translation: %w", err)
	}
	if inserted {
		m.logger.Info("🌐 Translation stored",
			zap.String("job_id", job.ID.String()),
			zap.String("language", language),
			zap.String("source_language", detected),
		)
	}

	stored, err := m.results.GetTranslation(ctx, job.ID, language)
	if err != nil {
		return nil, fmt.Errorf("failed to reload translation: %w", err)
	}
	if stored == nil {
		return nil, fmt.Errorf("translation %s for job %s was not stored", language, job.ID)
	}
	return stored, nil
}

// Package analysis memoizes provider-derived artifacts of a completed
// transcript: the summary, key phrases and per-language translations.
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
)

const defaultKeyPhraseLimit = 10

// Config holds analysis tuning
type Config struct {
	CallTimeout     time.Duration
	KeyPhraseLimit  int
	DefaultLanguage string
}

// AnalyzeOptions selects the artifacts to return
type AnalyzeOptions struct {
	WantSummary    bool
	WantKeyPhrases bool
}

// AnalysisResult carries only what was requested
type AnalysisResult struct {
	Summary    *string  `json:"summary,omitempty"`
	KeyPhrases []string `json:"key_phrases,omitempty"`
}

// AnalysisManager computes summaries once and key phrases on every request
type AnalysisManager struct {
	jobs     repositories.JobRepository
	results  repositories.ResultRepository
	provider providers.AnalysisProvider
	cfg      Config
	summary  singleflight.Group
	logger   *zap.Logger
}

// NewAnalysisManager creates an analysis manager
func NewAnalysisManager(
	jobs repositories.JobRepository,
	results repositories.ResultRepository,
	provider providers.AnalysisProvider,
	cfg Config,
	logger *zap.Logger,
) *AnalysisManager {
	if cfg.KeyPhraseLimit <= 0 {
		cfg.KeyPhraseLimit = defaultKeyPhraseLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisManager{
		jobs:     jobs,
		results:  results,
		provider: provider,
		cfg:      cfg,
		logger:   logger,
	}
}

// Analyze returns the summary and/or key phrases of a completed job.
// The summary is computed at most once and then served from the store.
// Key phrases are recomputed on each call and replace the stored set.
func (m *AnalysisManager) Analyze(ctx context.Context, jobID uuid.UUID, opts AnalyzeOptions) (*AnalysisResult, error) {
	if !opts.WantSummary && !opts.WantKeyPhrases {
		return nil, entities.NewValidationError("options", "request a summary, key phrases or both")
	}

	job, result, err := loadCompleted(ctx, m.jobs, m.results, jobID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(result.FullText) == "" {
		return nil, entities.NewValidationError("transcript", "is empty")
	}
	language := job.Language(m.cfg.DefaultLanguage)

	out := &AnalysisResult{}
	if opts.WantSummary {
		summary, err := m.summarize(ctx, jobID, result, language)
		if err != nil {
			return nil, err
		}
		out.Summary = &summary
	}
	if opts.WantKeyPhrases {
		phrases, err := m.extractKeyPhrases(ctx, jobID, result.FullText, language)
		if err != nil {
			return nil, err
		}
		out.KeyPhrases = phrases
	}
	return out, nil
}

func (m *AnalysisManager) summarize(ctx context.Context, jobID uuid.UUID, result *entities.ResultText, language string) (string, error) {
	if result.Summary != nil {
		return *result.Summary, nil
	}

	v, err := shared(ctx, &m.summary, jobID.String(), func(ctx context.Context) (interface{}, error) {
		callCtx, cancel := jobcontext.CallBegin(ctx, jobID, "summarize", m.cfg.CallTimeout)
		defer cancel()

		summary, err := m.provider.Summarize(callCtx, result.FullText, language)
		if err != nil {
			m.logger.Error("❌ Summarize failed", append(jobcontext.Fields(callCtx), zap.Error(err))...)
			return nil, entities.NewProviderError("summarize", err)
		}

		written, err := m.results.SetSummaryOnce(ctx, jobID, summary)
		if err != nil {
			return nil, fmt.Errorf("failed to save summary: %w", err)
		}
		if written {
			m.logger.Info("📝 Summary stored", jobcontext.Fields(callCtx)...)
			return summary, nil
		}

		// Lost the race to another writer; the stored summary wins
		stored, err := m.results.GetResult(ctx, jobID)
		if err != nil {
			return nil, fmt.Errorf("failed to reload summary: %w", err)
		}
		if stored == nil || stored.Summary == nil {
			return nil, fmt.Errorf("summary for job %s was not stored", jobID)
		}
		return *stored.Summary, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *AnalysisManager) extractKeyPhrases(ctx context.Context, jobID uuid.UUID, text, language string) ([]string, error) {
	callCtx, cancel := jobcontext.CallBegin(ctx, jobID, "extract_key_phrases", m.cfg.CallTimeout)
	defer cancel()

	phrases, err := m.provider.ExtractKeyPhrases(callCtx, text, language)
	if err != nil {
		m.logger.Error("❌ Key phrase extraction failed", append(jobcontext.Fields(callCtx), zap.Error(err))...)
		return nil, entities.NewProviderError("extract_key_phrases", err)
	}

	top := make([]string, 0, m.cfg.KeyPhraseLimit)
	for _, p := range phrases {
		if len(top) == m.cfg.KeyPhraseLimit {
			break
		}
		if p = strings.TrimSpace(p); p != "" {
			top = append(top, p)
		}
	}

	rows := make([]entities.KeyPhrase, 0, len(top))
	for rank, p := range top {
		rows = append(rows, entities.KeyPhrase{ID: uuid.New(), JobID: jobID, Phrase: p, Rank: rank})
	}
	if err := m.results.ReplaceKeyPhrases(ctx, jobID, rows); err != nil {
		return nil, fmt.Errorf("failed to save key phrases: %w", err)
	}

	m.logger.Debug("🔑 Key phrases replaced",
		zap.String("job_id", jobID.String()),
		zap.Int("count", len(top)),
	)
	return top, nil
}

// loadCompleted returns a COMPLETED job and its stored transcript
func loadCompleted(ctx context.Context, jobs repositories.JobRepository, results repositories.ResultRepository, jobID uuid.UUID) (*entities.TranscriptionJob, *entities.ResultText, error) {
	job, err := jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get job: %w", err)
	}
	if job == nil {
		return nil, nil, entities.ErrJobNotFound
	}
	if job.Status != entities.JobStatusCompleted {
		return nil, nil, entities.ErrResultNotReady
	}
	result, err := results.GetResult(ctx, jobID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get result: %w", err)
	}
	if result == nil {
		return nil, nil, entities.ErrResultNotReady
	}
	return job, result, nil
}

// shared runs fn once per key for all concurrent callers. fn is detached from
// the cancellation of whichever caller started it, so an abandoned request does
// not fail the others; each caller still stops waiting when its own ctx ends.
func shared(ctx context.Context, g *singleflight.Group, key string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	detached := context.WithoutCancel(ctx)
	ch := g.DoChan(key, func() (interface{}, error) {
		return fn(detached)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

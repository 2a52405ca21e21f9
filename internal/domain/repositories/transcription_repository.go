package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/johnquangdev/transcript-pipeline/internal/domain/entities"
)

// JobRepository persists transcription job records.
// Getters return (nil, nil) when the row does not exist.
type JobRepository interface {
	Create(ctx context.Context, job *entities.TranscriptionJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.TranscriptionJob, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]entities.JobSummary, error)

	// RecordProgress stores a non-terminal observation. Progress never decreases
	// and terminal jobs are left untouched; the bool reports whether a row changed.
	RecordProgress(ctx context.Context, id uuid.UUID, status entities.JobStatus, progress int) (bool, error)
	// MarkCompleted moves a non-terminal job to COMPLETED with progress 100.
	MarkCompleted(ctx context.Context, id uuid.UUID, resultLocator string) (bool, error)
	// MarkFailed moves a non-terminal job to FAILED.
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) (bool, error)
	// LinkNote sets the note link if none is set yet.
	LinkNote(ctx context.Context, id uuid.UUID, noteID string) (bool, error)
}

// ResultRepository persists assembled results and the derived artifacts
type ResultRepository interface {
	// SaveAssembly writes the ResultText and its speaker segments atomically.
	// A second call for the same job is a no-op and reports false.
	SaveAssembly(ctx context.Context, result *entities.ResultText, segments []entities.SpeakerSegment) (bool, error)
	GetResult(ctx context.Context, jobID uuid.UUID) (*entities.ResultText, error)
	GetSpeakerSegments(ctx context.Context, jobID uuid.UUID) ([]entities.SpeakerSegment, error)

	// SetSummaryOnce stores the summary only if none is stored yet.
	SetSummaryOnce(ctx context.Context, jobID uuid.UUID, summary string) (bool, error)

	// ReplaceKeyPhrases deletes and re-inserts the job's phrases in one transaction,
	// serialized per job so concurrent calls leave exactly one set.
	ReplaceKeyPhrases(ctx context.Context, jobID uuid.UUID, phrases []entities.KeyPhrase) error
	GetKeyPhrases(ctx context.Context, jobID uuid.UUID) ([]entities.KeyPhrase, error)

	GetTranslation(ctx context.Context, jobID uuid.UUID, language string) (*entities.Translation, error)
	// SaveTranslation ignores a conflicting (job, language) row and reports false.
	SaveTranslation(ctx context.Context, t *entities.Translation) (bool, error)
	ListTranslationLanguages(ctx context.Context, jobID uuid.UUID) ([]string, error)
}

package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/transcript-pipeline/internal/domain/entities"
	domainrepo "github.com/johnquangdev/transcript-pipeline/internal/domain/repositories"
)

// JobRepository is an in-memory domainrepo.JobRepository with the same
// monotonic progress and sticky terminal state as the SQL one.
type JobRepository struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*entities.TranscriptionJob

	// Err, when set, is returned by every method
	Err error
	// Results lets ListByOwner report result and summary flags
	Results *ResultRepository
}

var _ domainrepo.JobRepository = (*JobRepository)(nil)

// NewJobRepository creates an empty in-memory job repository
func NewJobRepository() *JobRepository {
	return &JobRepository{jobs: make(map[uuid.UUID]*entities.TranscriptionJob)}
}

func (r *JobRepository) Create(_ context.Context, job *entities.TranscriptionJob) error {
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *job
	r.jobs[job.ID] = &copied
	return nil
}

func (r *JobRepository) GetByID(_ context.Context, id uuid.UUID) (*entities.TranscriptionJob, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, nil
	}
	copied := *job
	return &copied, nil
}

func (r *JobRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]entities.JobSummary, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	r.mu.Lock()
	var owned []entities.TranscriptionJob
	for _, job := range r.jobs {
		if job.OwnerID == ownerID {
			owned = append(owned, *job)
		}
	}
	r.mu.Unlock()

	sort.Slice(owned, func(i, j int) bool { return owned[i].CreatedAt.After(owned[j].CreatedAt) })
	if offset > len(owned) {
		offset = len(owned)
	}
	owned = owned[offset:]
	if limit > 0 && limit < len(owned) {
		owned = owned[:limit]
	}

	summaries := make([]entities.JobSummary, 0, len(owned))
	for _, job := range owned {
		s := entities.JobSummary{
			ID:           job.ID,
			Status:       job.Status,
			Progress:     job.Progress,
			LanguageHint: job.Options.Data().LanguageHint,
			LinkedNoteID: job.LinkedNoteID,
			CreatedAt:    job.CreatedAt,
			UpdatedAt:    job.UpdatedAt,
			CompletedAt:  job.CompletedAt,
		}
		if r.Results != nil {
			if res, _ := r.Results.GetResult(ctx, job.ID); res != nil {
				s.HasResult = true
				s.HasSummary = res.Summary != nil
			}
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

// mutate applies fn to a non-terminal job and reports whether it ran
func (r *JobRepository) mutate(id uuid.UUID, requireNonTerminal bool, fn func(job *entities.TranscriptionJob) bool) (bool, error) {
	if r.Err != nil {
		return false, r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || (requireNonTerminal && job.Status.IsTerminal()) {
		return false, nil
	}
	if !fn(job) {
		return false, nil
	}
	job.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *JobRepository) RecordProgress(_ context.Context, id uuid.UUID, status entities.JobStatus, progress int) (bool, error) {
	return r.mutate(id, true, func(job *entities.TranscriptionJob) bool {
		job.Status = status
		if progress > job.Progress {
			job.Progress = progress
		}
		return true
	})
}

func (r *JobRepository) MarkCompleted(_ context.Context, id uuid.UUID, resultLocator string) (bool, error) {
	return r.mutate(id, true, func(job *entities.TranscriptionJob) bool {
		now := time.Now().UTC()
		job.Status = entities.JobStatusCompleted
		job.Progress = 100
		job.ResultLocator = &resultLocator
		job.CompletedAt = &now
		return true
	})
}

func (r *JobRepository) MarkFailed(_ context.Context, id uuid.UUID, errMsg string) (bool, error) {
	return r.mutate(id, true, func(job *entities.TranscriptionJob) bool {
		now := time.Now().UTC()
		job.Status = entities.JobStatusFailed
		job.LastError = &errMsg
		job.CompletedAt = &now
		return true
	})
}

func (r *JobRepository) LinkNote(_ context.Context, id uuid.UUID, noteID string) (bool, error) {
	return r.mutate(id, false, func(job *entities.TranscriptionJob) bool {
		if job.LinkedNoteID != nil {
			return false
		}
		job.LinkedNoteID = &noteID
		return true
	})
}

type translationKey struct {
	jobID    uuid.UUID
	language string
}

// ResultRepository is an in-memory domainrepo.ResultRepository with
// write-once results, write-once summaries and unique translations.
type ResultRepository struct {
	mu           sync.Mutex
	results      map[uuid.UUID]*entities.ResultText
	segments     map[uuid.UUID][]entities.SpeakerSegment
	keyPhrases   map[uuid.UUID][]entities.KeyPhrase
	translations map[translationKey]*entities.Translation

	SaveAssemblyCalls    int
	ReplaceKeyPhraseRuns int

	// Err, when set, is returned by every method
	Err error
}

var _ domainrepo.ResultRepository = (*ResultRepository)(nil)

// NewResultRepository creates an empty in-memory result repository
func NewResultRepository() *ResultRepository {
	return &ResultRepository{
		results:      make(map[uuid.UUID]*entities.ResultText),
		segments:     make(map[uuid.UUID][]entities.SpeakerSegment),
		keyPhrases:   make(map[uuid.UUID][]entities.KeyPhrase),
		translations: make(map[translationKey]*entities.Translation),
	}
}

func (r *ResultRepository) SaveAssembly(_ context.Context, result *entities.ResultText, segments []entities.SpeakerSegment) (bool, error) {
	if r.Err != nil {
		return false, r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.SaveAssemblyCalls++
	if _, exists := r.results[result.JobID]; exists {
		return false, nil
	}
	copied := *result
	r.results[result.JobID] = &copied
	r.segments[result.JobID] = append([]entities.SpeakerSegment(nil), segments...)
	return true, nil
}

func (r *ResultRepository) GetResult(_ context.Context, jobID uuid.UUID) (*entities.ResultText, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.results[jobID]
	if !ok {
		return nil, nil
	}
	copied := *res
	return &copied, nil
}

func (r *ResultRepository) GetSpeakerSegments(_ context.Context, jobID uuid.UUID) ([]entities.SpeakerSegment, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entities.SpeakerSegment(nil), r.segments[jobID]...), nil
}

func (r *ResultRepository) SetSummaryOnce(_ context.Context, jobID uuid.UUID, summary string) (bool, error) {
	if r.Err != nil {
		return false, r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.results[jobID]
	if !ok || res.Summary != nil {
		return false, nil
	}
	res.Summary = &summary
	return true, nil
}

func (r *ResultRepository) ReplaceKeyPhrases(_ context.Context, jobID uuid.UUID, phrases []entities.KeyPhrase) error {
	if r.Err != nil {
		return r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ReplaceKeyPhraseRuns++
	r.keyPhrases[jobID] = append([]entities.KeyPhrase(nil), phrases...)
	return nil
}

func (r *ResultRepository) GetKeyPhrases(_ context.Context, jobID uuid.UUID) ([]entities.KeyPhrase, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entities.KeyPhrase(nil), r.keyPhrases[jobID]...), nil
}

func (r *ResultRepository) GetTranslation(_ context.Context, jobID uuid.UUID, language string) (*entities.Translation, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.translations[translationKey{jobID, language}]
	if !ok {
		return nil, nil
	}
	copied := *t
	return &copied, nil
}

func (r *ResultRepository) SaveTranslation(_ context.Context, t *entities.Translation) (bool, error) {
	if r.Err != nil {
		return false, r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := translationKey{t.JobID, t.Language}
	if _, exists := r.translations[key]; exists {
		return false, nil
	}
	copied := *t
	r.translations[key] = &copied
	return true, nil
}

func (r *ResultRepository) ListTranslationLanguages(_ context.Context, jobID uuid.UUID) ([]string, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var languages []string
	for key := range r.translations {
		if key.jobID == jobID {
			languages = append(languages, key.language)
		}
	}
	sort.Strings(languages)
	return languages, nil
}

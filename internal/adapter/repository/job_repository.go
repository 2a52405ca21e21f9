package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/johnquangdev/transcript-pipeline/internal/domain/entities"
	domainrepo "github.com/johnquangdev/transcript-pipeline/internal/domain/repositories"
)

// JobRepository handles transcription job data operations
type JobRepository struct {
	db *gorm.DB
}

var _ domainrepo.JobRepository = (*JobRepository)(nil)

// NewJobRepository creates a new job repository
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a new job record
func (r *JobRepository) Create(ctx context.Context, job *entities.TranscriptionJob) error {
	if job == nil {
		return errors.New("job cannot be nil")
	}
	return r.db.WithContext(ctx).Create(job).Error
}

// GetByID retrieves a job by internal ID
func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.TranscriptionJob, error) {
	var job entities.TranscriptionJob
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

// ListByOwner lists an owner's jobs, newest first
func (r *JobRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]entities.JobSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	var rows []struct {
		entities.TranscriptionJob
		HasResult  bool
		HasSummary bool
	}
	err := r.db.WithContext(ctx).
		Table("transcription_jobs AS j").
		Select(`j.*,
			r.id IS NOT NULL AS has_result,
			r.summary IS NOT NULL AS has_summary`).
		Joins("LEFT JOIN transcription_results r ON r.job_id = j.id").
		Where("j.owner_id = ?", ownerID).
		Order("j.created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	summaries := make([]entities.JobSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, entities.JobSummary{
			ID:           row.ID,
			Status:       row.Status,
			Progress:     row.Progress,
			LanguageHint: row.Options.Data().LanguageHint,
			LinkedNoteID: row.LinkedNoteID,
			HasResult:    row.HasResult,
			HasSummary:   row.HasSummary,
			CreatedAt:    row.CreatedAt,
			UpdatedAt:    row.UpdatedAt,
			CompletedAt:  row.CompletedAt,
		})
	}
	return summaries, nil
}

// RecordProgress stores an in-flight observation without ever lowering progress
func (r *JobRepository) RecordProgress(ctx context.Context, id uuid.UUID, status entities.JobStatus, progress int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&entities.TranscriptionJob{}).
		Where("id = ? AND status NOT IN ?", id, entities.TerminalStatuses).
		Updates(map[string]interface{}{
			"status":     status,
			"progress":   gorm.Expr("GREATEST(progress, ?)", progress),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkCompleted marks a job as completed with the provider result locator
func (r *JobRepository) MarkCompleted(ctx context.Context, id uuid.UUID, resultLocator string) (bool, error) {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&entities.TranscriptionJob{}).
		Where("id = ? AND status NOT IN ?", id, entities.TerminalStatuses).
		Updates(map[string]interface{}{
			"status":         entities.JobStatusCompleted,
			"progress":       100,
			"result_locator": resultLocator,
			"completed_at":   now,
			"updated_at":     now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkFailed marks a job as failed with error message
func (r *JobRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) (bool, error) {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&entities.TranscriptionJob{}).
		Where("id = ? AND status NOT IN ?", id, entities.TerminalStatuses).
		Updates(map[string]interface{}{
			"status":       entities.JobStatusFailed,
			"last_error":   errMsg,
			"completed_at": now,
			"updated_at":   now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// LinkNote records the note a completed job was promoted into
func (r *JobRepository) LinkNote(ctx context.Context, id uuid.UUID, noteID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&entities.TranscriptionJob{}).
		Where("id = ? AND linked_note_id IS NULL", id).
		Updates(map[string]interface{}{
			"linked_note_id": noteID,
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

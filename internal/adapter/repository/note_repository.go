package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/johnquangdev/transcript-pipeline/internal/domain/entities"
	"github.com/johnquangdev/transcript-pipeline/internal/domain/providers"
)

// NoteRepository writes promoted notes
type NoteRepository struct {
	db *gorm.DB
}

var _ providers.NoteWriter = (*NoteRepository)(nil)

// NewNoteRepository creates a new note repository
func NewNoteRepository(db *gorm.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

// CreateNote stores a note for the draft's job. At most one note exists per job;
// a repeated call returns the existing note id.
func (r *NoteRepository) CreateNote(ctx context.Context, draft providers.NoteDraft) (string, error) {
	note := &entities.Note{
		ID:          uuid.New(),
		OwnerID:     draft.OwnerID,
		SourceJobID: draft.JobID,
		Title:       draft.Title,
		Content:     draft.Content,
		AudioURL:    draft.AudioURL,
	}
	if draft.Summary != "" {
		summary := draft.Summary
		note.Summary = &summary
	}

	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source_job_id"}},
		DoNothing: true,
	}).Create(note)
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected > 0 {
		return note.ID.String(), nil
	}

	existing, err := r.GetBySourceJob(ctx, draft.JobID)
	if err != nil {
		return "", err
	}
	if existing == nil {
		return "", errors.New("note conflict without existing row")
	}
	return existing.ID.String(), nil
}

// GetBySourceJob retrieves the note promoted from a job
func (r *NoteRepository) GetBySourceJob(ctx context.Context, jobID uuid.UUID) (*entities.Note, error) {
	var note entities.Note
	if err := r.db.WithContext(ctx).Where("source_job_id = ?", jobID).First(&note).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &note, nil
}

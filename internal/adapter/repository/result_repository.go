package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/johnquangdev/transcript-pipeline/internal/domain/entities"
	domainrepo "github.com/johnquangdev/transcript-pipeline/internal/domain/repositories"
)

// ResultRepository handles assembled transcripts and their derived artifacts
type ResultRepository struct {
	db *gorm.DB
}

var _ domainrepo.ResultRepository = (*ResultRepository)(nil)

// NewResultRepository creates a new result repository
func NewResultRepository(db *gorm.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// SaveAssembly inserts the result row and, only if it was new, its speaker segments
func (r *ResultRepository) SaveAssembly(ctx context.Context, result *entities.ResultText, segments []entities.SpeakerSegment) (bool, error) {
	if result == nil {
		return false, errors.New("result cannot be nil")
	}

	inserted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "job_id"}},
			DoNothing: true,
		}).Create(result)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		inserted = true

		if len(segments) == 0 {
			return nil
		}
		return tx.CreateInBatches(segments, 100).Error
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// GetResult retrieves the result of a job
func (r *ResultRepository) GetResult(ctx context.Context, jobID uuid.UUID) (*entities.ResultText, error) {
	var result entities.ResultText
	if err := r.db.WithContext(ctx).Where("job_id = ?", jobID).First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

// GetSpeakerSegments retrieves a job's speaker segments in speaker order
func (r *ResultRepository) GetSpeakerSegments(ctx context.Context, jobID uuid.UUID) ([]entities.SpeakerSegment, error) {
	var segments []entities.SpeakerSegment
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("ordinal ASC").
		Find(&segments).Error
	return segments, err
}

// SetSummaryOnce writes the summary unless one is already stored
func (r *ResultRepository) SetSummaryOnce(ctx context.Context, jobID uuid.UUID, summary string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&entities.ResultText{}).
		Where("job_id = ? AND summary IS NULL", jobID).
		Updates(map[string]interface{}{
			"summary":    summary,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ReplaceKeyPhrases swaps the job's phrase set in one transaction.
// The job row is locked first so concurrent replacements run one after
// another and the last one leaves exactly its own set.
func (r *ResultRepository) ReplaceKeyPhrases(ctx context.Context, jobID uuid.UUID, phrases []entities.KeyPhrase) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job entities.TranscriptionJob
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ?", jobID).
			First(&job).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return entities.ErrJobNotFound
			}
			return err
		}

		if err := tx.Where("job_id = ?", jobID).Delete(&entities.KeyPhrase{}).Error; err != nil {
			return err
		}
		if len(phrases) == 0 {
			return nil
		}
		return tx.Create(&phrases).Error
	})
}

// GetKeyPhrases retrieves a job's key phrases by rank
func (r *ResultRepository) GetKeyPhrases(ctx context.Context, jobID uuid.UUID) ([]entities.KeyPhrase, error) {
	var phrases []entities.KeyPhrase
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("rank ASC").
		Find(&phrases).Error
	return phrases, err
}

// GetTranslation retrieves the stored translation for (job, language)
func (r *ResultRepository) GetTranslation(ctx context.Context, jobID uuid.UUID, language string) (*entities.Translation, error) {
	var t entities.Translation
	err := r.db.WithContext(ctx).
		Where("job_id = ? AND language = ?", jobID, language).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// SaveTranslation inserts a translation; a concurrent row for the same pair wins
func (r *ResultRepository) SaveTranslation(ctx context.Context, t *entities.Translation) (bool, error) {
	if t == nil {
		return false, errors.New("translation cannot be nil")
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_id"}, {Name: "language"}},
		DoNothing: true,
	}).Create(t)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListTranslationLanguages lists the languages a job has been translated into
func (r *ResultRepository) ListTranslationLanguages(ctx context.Context, jobID uuid.UUID) ([]string, error) {
	var languages []string
	err := r.db.WithContext(ctx).
		Model(&entities.Translation{}).
		Where("job_id = ?", jobID).
		Order("language ASC").
		Pluck("language", &languages).Error
	return languages, err
}

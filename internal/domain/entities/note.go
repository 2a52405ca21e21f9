package entities

import (
	"time"

	"github.com/google/uuid"
)

// Note is the persistent note a completed transcription is promoted into
type Note struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OwnerID     string    `json:"owner_id" gorm:"type:varchar(255);not null;index"`
	SourceJobID uuid.UUID `json:"source_job_id" gorm:"type:uuid;not null;uniqueIndex"`
	Title       string    `json:"title" gorm:"type:varchar(255);not null"`
	Content     string    `json:"content" gorm:"type:text;not null"`
	Summary     *string   `json:"summary,omitempty" gorm:"type:text"`
	AudioURL    string    `json:"audio_url,omitempty" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Note) TableName() string {
	return "notes"
}

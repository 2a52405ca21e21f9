package entities

import (
	"time"

	"github.com/google/uuid"
)

// ResultText is the assembled transcript of a completed job, one per job
type ResultText struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	JobID    uuid.UUID `json:"job_id" gorm:"type:uuid;not null;uniqueIndex"`
	FullText string    `json:"full_text" gorm:"type:text;not null"`
	// Diarized distinguishes "no speaker data" from "speaker data with zero speakers"
	Diarized  bool      `json:"diarized" gorm:"not null;default:false"`
	Summary   *string   `json:"summary,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (ResultText) TableName() string {
	return "transcription_results"
}

// SpeakerSegment is the text attributed to one speaker label within a job
type SpeakerSegment struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	JobID        uuid.UUID `json:"job_id" gorm:"type:uuid;not null;index"`
	SpeakerLabel string    `json:"speaker_label" gorm:"type:varchar(64);not null"`
	Text         string    `json:"text" gorm:"type:text;not null"`
	Ordinal      int       `json:"ordinal" gorm:"type:integer;not null"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM
func (SpeakerSegment) TableName() string {
	return "transcription_speaker_segments"
}

// KeyPhrase is one extracted phrase; the set is replaced wholesale
type KeyPhrase struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	JobID     uuid.UUID `json:"job_id" gorm:"type:uuid;not null;index"`
	Phrase    string    `json:"phrase" gorm:"type:text;not null"`
	Rank      int       `json:"rank" gorm:"type:integer;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM
func (KeyPhrase) TableName() string {
	return "transcription_key_phrases"
}

// Translation is the memoized translation of a job transcript into one language
type Translation struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	JobID          uuid.UUID `json:"job_id" gorm:"type:uuid;not null;uniqueIndex:idx_translation_job_language"`
	Language       string    `json:"language" gorm:"type:varchar(16);not null;uniqueIndex:idx_translation_job_language"`
	Text           string    `json:"text" gorm:"type:text;not null"`
	SourceLanguage string    `json:"source_language,omitempty" gorm:"type:varchar(16)"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM
func (Translation) TableName() string {
	return "transcription_translations"
}

// Speaker is the per-speaker block produced by the assembler
type Speaker struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Assembly is the parsed form of a provider result payload.
// Speakers is nil when the payload carried no diarization structure.
type Assembly struct {
	FullText string
	Speakers []Speaker
}

// NewResultText builds the ResultText row for an assembly
func NewResultText(jobID uuid.UUID, a *Assembly) *ResultText {
	return &ResultText{
		ID:       uuid.New(),
		JobID:    jobID,
		FullText: a.FullText,
		Diarized: a.Speakers != nil,
	}
}

// NewSpeakerSegments builds the segment rows for an assembly, in speaker order
func NewSpeakerSegments(jobID uuid.UUID, a *Assembly) []SpeakerSegment {
	segments := make([]SpeakerSegment, 0, len(a.Speakers))
	for i, sp := range a.Speakers {
		segments = append(segments, SpeakerSegment{
			ID:           uuid.New(),
			JobID:        jobID,
			SpeakerLabel: sp.Label,
			Text:         sp.Text,
			Ordinal:      i,
		})
	}
	return segments
}

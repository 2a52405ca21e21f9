package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// JobStatus represents the lifecycle state of a transcription job
type JobStatus string

const (
	JobStatusSubmitted  JobStatus = "SUBMITTED"   // Accepted by the provider, nothing observed yet
	JobStatusInProgress JobStatus = "IN_PROGRESS" // Provider is still working
	JobStatusCompleted  JobStatus = "COMPLETED"   // Terminal: provider finished
	JobStatusFailed     JobStatus = "FAILED"      // Terminal: provider gave up
)

// IsTerminal reports whether no further transitions are possible
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// TerminalStatuses lists the statuses a job never leaves
var TerminalStatuses = []JobStatus{JobStatusCompleted, JobStatusFailed}

// JobOptions are the submission options kept alongside the job
type JobOptions struct {
	Format       string `json:"format,omitempty"`
	LanguageHint string `json:"language_hint,omitempty"`
	Diarize      bool   `json:"diarize"`
	MaxSpeakers  int    `json:"max_speakers,omitempty"`
}

// TranscriptionJob is one submitted transcription request and its lifecycle
type TranscriptionJob struct {
	ID            uuid.UUID                      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OwnerID       string                         `json:"owner_id" gorm:"type:varchar(255);not null;index"`
	ProviderJobID string                         `json:"provider_job_id" gorm:"type:varchar(255);not null;index"`
	SourceLocator string                         `json:"source_locator" gorm:"type:text;not null"`
	Status        JobStatus                      `json:"status" gorm:"type:varchar(32);not null;index;default:'SUBMITTED'"`
	Progress      int                            `json:"progress" gorm:"type:integer;not null;default:0"`
	ResultLocator *string                        `json:"result_locator,omitempty" gorm:"type:text"`
	LastError     *string                        `json:"last_error,omitempty" gorm:"type:text"`
	LinkedNoteID  *string                        `json:"linked_note_id,omitempty" gorm:"type:varchar(255)"`
	Options       datatypes.JSONType[JobOptions] `json:"options" gorm:"type:jsonb"`

	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
	CompletedAt *time.Time `json:"completed_at,omitempty" gorm:"type:timestamp"`
}

// NewTranscriptionJob creates a job record for a freshly submitted provider job
func NewTranscriptionJob(ownerID, providerJobID, sourceLocator string, opts JobOptions) *TranscriptionJob {
	now := time.Now().UTC()
	return &TranscriptionJob{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		ProviderJobID: providerJobID,
		SourceLocator: sourceLocator,
		Status:        JobStatusSubmitted,
		Progress:      0,
		Options:       datatypes.NewJSONType(opts),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Language returns the language hint given at submission, or fallback
func (j *TranscriptionJob) Language(fallback string) string {
	if lang := j.Options.Data().LanguageHint; lang != "" {
		return lang
	}
	return fallback
}

// HasResultLocator reports whether a provider result reference was recorded
func (j *TranscriptionJob) HasResultLocator() bool {
	return j.ResultLocator != nil && *j.ResultLocator != ""
}

// TableName specifies the table name for GORM
func (TranscriptionJob) TableName() string {
	return "transcription_jobs"
}

// JobSummary is the listing view of a job
type JobSummary struct {
	ID           uuid.UUID  `json:"id"`
	Status       JobStatus  `json:"status"`
	Progress     int        `json:"progress"`
	LanguageHint string     `json:"language_hint,omitempty"`
	LinkedNoteID *string    `json:"linked_note_id,omitempty"`
	HasResult    bool       `json:"has_result"`
	HasSummary   bool       `json:"has_summary"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

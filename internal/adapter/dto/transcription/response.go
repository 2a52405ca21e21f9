package transcription

import (
	"time"
)

// JobResponse represents a transcription job in responses
type JobResponse struct {
	ID            string     `json:"id"`
	OwnerID       string     `json:"owner_id"`
	Status        string     `json:"status"`
	Progress      int        `json:"progress"`
	Format        string     `json:"format,omitempty"`
	LanguageHint  string     `json:"language_hint,omitempty"`
	Diarize       bool       `json:"diarize"`
	ResultLocator *string    `json:"result_locator,omitempty"`
	LastError     *string    `json:"last_error,omitempty"`
	LinkedNoteID  *string    `json:"linked_note_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// SpeakerResponse is the text attributed to one speaker
type SpeakerResponse struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// TranscriptResponse is an assembled transcript.
// Speakers is null when the job was not diarized.
type TranscriptResponse struct {
	FullText string            `json:"full_text"`
	Speakers []SpeakerResponse `json:"speakers"`
}

// PollResponse represents the best-known state of a job
type PollResponse struct {
	Job           *JobResponse        `json:"job"`
	Result        *TranscriptResponse `json:"result,omitempty"`
	AssemblyError string              `json:"assembly_error,omitempty"`
	// Stale is set when the provider could not be reached and Job is the stored snapshot
	Stale bool `json:"stale"`
}

// JobSummaryResponse is one row of the job history
type JobSummaryResponse struct {
	ID           string     `json:"id"`
	Status       string     `json:"status"`
	Progress     int        `json:"progress"`
	LanguageHint string     `json:"language_hint,omitempty"`
	HasResult    bool       `json:"has_result"`
	HasSummary   bool       `json:"has_summary"`
	LinkedNoteID *string    `json:"linked_note_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// JobListResponse represents a page of job history
type JobListResponse struct {
	Jobs   []*JobSummaryResponse `json:"jobs"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

// ResultResponse represents everything stored for a completed job
type ResultResponse struct {
	JobID        string            `json:"job_id"`
	FullText     string            `json:"full_text"`
	Speakers     []SpeakerResponse `json:"speakers"`
	Summary      *string           `json:"summary,omitempty"`
	KeyPhrases   []string          `json:"key_phrases"`
	Translations []string          `json:"translations"`
	LinkedNoteID *string           `json:"linked_note_id,omitempty"`
}

// AnalysisResponse carries the requested analysis artifacts
type AnalysisResponse struct {
	Summary    *string  `json:"summary,omitempty"`
	KeyPhrases []string `json:"key_phrases,omitempty"`
}

// TranslationResponse represents a stored translation
type TranslationResponse struct {
	JobID          string    `json:"job_id"`
	Language       string    `json:"language"`
	Text           string    `json:"text"`
	SourceLanguage string    `json:"source_language,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// NoteResponse is returned after promoting a job
type NoteResponse struct {
	JobID  string `json:"job_id"`
	NoteID string `json:"note_id"`
}

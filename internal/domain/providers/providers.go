// Package providers declares the external collaborators the pipeline consumes.
// Implementations live under pkg/ai, internal/infrastructure and internal/adapter.
package providers

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status is the provider job status normalized across vendors
type Status string

const (
	StatusQueued     Status = "queued"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusUnknown    Status = "unknown"
)

// SubmitRequest describes one transcription submission
type SubmitRequest struct {
	AudioURL     string
	Format       string
	LanguageHint string
	Diarize      bool
	MaxSpeakers  int
}

// StatusReport is one observation of a provider job.
// ResultLocator may be set before Status flips to completed.
type StatusReport struct {
	Status        Status
	RawStatus     string
	ResultLocator string
	Error         string
	CreatedAt     time.Time
	CompletedAt   *time.Time
}

// TranscriptProvider submits, polls and fetches speech-to-text jobs
type TranscriptProvider interface {
	Submit(ctx context.Context, req SubmitRequest) (string, error)
	GetStatus(ctx context.Context, providerJobID string) (*StatusReport, error)
	FetchResult(ctx context.Context, resultLocator string) ([]byte, error)
}

// AnalysisProvider summarizes text and extracts ranked key phrases
type AnalysisProvider interface {
	Summarize(ctx context.Context, text, language string) (string, error)
	ExtractKeyPhrases(ctx context.Context, text, language string) ([]string, error)
}

// TranslationResult is the output of one translate call
type TranslationResult struct {
	Text                   string
	DetectedSourceLanguage string
}

// TranslationProvider translates text; sourceLanguage may be empty
type TranslationProvider interface {
	Translate(ctx context.Context, text, targetLanguage, sourceLanguage string) (*TranslationResult, error)
}

// AudioURLSigner resolves a time-limited access URL for a stored audio object
type AudioURLSigner interface {
	PresignedAudioURL(ctx context.Context, objectKey string, ttl time.Duration) (string, error)
}

// NoteDraft is the content handed to the note subsystem on promotion
type NoteDraft struct {
	JobID    uuid.UUID
	OwnerID  string
	Title    string
	Content  string
	Summary  string
	AudioURL string
}

// NoteWriter creates a persistent note and returns its identity
type NoteWriter interface {
	CreateNote(ctx context.Context, draft NoteDraft) (string, error)
}

package transcription

// SubmitJobRequest represents the request to start a transcription
type SubmitJobRequest struct {
	OwnerID       string `json:"owner_id" validate:"required,max=255"`
	SourceLocator string `json:"source_locator" validate:"required"` // storage object key or http(s) URL
	Format        string `json:"format,omitempty" validate:"omitempty,max=16"`
	LanguageHint  string `json:"language_hint,omitempty" validate:"omitempty,langcode"`
	Diarize       bool   `json:"diarize"`
	MaxSpeakers   int    `json:"max_speakers,omitempty" validate:"omitempty,min=1,max=30"`
}

// ListJobsRequest represents query parameters for the job history
type ListJobsRequest struct {
	OwnerID string `query:"owner_id" validate:"required"`
	Limit   int    `query:"limit" validate:"omitempty,min=1,max=100"`
	Offset  int    `query:"offset" validate:"omitempty,min=0"`
}

// AnalyzeRequest selects the analysis artifacts to return
type AnalyzeRequest struct {
	Summary    bool `json:"summary"`
	KeyPhrases bool `json:"key_phrases"`
}

// TranslateRequest represents the request to translate a transcript
type TranslateRequest struct {
	Language string `json:"language" validate:"required,langcode"`
}

// PromoteToNoteRequest represents the request to save a transcript as a note
type PromoteToNoteRequest struct {
	Title string `json:"title,omitempty" validate:"max=255"`
}

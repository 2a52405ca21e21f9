package presenter

import (
	"github.com/johnquangdev/transcript-pipeline/internal/adapter/dto/transcription"
	"github.com/johnquangdev/transcript-pipeline/internal/domain/entities"
	transcriptionuse "github.com/johnquangdev/transcript-pipeline/internal/usecase/transcription"
)

// ToJobResponse converts a TranscriptionJob entity to JobResponse DTO
func ToJobResponse(j *entities.TranscriptionJob) *transcription.JobResponse {
	if j == nil {
		return nil
	}

	opts := j.Options.Data()
	return &transcription.JobResponse{
		ID:            j.ID.String(),
		OwnerID:       j.OwnerID,
		Status:        string(j.Status),
		Progress:      j.Progress,
		Format:        opts.Format,
		LanguageHint:  opts.LanguageHint,
		Diarize:       opts.Diarize,
		ResultLocator: j.ResultLocator,
		LastError:     j.LastError,
		LinkedNoteID:  j.LinkedNoteID,
		CreatedAt:     j.CreatedAt,
		UpdatedAt:     j.UpdatedAt,
		CompletedAt:   j.CompletedAt,
	}
}

// ToSpeakerResponses keeps nil as nil so undiarized transcripts render null
func ToSpeakerResponses(speakers []entities.Speaker) []transcription.SpeakerResponse {
	if speakers == nil {
		return nil
	}
	out := make([]transcription.SpeakerResponse, len(speakers))
	for i, s := range speakers {
		out[i] = transcription.SpeakerResponse{Label: s.Label, Text: s.Text}
	}
	return out
}

// ToPollResponse converts a poll outcome; stale marks a snapshot served after a provider failure
func ToPollResponse(o *transcriptionuse.PollOutcome, stale bool) *transcription.PollResponse {
	if o == nil {
		return nil
	}

	resp := &transcription.PollResponse{
		Job:           ToJobResponse(o.Job),
		AssemblyError: o.AssemblyError,
		Stale:         stale,
	}
	if o.Result != nil {
		resp.Result = &transcription.TranscriptResponse{
			FullText: o.Result.FullText,
			Speakers: ToSpeakerResponses(o.Result.Speakers),
		}
	}
	return resp
}

// ToJobListResponse converts job summaries to a history page
func ToJobListResponse(summaries []entities.JobSummary, limit, offset int) *transcription.JobListResponse {
	jobs := make([]*transcription.JobSummaryResponse, len(summaries))
	for i, s := range summaries {
		jobs[i] = &transcription.JobSummaryResponse{
			ID:           s.ID.String(),
			Status:       string(s.Status),
			Progress:     s.Progress,
			LanguageHint: s.LanguageHint,
			HasResult:    s.HasResult,
			HasSummary:   s.HasSummary,
			LinkedNoteID: s.LinkedNoteID,
			CreatedAt:    s.CreatedAt,
			UpdatedAt:    s.UpdatedAt,
			CompletedAt:  s.CompletedAt,
		}
	}

	return &transcription.JobListResponse{
		Jobs:   jobs,
		Limit:  limit,
		Offset: offset,
	}
}

// ToResultResponse converts stored result details
func ToResultResponse(d *transcriptionuse.ResultDetails) *transcription.ResultResponse {
	if d == nil {
		return nil
	}
	return &transcription.ResultResponse{
		JobID:        d.JobID.String(),
		FullText:     d.FullText,
		Speakers:     ToSpeakerResponses(d.Speakers),
		Summary:      d.Summary,
		KeyPhrases:   d.KeyPhrases,
		Translations: d.Translations,
		LinkedNoteID: d.LinkedNoteID,
	}
}

// ToTranslationResponse converts a Translation entity
func ToTranslationResponse(t *entities.Translation) *transcription.TranslationResponse {
	if t == nil {
		return nil
	}
	return &transcription.TranslationResponse{
		JobID:          t.JobID.String(),
		Language:       t.Language,
		Text:           t.Text,
		SourceLanguage: t.SourceLanguage,
		CreatedAt:      t.CreatedAt,
	}
}

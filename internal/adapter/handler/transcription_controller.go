package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/transcript-pipeline/errors"
	"github.com/johnquangdev/transcript-pipeline/internal/adapter/dto/transcription"
	"github.com/johnquangdev/transcript-pipeline/internal/adapter/presenter"
	"github.com/johnquangdev/transcript-pipeline/internal/domain/entities"
	"github.com/johnquangdev/transcript-pipeline/internal/usecase/analysis"
	transcriptionuse "github.com/johnquangdev/transcript-pipeline/internal/usecase/transcription"
)

const defaultHistoryLimit = 20

// TranscriptionController handles the transcription job endpoints
type TranscriptionController struct {
	jobs         *transcriptionuse.Service
	analysis     *analysis.AnalysisManager
	translations *analysis.TranslationManager
	logger       *zap.Logger
}

// NewTranscriptionController creates a new transcription controller
func NewTranscriptionController(
	jobs *transcriptionuse.Service,
	analysisManager *analysis.AnalysisManager,
	translations *analysis.TranslationManager,
	logger *zap.Logger,
) *TranscriptionController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranscriptionController{
		jobs:         jobs,
		analysis:     analysisManager,
		translations: translations,
		logger:       logger,
	}
}

// bindAndValidate binds the request and runs the echo validator
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return errors.ErrInvalidPayload()
	}
	if err := c.Validate(req); err != nil {
		return errors.ErrValidation(err)
	}
	return nil
}

func parseJobID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, errors.ErrInvalidArgument("Invalid job ID")
	}
	return id, nil
}

// SubmitJob starts a transcription
// @Summary      Submit transcription job
// @Description  Hands a stored audio object (or URL) to the speech-to-text provider and records a SUBMITTED job
// @Tags         Transcriptions
// @Accept       json
// @Produce      json
// @Param        request  body      transcription.SubmitJobRequest  true  "Submission"
// @Success      202      {object}  transcription.JobResponse
// @Failure      400      {object}  map[string]interface{}  "Invalid payload"
// @Failure      502      {object}  map[string]interface{}  "Provider unavailable"
// @Router       /transcriptions [post]
func (tc *TranscriptionController) SubmitJob(c echo.Context) error {
	var req transcription.SubmitJobRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(tc.logger, c, err)
	}

	job, err := tc.jobs.SubmitJob(c.Request().Context(), transcriptionuse.SubmitInput{
		OwnerID:       req.OwnerID,
		SourceLocator: req.SourceLocator,
		Format:        req.Format,
		LanguageHint:  req.LanguageHint,
		Diarize:       req.Diarize,
		MaxSpeakers:   req.MaxSpeakers,
	})
	if err != nil {
		return HandleError(tc.logger, c, err)
	}
	return HandleStatus(tc.logger, c, http.StatusAccepted, presenter.ToJobResponse(job))
}

// ListJobs returns an owner's job history
// @Summary      List transcription jobs
// @Tags         Transcriptions
// @Produce      json
// @Param        owner_id  query     string  true   "Owner ID"
// @Param        limit     query     int     false  "Page size (max 100)"
// @Param        offset    query     int     false  "Offset"
// @Success      200       {object}  transcription.JobListResponse
// @Failure      400       {object}  map[string]interface{}  "Missing owner"
// @Router       /transcriptions [get]
func (tc *TranscriptionController) ListJobs(c echo.Context) error {
	var req transcription.ListJobsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(tc.logger, c, err)
	}
	if req.Limit == 0 {
		req.Limit = defaultHistoryLimit
	}

	summaries, err := tc.jobs.ListJobHistory(c.Request().Context(), req.OwnerID, req.Limit, req.Offset)
	if err != nil {
		return HandleError(tc.logger, c, err)
	}
	return HandleSuccess(tc.logger, c, presenter.ToJobListResponse(summaries, req.Limit, req.Offset))
}

// PollJob reconciles a job with the provider and returns its state
// @Summary      Poll transcription job
// @Description  Returns the job state; once COMPLETED the assembled transcript is included.
// @Description  When the provider is unreachable the stored snapshot is returned with stale=true.
// @Tags         Transcriptions
// @Produce      json
// @Param        id   path      string  true  "Job ID (UUID)"
// @Success      200  {object}  transcription.PollResponse
// @Failure      404  {object}  map[string]interface{}  "Job not found"
// @Router       /transcriptions/{id} [get]
func (tc *TranscriptionController) PollJob(c echo.Context) error {
	jobID, err := parseJobID(c)
	if err != nil {
		return HandleError(tc.logger, c, err)
	}

	outcome, err := tc.jobs.PollJob(c.Request().Context(), jobID)
	if err != nil {
		if entities.IsProviderError(err) && outcome != nil {
			tc.logger.Warn("⚠️ Serving stale job snapshot",
				zap.String("job_id", jobID.String()),
				zap.Error(err),
			)
			return HandleSuccess(tc.logger, c, presenter.ToPollResponse(outcome, true))
		}
		return HandleError(tc.logger, c, err)
	}
	return HandleSuccess(tc.logger, c, presenter.ToPollResponse(outcome, false))
}

// GetResult returns the stored transcript and derived artifacts
// @Summary      Get transcription result
// @Tags         Transcriptions
// @Produce      json
// @Param        id   path      string  true  "Job ID (UUID)"
// @Success      200  {object}  transcription.ResultResponse
// @Failure      404  {object}  map[string]interface{}  "Job not found"
// @Failure      409  {object}  map[string]interface{}  "Result not ready"
// @Router       /transcriptions/{id}/result [get]
func (tc *TranscriptionController) GetResult(c echo.Context) error {
	jobID, err := parseJobID(c)
	if err != nil {
		return HandleError(tc.logger, c, err)
	}

	details, err := tc.jobs.GetResult(c.Request().Context(), jobID)
	if err != nil {
		return HandleError(tc.logger, c, err)
	}
	return HandleSuccess(tc.logger, c, presenter.ToResultResponse(details))
}

// Analyze returns the summary and/or key phrases of a completed job
// @Summary      Analyze transcript
// @Description  The summary is computed once and cached; key phrases are recomputed on every call.
// @Tags         Transcriptions
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Job ID (UUID)"
// @Param        request  body      transcription.AnalyzeRequest  true  "Requested artifacts"
// @Success      200      {object}  transcription.AnalysisResponse
// @Failure      409      {object}  map[string]interface{}  "Result not ready"
// @Failure      502      {object}  map[string]interface{}  "Provider unavailable"
// @Router       /transcriptions/{id}/analysis [post]
func (tc *TranscriptionController) Analyze(c echo.Context) error {
	jobID, err := parseJobID(c)
	if err != nil {
		return HandleError(tc.logger, c, err)
	}
	var req transcription.AnalyzeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(tc.logger, c, err)
	}

	result, err := tc.analysis.Analyze(c.Request().Context(), jobID, analysis.AnalyzeOptions{
		WantSummary:    req.Summary,
		WantKeyPhrases: req.KeyPhrases,
	})
	if err != nil {
		return HandleError(tc.logger, c, err)
	}
	return HandleSuccess(tc.logger, c, &transcription.AnalysisResponse{
		Summary:    result.Summary,
		KeyPhrases: result.KeyPhrases,
	})
}

// Translate returns the transcript translated into a language, computed once per language
// @Summary      Translate transcript
// @Tags         Transcriptions
// @Accept       json
// @Produce      json
// @Param        id       path      string                          true  "Job ID (UUID)"
// @Param        request  body      transcription.TranslateRequest  true  "Target language"
// @Success      200      {object}  transcription.TranslationResponse
// @Failure      400      {object}  map[string]interface{}  "Invalid language"
// @Failure      409      {object}  map[string]interface{}  "Result not ready"
// @Failure      502      {object}  map[string]interface{}  "Provider unavailable"
// @Router       /transcriptions/{id}/translations [post]
func (tc *TranscriptionController) Translate(c echo.Context) error {
	jobID, err := parseJobID(c)
	if err != nil {
		return HandleError(tc.logger, c, err)
	}
	var req transcription.TranslateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(tc.logger, c, err)
	}

	t, err := tc.translations.Translate(c.Request().Context(), jobID, req.Language)
	if err != nil {
		return HandleError(tc.logger, c, err)
	}
	return HandleSuccess(tc.logger, c, presenter.ToTranslationResponse(t))
}

// PromoteToNote saves a completed transcript as a note
// @Summary      Promote transcript to note
// @Description  Idempotent: a job that is already linked returns its existing note.
// @Tags         Transcriptions
// @Accept       json
// @Produce      json
// @Param        id       path      string                              true   "Job ID (UUID)"
// @Param        request  body      transcription.PromoteToNoteRequest  false  "Note title"
// @Success      200      {object}  transcription.NoteResponse
// @Failure      409      {object}  map[string]interface{}  "Result not ready"
// @Router       /transcriptions/{id}/note [post]
func (tc *TranscriptionController) PromoteToNote(c echo.Context) error {
	jobID, err := parseJobID(c)
	if err != nil {
		return HandleError(tc.logger, c, err)
	}
	var req transcription.PromoteToNoteRequest
	if err := bindAndValidate(c, &req); err != nil {
		return HandleError(tc.logger, c, err)
	}

	noteID, err := tc.jobs.PromoteToNote(c.Request().Context(), jobID, req.Title)
	if err != nil {
		return HandleError(tc.logger, c, err)
	}
	return HandleSuccess(tc.logger, c, &transcription.NoteResponse{
		JobID:  jobID.String(),
		NoteID: noteID,
	})
}

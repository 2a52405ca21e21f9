package transcription

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/transcript-pipeline/internal/domain/entities"
	"github.com/johnquangdev/transcript-pipeline/internal/domain/providers"
	"github.com/johnquangdev/transcript-pipeline/internal/infrastructure/cache"
	"github.com/johnquangdev/transcript-pipeline/internal/usecase/mock"
)

type serviceFixture struct {
	service  *Service
	provider *mock.TranscriptProvider
	jobs     *mock.JobRepository
	results  *mock.ResultRepository
	notes    *mock.NoteWriter
	cache    *cache.MemoryStore
}

func newServiceFixture(t *testing.T, provider *mock.TranscriptProvider) *serviceFixture {
	t.Helper()

	jobs := mock.NewJobRepository()
	results := mock.NewResultRepository()
	jobs.Results = results
	notes := &mock.NoteWriter{}
	store := cache.NewMemoryStore()
	t.Cleanup(store.Close)

	reconciler := NewReconciler(jobs, results, provider, NewAssembler(provider, time.Second, nil), nil,
		ReconcilerConfig{CallTimeout: time.Second, RequeryDelay: time.Millisecond}, nil)
	service := NewService(jobs, results, provider, reconciler, &mock.AudioURLSigner{}, notes, store,
		ServiceConfig{CallTimeout: time.Second, AudioURLTTL: time.Hour, PollCacheTTL: time.Minute}, nil)

	return &serviceFixture{service: service, provider: provider, jobs: jobs, results: results, notes: notes, cache: store}
}

func completedProvider() *mock.TranscriptProvider {
	return &mock.TranscriptProvider{
		GetStatusFunc:   mock.StatusSequence(&providers.StatusReport{Status: providers.StatusCompleted, ResultLocator: "loc-1"}),
		FetchResultFunc: payloadFetcher(diarizedPayload),
	}
}

// completedJob submits and polls one job to COMPLETED with a stored result
func (f *serviceFixture) completedJob(t *testing.T) *entities.TranscriptionJob {
	t.Helper()
	job, err := f.service.SubmitJob(context.Background(), SubmitInput{
		OwnerID:       "owner-1",
		SourceLocator: "audio/standup.mp3",
		Diarize:       true,
	})
	require.NoError(t, err)
	outcome, err := f.service.PollJob(context.Background(), job.ID)
	require.NoError(t, err)
	require.NotNil(t, outcome.Result)
	return outcome.Job
}

func TestSubmitJob_PresignsStorageKey(t *testing.T) {
	var got providers.SubmitRequest
	provider := &mock.TranscriptProvider{
		SubmitFunc: func(_ context.Context, req providers.SubmitRequest) (string, error) {
			got = req
			return "prov-42", nil
		},
	}
	f := newServiceFixture(t, provider)

	job, err := f.service.SubmitJob(context.Background(), SubmitInput{
		OwnerID:       " owner-1 ",
		SourceLocator: "audio/standup.mp3",
		Format:        "MP3",
		LanguageHint:  "en-US",
		Diarize:       true,
		MaxSpeakers:   3,
	})
	require.NoError(t, err)

	assert.Equal(t, "https://storage.test/audio/standup.mp3?expires=3600", got.AudioURL)
	assert.Equal(t, "mp3", got.Format)
	assert.True(t, got.Diarize)
	assert.Equal(t, 3, got.MaxSpeakers)

	assert.Equal(t, "owner-1", job.OwnerID)
	assert.Equal(t, "prov-42", job.ProviderJobID)
	assert.Equal(t, entities.JobStatusSubmitted, job.Status)
	assert.Equal(t, 0, job.Progress)
	assert.Equal(t, "en-US", job.Options.Data().LanguageHint)

	stored, err := f.jobs.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestSubmitJob_PassesURLThrough(t *testing.T) {
	var got string
	provider := &mock.TranscriptProvider{
		SubmitFunc: func(_ context.Context, req providers.SubmitRequest) (string, error) {
			got = req.AudioURL
			return "prov-1", nil
		},
	}
	f := newServiceFixture(t, provider)

	_, err := f.service.SubmitJob(context.Background(), SubmitInput{
		OwnerID:       "owner-1",
		SourceLocator: "https://cdn.example.com/a.wav",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/a.wav", got)
}

func TestSubmitJob_Validation(t *testing.T) {
	f := newServiceFixture(t, &mock.TranscriptProvider{})

	cases := map[string]SubmitInput{
		"missing owner":     {SourceLocator: "a.mp3"},
		"missing source":    {OwnerID: "o"},
		"bad format":        {OwnerID: "o", SourceLocator: "a.xyz", Format: "xyz"},
		"bad language":      {OwnerID: "o", SourceLocator: "a.mp3", LanguageHint: "english!"},
		"too many speakers": {OwnerID: "o", SourceLocator: "a.mp3", MaxSpeakers: 99},
		"negative speakers": {OwnerID: "o", SourceLocator: "a.mp3", MaxSpeakers: -1},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.service.SubmitJob(context.Background(), in)
			var verr *entities.ValidationError
			assert.True(t, errors.As(err, &verr), "got %v", err)
		})
	}
	assert.EqualValues(t, 0, f.provider.SubmitCalls)
}

func TestSubmitJob_ProviderFailureCreatesNothing(t *testing.T) {
	provider := &mock.TranscriptProvider{
		SubmitFunc: func(context.Context, providers.SubmitRequest) (string, error) {
			return "", mock.ErrUnavailable
		},
	}
	f := newServiceFixture(t, provider)

	_, err := f.service.SubmitJob(context.Background(), SubmitInput{OwnerID: "owner-1", SourceLocator: "a.mp3"})
	assert.True(t, entities.IsProviderError(err))

	history, err := f.service.ListJobHistory(context.Background(), "owner-1", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestPollJob_NotFound(t *testing.T) {
	f := newServiceFixture(t, &mock.TranscriptProvider{})

	_, err := f.service.PollJob(context.Background(), uuid.New())
	assert.ErrorIs(t, err, entities.ErrJobNotFound)
}

func TestPollJob_ProviderErrorReturnsStaleSnapshot(t *testing.T) {
	var failing atomic.Bool
	provider := &mock.TranscriptProvider{
		GetStatusFunc: func(context.Context, string) (*providers.StatusReport, error) {
			if failing.Load() {
				return nil, mock.ErrUnavailable
			}
			return inProgress(), nil
		},
	}
	f := newServiceFixture(t, provider)
	job, err := f.service.SubmitJob(context.Background(), SubmitInput{OwnerID: "owner-1", SourceLocator: "a.mp3"})
	require.NoError(t, err)

	first, err := f.service.PollJob(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, entities.JobStatusInProgress, first.Job.Status)

	failing.Store(true)
	stale, err := f.service.PollJob(context.Background(), job.ID)
	assert.True(t, entities.IsProviderError(err))
	require.NotNil(t, stale)
	assert.Equal(t, first.Job.Status, stale.Job.Status)
	assert.Equal(t, first.Job.Progress, stale.Job.Progress)
}

func TestPollJob_CachesCompletedSnapshot(t *testing.T) {
	f := newServiceFixture(t, completedProvider())
	job := f.completedJob(t)

	_, ok, err := f.cache.Get(context.Background(), cache.PollSnapshotKey(job.ID))
	require.NoError(t, err)
	assert.True(t, ok)

	outcome, err := f.service.PollJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.JobStatusCompleted, outcome.Job.Status)
	require.NotNil(t, outcome.Result)
	assert.Len(t, outcome.Result.Speakers, 2)
	assert.EqualValues(t, 1, f.provider.GetStatusCalls)
}

func TestPollJob_InProgressNotCached(t *testing.T) {
	f := newServiceFixture(t, &mock.TranscriptProvider{GetStatusFunc: mock.StatusSequence(inProgress())})
	job, err := f.service.SubmitJob(context.Background(), SubmitInput{OwnerID: "owner-1", SourceLocator: "a.mp3"})
	require.NoError(t, err)

	_, err = f.service.PollJob(context.Background(), job.ID)
	require.NoError(t, err)

	_, ok, err := f.cache.Get(context.Background(), cache.PollSnapshotKey(job.ID))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListJobHistory(t *testing.T) {
	f := newServiceFixture(t, completedProvider())
	done := f.completedJob(t)
	_, err := f.service.SubmitJob(context.Background(), SubmitInput{OwnerID: "owner-1", SourceLocator: "b.mp3"})
	require.NoError(t, err)
	_, err = f.service.SubmitJob(context.Background(), SubmitInput{OwnerID: "owner-2", SourceLocator: "c.mp3"})
	require.NoError(t, err)

	history, err := f.service.ListJobHistory(context.Background(), "owner-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)

	var withResult int
	for _, s := range history {
		if s.HasResult {
			withResult++
			assert.Equal(t, done.ID, s.ID)
			assert.False(t, s.HasSummary)
		}
	}
	assert.Equal(t, 1, withResult)

	_, err = f.service.ListJobHistory(context.Background(), "  ", 10, 0)
	var verr *entities.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestGetResult(t *testing.T) {
	f := newServiceFixture(t, completedProvider())
	job := f.completedJob(t)

	_, err := f.results.SetSummaryOnce(context.Background(), job.ID, "short")
	require.NoError(t, err)
	require.NoError(t, f.results.ReplaceKeyPhrases(context.Background(), job.ID, []entities.KeyPhrase{
		{JobID: job.ID, Phrase: "kickoff", Rank: 0},
	}))

	details, err := f.service.GetResult(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hi team. Hello. Let's start.", details.FullText)
	assert.Len(t, details.Speakers, 2)
	require.NotNil(t, details.Summary)
	assert.Equal(t, "short", *details.Summary)
	assert.Equal(t, []string{"kickoff"}, details.KeyPhrases)
	assert.Equal(t, []string{}, details.Translations)
}

func TestGetResult_NotReady(t *testing.T) {
	f := newServiceFixture(t, &mock.TranscriptProvider{GetStatusFunc: mock.StatusSequence(inProgress())})
	job, err := f.service.SubmitJob(context.Background(), SubmitInput{OwnerID: "owner-1", SourceLocator: "a.mp3"})
	require.NoError(t, err)

	_, err = f.service.GetResult(context.Background(), job.ID)
	assert.ErrorIs(t, err, entities.ErrResultNotReady)

	_, err = f.service.GetResult(context.Background(), uuid.New())
	assert.ErrorIs(t, err, entities.ErrJobNotFound)
}

func TestPromoteToNote_Idempotent(t *testing.T) {
	f := newServiceFixture(t, completedProvider())
	job := f.completedJob(t)

	noteID, err := f.service.PromoteToNote(context.Background(), job.ID, "  Standup  ")
	require.NoError(t, err)
	assert.Equal(t, "note-"+job.ID.String(), noteID)

	require.Len(t, f.notes.Drafts, 1)
	draft := f.notes.Drafts[0]
	assert.Equal(t, "Standup", draft.Title)
	assert.Equal(t, "owner-1", draft.OwnerID)
	assert.Equal(t, "Hi team. Hello. Let's start.", draft.Content)
	assert.True(t, strings.HasPrefix(draft.AudioURL, "https://storage.test/audio/standup.mp3"))

	again, err := f.service.PromoteToNote(context.Background(), job.ID, "Other title")
	require.NoError(t, err)
	assert.Equal(t, noteID, again)
	assert.Len(t, f.notes.Drafts, 1)

	// The cached snapshot is dropped so the next poll shows the link
	outcome, err := f.service.PollJob(context.Background(), job.ID)
	require.NoError(t, err)
	require.NotNil(t, outcome.Job.LinkedNoteID)
	assert.Equal(t, noteID, *outcome.Job.LinkedNoteID)
}

func TestPromoteToNote_DefaultTitle(t *testing.T) {
	f := newServiceFixture(t, completedProvider())
	job := f.completedJob(t)

	_, err := f.service.PromoteToNote(context.Background(), job.ID, "")
	require.NoError(t, err)
	require.Len(t, f.notes.Drafts, 1)
	assert.True(t, strings.HasPrefix(f.notes.Drafts[0].Title, "Transcription "))
}

func TestPromoteToNote_NotReady(t *testing.T) {
	f := newServiceFixture(t, &mock.TranscriptProvider{GetStatusFunc: mock.StatusSequence(inProgress())})
	job, err := f.service.SubmitJob(context.Background(), SubmitInput{OwnerID: "owner-1", SourceLocator: "a.mp3"})
	require.NoError(t, err)

	_, err = f.service.PromoteToNote(context.Background(), job.ID, "x")
	assert.ErrorIs(t, err, entities.ErrResultNotReady)
	assert.Empty(t, f.notes.Drafts)
}

package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/transcript-pipeline/internal/domain/entities"
	"github.com/johnquangdev/transcript-pipeline/internal/usecase/mock"
)

// seedJob stores a job, completing it with text when text is non-nil
func seedJob(t *testing.T, jobs *mock.JobRepository, results *mock.ResultRepository, text *string, opts entities.JobOptions) *entities.TranscriptionJob {
	t.Helper()
	ctx := context.Background()

	job := entities.NewTranscriptionJob("owner-1", "prov-1", "audio/a.mp3", opts)
	require.NoError(t, jobs.Create(ctx, job))
	if text == nil {
		return job
	}

	_, err := jobs.MarkCompleted(ctx, job.ID, "loc-1")
	require.NoError(t, err)
	_, err = results.SaveAssembly(ctx, entities.NewResultText(job.ID, &entities.Assembly{FullText: *text}), nil)
	require.NoError(t, err)
	return job
}

func strPtr(s string) *string { return &s }

func newAnalysisManager(provider *mock.AnalysisProvider, limit int) (*AnalysisManager, *mock.JobRepository, *mock.ResultRepository) {
	jobs := mock.NewJobRepository()
	results := mock.NewResultRepository()
	m := NewAnalysisManager(jobs, results, provider, Config{
		CallTimeout:     time.Second,
		KeyPhraseLimit:  limit,
		DefaultLanguage: "en",
	}, nil)
	return m, jobs, results
}

func TestAnalyze_SummaryComputedOnce(t *testing.T) {
	provider := &mock.AnalysisProvider{}
	m, jobs, results := newAnalysisManager(provider, 10)
	job := seedJob(t, jobs, results, strPtr("we agreed to ship friday"), entities.JobOptions{})

	first, err := m.Analyze(context.Background(), job.ID, AnalyzeOptions{WantSummary: true})
	require.NoError(t, err)
	require.NotNil(t, first.Summary)
	assert.Equal(t, "summary of: we agreed to ship friday", *first.Summary)
	assert.Nil(t, first.KeyPhrases)

	second, err := m.Analyze(context.Background(), job.ID, AnalyzeOptions{WantSummary: true})
	require.NoError(t, err)
	assert.Equal(t, *first.Summary, *second.Summary)
	assert.EqualValues(t, 1, provider.SummarizeCalls)
}

func TestAnalyze_StoredSummaryWinsRace(t *testing.T) {
	m, jobs, results := newAnalysisManager(nil, 10)
	job := seedJob(t, jobs, results, strPtr("text"), entities.JobOptions{})

	m.provider = &mock.AnalysisProvider{
		SummarizeFunc: func(ctx context.Context, _, _ string) (string, error) {
			// Another process stores its summary while this call is in flight
			_, err := results.SetSummaryOnce(ctx, job.ID, "first writer")
			return "second writer", err
		},
	}

	out, err := m.Analyze(context.Background(), job.ID, AnalyzeOptions{WantSummary: true})
	require.NoError(t, err)
	assert.Equal(t, "first writer", *out.Summary)
}

func TestAnalyze_ConcurrentSummaryCallsCollapse(t *testing.T) {
	release := make(chan struct{})
	provider := &mock.AnalysisProvider{
		SummarizeFunc: func(context.Context, string, string) (string, error) {
			<-release
			return "shared", nil
		},
	}
	m, jobs, results := newAnalysisManager(provider, 10)
	job := seedJob(t, jobs, results, strPtr("text"), entities.JobOptions{})

	var wg sync.WaitGroup
	summaries := make(chan string, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := m.Analyze(context.Background(), job.ID, AnalyzeOptions{WantSummary: true})
			if assert.NoError(t, err) {
				summaries <- *out.Summary
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(summaries)

	for s := range summaries {
		assert.Equal(t, "shared", s)
	}
	stored, err := results.GetResult(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, "shared", *stored.Summary)
}

func TestAnalyze_KeyPhrasesRecomputedAndReplaced(t *testing.T) {
	var mu sync.Mutex
	batches := [][]string{
		{"budget", "roadmap", "hiring"},
		{"launch", "pricing"},
	}
	call := 0
	provider := &mock.AnalysisProvider{
		ExtractKeyPhrasesFunc: func(context.Context, string, string) ([]string, error) {
			mu.Lock()
			defer mu.Unlock()
			b := batches[call]
			call++
			return b, nil
		},
	}
	m, jobs, results := newAnalysisManager(provider, 10)
	job := seedJob(t, jobs, results, strPtr("text"), entities.JobOptions{})

	first, err := m.Analyze(context.Background(), job.ID, AnalyzeOptions{WantKeyPhrases: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"budget", "roadmap", "hiring"}, first.KeyPhrases)
	assert.Nil(t, first.Summary)

	second, err := m.Analyze(context.Background(), job.ID, AnalyzeOptions{WantKeyPhrases: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"launch", "pricing"}, second.KeyPhrases)
	assert.EqualValues(t, 2, provider.ExtractCalls)

	stored, err := results.GetKeyPhrases(context.Background(), job.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "launch", stored[0].Phrase)
	assert.Equal(t, 0, stored[0].Rank)
	assert.Equal(t, "pricing", stored[1].Phrase)
	assert.Equal(t, 1, stored[1].Rank)
}

func TestAnalyze_KeyPhrasesTopN(t *testing.T) {
	provider := &mock.AnalysisProvider{
		ExtractKeyPhrasesFunc: func(context.Context, string, string) ([]string, error) {
			return []string{"a", " ", "b", "c", "d"}, nil
		},
	}
	m, jobs, results := newAnalysisManager(provider, 2)
	job := seedJob(t, jobs, results, strPtr("text"), entities.JobOptions{})

	out, err := m.Analyze(context.Background(), job.ID, AnalyzeOptions{WantKeyPhrases: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, out.KeyPhrases)
}

func TestAnalyze_UsesJobLanguage(t *testing.T) {
	var got string
	provider := &mock.AnalysisProvider{
		SummarizeFunc: func(_ context.Context, _, language string) (string, error) {
			got = language
			return "resumen", nil
		},
	}
	m, jobs, results := newAnalysisManager(provider, 10)
	job := seedJob(t, jobs, results, strPtr("hola"), entities.JobOptions{LanguageHint: "es"})

	_, err := m.Analyze(context.Background(), job.ID, AnalyzeOptions{WantSummary: true})
	require.NoError(t, err)
	assert.Equal(t, "es", got)
}

func TestAnalyze_NotReadyMakesNoProviderCall(t *testing.T) {
	provider := &mock.AnalysisProvider{}
	m, jobs, results := newAnalysisManager(provider, 10)
	job := seedJob(t, jobs, results, nil, entities.JobOptions{})

	_, err := m.Analyze(context.Background(), job.ID, AnalyzeOptions{WantSummary: true, WantKeyPhrases: true})
	assert.ErrorIs(t, err, entities.ErrResultNotReady)

	_, err = m.Analyze(context.Background(), uuid.New(), AnalyzeOptions{WantSummary: true})
	assert.ErrorIs(t, err, entities.ErrJobNotFound)

	assert.EqualValues(t, 0, provider.SummarizeCalls)
	assert.EqualValues(t, 0, provider.ExtractCalls)
}

func TestAnalyze_CompletedWithoutResultIsNotReady(t *testing.T) {
	m, jobs, results := newAnalysisManager(&mock.AnalysisProvider{}, 10)
	job := seedJob(t, jobs, results, nil, entities.JobOptions{})
	_, err := jobs.MarkCompleted(context.Background(), job.ID, "loc-1")
	require.NoError(t, err)

	_, err = m.Analyze(context.Background(), job.ID, AnalyzeOptions{WantSummary: true})
	assert.ErrorIs(t, err, entities.ErrResultNotReady)
}

func TestAnalyze_Validation(t *testing.T) {
	provider := &mock.AnalysisProvider{}
	m, jobs, results := newAnalysisManager(provider, 10)
	job := seedJob(t, jobs, results, strPtr("text"), entities.JobOptions{})
	empty := seedJob(t, jobs, results, strPtr("   "), entities.JobOptions{})

	var verr *entities.ValidationError
	_, err := m.Analyze(context.Background(), job.ID, AnalyzeOptions{})
	assert.True(t, errors.As(err, &verr))

	_, err = m.Analyze(context.Background(), empty.ID, AnalyzeOptions{WantSummary: true})
	assert.True(t, errors.As(err, &verr))

	assert.EqualValues(t, 0, provider.SummarizeCalls)
}

func TestAnalyze_ProviderFailure(t *testing.T) {
	provider := &mock.AnalysisProvider{
		SummarizeFunc: func(context.Context, string, string) (string, error) {
			return "", mock.ErrUnavailable
		},
	}
	m, jobs, results := newAnalysisManager(provider, 10)
	job := seedJob(t, jobs, results, strPtr("text"), entities.JobOptions{})

	_, err := m.Analyze(context.Background(), job.ID, AnalyzeOptions{WantSummary: true})
	assert.True(t, entities.IsProviderError(err))

	stored, err := results.GetResult(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Summary)
}

func TestAnalyze_CancelledCallerDoesNotAbortSharedSummary(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	provider := &mock.AnalysisProvider{
		SummarizeFunc: func(ctx context.Context, text, _ string) (string, error) {
			close(started)
			<-release
			if err := ctx.Err(); err != nil {
				return "", err
			}
			return "short summary", nil
		},
	}
	m, jobs, results := newAnalysisManager(provider, 10)
	job := seedJob(t, jobs, results, strPtr("long meeting"), entities.JobOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := m.Analyze(ctx, job.ID, AnalyzeOptions{WantSummary: true})
		leaderErr <- err
	}()

	<-started
	cancel()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)
	close(release)

	require.Eventually(t, func() bool {
		stored, err := results.GetResult(context.Background(), job.ID)
		return err == nil && stored != nil && stored.Summary != nil
	}, time.Second, 5*time.Millisecond)

	got, err := m.Analyze(context.Background(), job.ID, AnalyzeOptions{WantSummary: true})
	require.NoError(t, err)
	require.NotNil(t, got.Summary)
	assert.Equal(t, "short summary", *got.Summary)
	assert.EqualValues(t, 1, provider.SummarizeCalls)
}

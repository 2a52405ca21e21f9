package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/transcript-pipeline/internal/domain/entities"
	"github.com/johnquangdev/transcript-pipeline/internal/domain/providers"
	"github.com/johnquangdev/transcript-pipeline/internal/usecase/mock"
)

func newTranslationManager(provider *mock.TranslationProvider, timeout time.Duration) (*TranslationManager, *mock.JobRepository, *mock.ResultRepository) {
	jobs := mock.NewJobRepository()
	results := mock.NewResultRepository()
	return NewTranslationManager(jobs, results, provider, timeout, nil), jobs, results
}

func TestTranslate_MemoizedPerLanguage(t *testing.T) {
	provider := &mock.TranslationProvider{}
	m, jobs, results := newTranslationManager(provider, time.Second)
	job := seedJob(t, jobs, results, strPtr("good morning"), entities.JobOptions{})

	first, err := m.Translate(context.Background(), job.ID, "fr")
	require.NoError(t, err)
	assert.Equal(t, "[fr] good morning", first.Text)
	assert.Equal(t, "fr", first.Language)
	assert.Equal(t, "en", first.SourceLanguage)

	second, err := m.Translate(context.Background(), job.ID, " FR ")
	require.NoError(t, err)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, first.ID, second.ID)
	assert.EqualValues(t, 1, provider.TranslateCalls)

	_, err = m.Translate(context.Background(), job.ID, "de")
	require.NoError(t, err)
	assert.EqualValues(t, 2, provider.TranslateCalls)

	languages, err := results.ListTranslationLanguages(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"de", "fr"}, languages)
}

func TestTranslate_PassesSourceLanguageHint(t *testing.T) {
	var source string
	provider := &mock.TranslationProvider{
		TranslateFunc: func(_ context.Context, text, target, src string) (*providers.TranslationResult, error) {
			source = src
			return &providers.TranslationResult{Text: "hello", DetectedSourceLanguage: src}, nil
		},
	}
	m, jobs, results := newTranslationManager(provider, time.Second)
	job := seedJob(t, jobs, results, strPtr("xin chao"), entities.JobOptions{LanguageHint: "vi"})

	out, err := m.Translate(context.Background(), job.ID, "en")
	require.NoError(t, err)
	assert.Equal(t, "vi", source)
	assert.Equal(t, "vi", out.SourceLanguage)
}

func TestTranslate_ConcurrentCallersConverge(t *testing.T) {
	release := make(chan struct{})
	provider := &mock.TranslationProvider{
		TranslateFunc: func(_ context.Context, text, target, _ string) (*providers.TranslationResult, error) {
			<-release
			return &providers.TranslationResult{Text: "bonjour", DetectedSourceLanguage: "en"}, nil
		},
	}
	m, jobs, results := newTranslationManager(provider, time.Second)
	job := seedJob(t, jobs, results, strPtr("hello"), entities.JobOptions{})

	var wg sync.WaitGroup
	ids := make(chan string, 6)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := m.Translate(context.Background(), job.ID, "fr")
			if assert.NoError(t, err) {
				ids <- out.ID.String()
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(ids)

	var first string
	for id := range ids {
		if first == "" {
			first = id
		}
		assert.Equal(t, first, id)
	}
}

func TestTranslate_NotReadyMakesNoProviderCall(t *testing.T) {
	provider := &mock.TranslationProvider{}
	m, jobs, results := newTranslationManager(provider, time.Second)
	job := seedJob(t, jobs, results, nil, entities.JobOptions{})

	_, err := m.Translate(context.Background(), job.ID, "fr")
	assert.ErrorIs(t, err, entities.ErrResultNotReady)
	assert.EqualValues(t, 0, provider.TranslateCalls)
}

func TestTranslate_Validation(t *testing.T) {
	provider := &mock.TranslationProvider{}
	m, jobs, results := newTranslationManager(provider, time.Second)
	job := seedJob(t, jobs, results, strPtr("hello"), entities.JobOptions{})

	for _, lang := range []string{"", "   ", "f", "french!", "en_US", "en-abcdefgh-abcdefgh", "zh-hant-abcdefgh-x1"} {
		_, err := m.Translate(context.Background(), job.ID, lang)
		var verr *entities.ValidationError
		assert.True(t, errors.As(err, &verr), "language %q", lang)
	}
	assert.EqualValues(t, 0, provider.TranslateCalls)
}

func TestTranslate_TimeoutIsProviderError(t *testing.T) {
	provider := mock.NewTimeoutTranslationProvider()
	m, jobs, results := newTranslationManager(provider, 10*time.Millisecond)
	job := seedJob(t, jobs, results, strPtr("hello"), entities.JobOptions{})

	_, err := m.Translate(context.Background(), job.ID, "fr")
	require.Error(t, err)
	assert.True(t, entities.IsProviderError(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	stored, err := results.GetTranslation(context.Background(), job.ID, "fr")
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestTranslate_CancelledCallerDoesNotAbortSharedWork(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	provider := &mock.TranslationProvider{
		TranslateFunc: func(ctx context.Context, text, target, _ string) (*providers.TranslationResult, error) {
			close(started)
			<-release
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return &providers.TranslationResult{Text: "hallo", DetectedSourceLanguage: "en"}, nil
		},
	}
	m, jobs, results := newTranslationManager(provider, time.Second)
	job := seedJob(t, jobs, results, strPtr("hello"), entities.JobOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := m.Translate(ctx, job.ID, "de")
		leaderErr <- err
	}()

	<-started
	cancel()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)
	close(release)

	require.Eventually(t, func() bool {
		stored, err := results.GetTranslation(context.Background(), job.ID, "de")
		return err == nil && stored != nil
	}, time.Second, 5*time.Millisecond)

	got, err := m.Translate(context.Background(), job.ID, "de")
	require.NoError(t, err)
	assert.Equal(t, "hallo", got.Text)
	assert.EqualValues(t, 1, provider.TranslateCalls)
}

func TestTranslate_DropsUnrecognizedSourceLanguage(t *testing.T) {
	provider := &mock.TranslationProvider{
		TranslateFunc: func(_ context.Context, _, _, _ string) (*providers.TranslationResult, error) {
			return &providers.TranslationResult{Text: "hola", DetectedSourceLanguage: "English (auto-detected)"}, nil
		},
	}
	m, jobs, results := newTranslationManager(provider, time.Second)
	job := seedJob(t, jobs, results, strPtr("hello"), entities.JobOptions{})

	got, err := m.Translate(context.Background(), job.ID, "es")
	require.NoError(t, err)
	assert.Equal(t, "hola", got.Text)
	assert.Empty(t, got.SourceLanguage)
}

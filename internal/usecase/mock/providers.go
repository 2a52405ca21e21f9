package mock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/transcript-pipeline/internal/domain/providers"
)

// ErrUnavailable is the default failure of the failing providers
var ErrUnavailable = errors.New("provider unavailable")

// TranscriptProvider satisfies providers.TranscriptProvider for testing.
// Call counters are safe for concurrent use.
type TranscriptProvider struct {
	SubmitFunc      func(ctx context.Context, req providers.SubmitRequest) (string, error)
	GetStatusFunc   func(ctx context.Context, providerJobID string) (*providers.StatusReport, error)
	FetchResultFunc func(ctx context.Context, resultLocator string) ([]byte, error)

	SubmitCalls      int32
	GetStatusCalls   int32
	FetchResultCalls int32
}

var _ providers.TranscriptProvider = (*TranscriptProvider)(nil)

func (m *TranscriptProvider) Submit(ctx context.Context, req providers.SubmitRequest) (string, error) {
	atomic.AddInt32(&m.SubmitCalls, 1)
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, req)
	}
	return "provider-" + uuid.NewString(), nil
}

func (m *TranscriptProvider) GetStatus(ctx context.Context, providerJobID string) (*providers.StatusReport, error) {
	atomic.AddInt32(&m.GetStatusCalls, 1)
	if m.GetStatusFunc != nil {
		return m.GetStatusFunc(ctx, providerJobID)
	}
	return &providers.StatusReport{Status: providers.StatusInProgress, RawStatus: "processing"}, nil
}

func (m *TranscriptProvider) FetchResult(ctx context.Context, resultLocator string) ([]byte, error) {
	atomic.AddInt32(&m.FetchResultCalls, 1)
	if m.FetchResultFunc != nil {
		return m.FetchResultFunc(ctx, resultLocator)
	}
	return nil, fmt.Errorf("no result for %s", resultLocator)
}

// StatusSequence returns a GetStatusFunc that replays reports in order and
// repeats the last one once the sequence is exhausted
func StatusSequence(reports ...*providers.StatusReport) func(context.Context, string) (*providers.StatusReport, error) {
	var mu sync.Mutex
	i := 0
	return func(_ context.Context, _ string) (*providers.StatusReport, error) {
		mu.Lock()
		defer mu.Unlock()
		r := reports[i]
		if i < len(reports)-1 {
			i++
		}
		copied := *r
		return &copied, nil
	}
}

// AnalysisProvider satisfies providers.AnalysisProvider for testing.
type AnalysisProvider struct {
	SummarizeFunc         func(ctx context.Context, text, language string) (string, error)
	ExtractKeyPhrasesFunc func(ctx context.Context, text, language string) ([]string, error)

	SummarizeCalls int32
	ExtractCalls   int32
}

var _ providers.AnalysisProvider = (*AnalysisProvider)(nil)

func (m *AnalysisProvider) Summarize(ctx context.Context, text, language string) (string, error) {
	atomic.AddInt32(&m.SummarizeCalls, 1)
	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, text, language)
	}
	return "summary of: " + text, nil
}

func (m *AnalysisProvider) ExtractKeyPhrases(ctx context.Context, text, language string) ([]string, error) {
	atomic.AddInt32(&m.ExtractCalls, 1)
	if m.ExtractKeyPhrasesFunc != nil {
		return m.ExtractKeyPhrasesFunc(ctx, text, language)
	}
	return []string{"mock phrase"}, nil
}

// TranslationProvider satisfies providers.TranslationProvider for testing.
type TranslationProvider struct {
	TranslateFunc func(ctx context.Context, text, targetLanguage, sourceLanguage string) (*providers.TranslationResult, error)

	TranslateCalls int32
}

var _ providers.TranslationProvider = (*TranslationProvider)(nil)

func (m *TranslationProvider) Translate(ctx context.Context, text, targetLanguage, sourceLanguage string) (*providers.TranslationResult, error) {
	atomic.AddInt32(&m.TranslateCalls, 1)
	if m.TranslateFunc != nil {
		return m.TranslateFunc(ctx, text, targetLanguage, sourceLanguage)
	}
	return &providers.TranslationResult{
		Text:                   fmt.Sprintf("[%s] %s", targetLanguage, text),
		DetectedSourceLanguage: "en",
	}, nil
}

// NewTimeoutTranslationProvider returns a provider that blocks until ctx is done
func NewTimeoutTranslationProvider() *TranslationProvider {
	return &TranslationProvider{
		TranslateFunc: func(ctx context.Context, _, _, _ string) (*providers.TranslationResult, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
}

// AudioURLSigner satisfies providers.AudioURLSigner for testing.
type AudioURLSigner struct {
	PresignFunc func(ctx context.Context, objectKey string, ttl time.Duration) (string, error)
}

var _ providers.AudioURLSigner = (*AudioURLSigner)(nil)

func (m *AudioURLSigner) PresignedAudioURL(ctx context.Context, objectKey string, ttl time.Duration) (string, error) {
	if m.PresignFunc != nil {
		return m.PresignFunc(ctx, objectKey, ttl)
	}
	return fmt.Sprintf("https://storage.test/%s?expires=%d", objectKey, int(ttl.Seconds())), nil
}

// NoteWriter satisfies providers.NoteWriter for testing and records drafts.
type NoteWriter struct {
	mu     sync.Mutex
	Drafts []providers.NoteDraft

	CreateNoteFunc func(ctx context.Context, draft providers.NoteDraft) (string, error)
}

var _ providers.NoteWriter = (*NoteWriter)(nil)

func (m *NoteWriter) CreateNote(ctx context.Context, draft providers.NoteDraft) (string, error) {
	m.mu.Lock()
	m.Drafts = append(m.Drafts, draft)
	m.mu.Unlock()
	if m.CreateNoteFunc != nil {
		return m.CreateNoteFunc(ctx, draft)
	}
	return "note-" + draft.JobID.String(), nil
}

package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/transcript-pipeline/internal/domain/providers"
	"github.com/johnquangdev/transcript-pipeline/pkg/config"
)

const completedTranscript = `{
  "id": "tr-123",
  "status": "completed",
  "text": "Hello there. General Kenobi.",
  "words": [
    {"text": "Hello", "start": 100, "end": 450, "confidence": 0.98, "speaker": "A"},
    {"text": "there.", "start": 450, "end": 900, "confidence": 0.97, "speaker": "A"},
    {"text": "General", "start": 1200, "end": 1600, "confidence": 0.95, "speaker": "B"},
    {"text": "Kenobi.", "start": 1600, "end": 2100, "confidence": 0.91, "speaker": "B"}
  ],
  "utterances": [
    {"speaker": "A", "text": "Hello there.", "start": 100, "end": 900, "confidence": 0.97,
     "words": [
       {"text": "Hello", "start": 100, "end": 450, "confidence": 0.98, "speaker": "A"},
       {"text": "there.", "start": 450, "end": 900, "confidence": 0.97, "speaker": "A"}
     ]},
    {"speaker": "B", "text": "General Kenobi.", "start": 1200, "end": 2100, "confidence": 0.93,
     "words": [
       {"text": "General", "start": 1200, "end": 1600, "confidence": 0.95, "speaker": "B"},
       {"text": "Kenobi.", "start": 1600, "end": 2100, "confidence": 0.91, "speaker": "B"}
     ]}
  ]
}`

// newAssemblyServer mocks the transcript endpoints; transcripts maps id to the GET body
func newAssemblyServer(t *testing.T, transcripts map[string]string, submitted *map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/v2/transcript"):
			if submitted != nil {
				assert.NoError(t, json.NewDecoder(r.Body).Decode(submitted))
			}
			_, _ = w.Write([]byte(`{"id": "tr-123", "status": "queued"}`))
		case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/v2/transcript/"):
			id := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
			body, ok := transcripts[id]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"error": "Transcript lookup error, transcript id not found"}`))
				return
			}
			_, _ = w.Write([]byte(body))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestAssemblyAI_Submit(t *testing.T) {
	var submitted map[string]interface{}
	ts := newAssemblyServer(t, nil, &submitted)
	defer ts.Close()

	client := NewAssemblyAIClient(&config.AssemblyAIConfig{APIKey: "test-key", BaseURL: ts.URL})

	id, err := client.Submit(context.Background(), providers.SubmitRequest{
		AudioURL:     "https://example.com/audio.mp3",
		LanguageHint: "en",
		Diarize:      true,
		MaxSpeakers:  2,
	})
	require.NoError(t, err)
	assert.Equal(t, "tr-123", id)
	assert.Equal(t, "https://example.com/audio.mp3", submitted["audio_url"])
	assert.Equal(t, true, submitted["speaker_labels"])
	assert.Equal(t, "en", submitted["language_code"])
}

func TestAssemblyAI_SubmitRequiresURL(t *testing.T) {
	client := NewAssemblyAIClient(&config.AssemblyAIConfig{APIKey: "test-key"})
	_, err := client.Submit(context.Background(), providers.SubmitRequest{})
	assert.Error(t, err)
}

func TestAssemblyAI_GetStatus(t *testing.T) {
	ts := newAssemblyServer(t, map[string]string{
		"tr-queued":     `{"id": "tr-queued", "status": "queued"}`,
		"tr-processing": `{"id": "tr-processing", "status": "processing"}`,
		"tr-early":      `{"id": "tr-early", "status": "processing", "text": "already here"}`,
		"tr-123":        completedTranscript,
		"tr-error":      `{"id": "tr-error", "status": "error", "error": "audio too short"}`,
	}, nil)
	defer ts.Close()

	client := NewAssemblyAIClient(&config.AssemblyAIConfig{APIKey: "test-key", BaseURL: ts.URL})
	ctx := context.Background()

	report, err := client.GetStatus(ctx, "tr-queued")
	require.NoError(t, err)
	assert.Equal(t, providers.StatusQueued, report.Status)
	assert.Empty(t, report.ResultLocator)

	report, err = client.GetStatus(ctx, "tr-processing")
	require.NoError(t, err)
	assert.Equal(t, providers.StatusInProgress, report.Status)
	assert.Empty(t, report.ResultLocator)

	report, err = client.GetStatus(ctx, "tr-early")
	require.NoError(t, err)
	assert.Equal(t, providers.StatusInProgress, report.Status)
	assert.Equal(t, LocatorScheme+"tr-early", report.ResultLocator)

	report, err = client.GetStatus(ctx, "tr-123")
	require.NoError(t, err)
	assert.Equal(t, providers.StatusCompleted, report.Status)
	assert.Equal(t, LocatorScheme+"tr-123", report.ResultLocator)

	report, err = client.GetStatus(ctx, "tr-error")
	require.NoError(t, err)
	assert.Equal(t, providers.StatusFailed, report.Status)
	assert.Equal(t, "audio too short", report.Error)
	assert.Empty(t, report.ResultLocator)

	_, err = client.GetStatus(ctx, "tr-missing")
	assert.Error(t, err)
}

func TestAssemblyAI_FetchResultConvertsTranscript(t *testing.T) {
	ts := newAssemblyServer(t, map[string]string{"tr-123": completedTranscript}, nil)
	defer ts.Close()

	client := NewAssemblyAIClient(&config.AssemblyAIConfig{APIKey: "test-key", BaseURL: ts.URL})

	raw, err := client.FetchResult(context.Background(), LocatorScheme+"tr-123")
	require.NoError(t, err)

	var doc transcriptDocument
	require.NoError(t, json.Unmarshal(raw, &doc))

	require.Len(t, doc.Results.Transcripts, 1)
	assert.Equal(t, "Hello there. General Kenobi.", doc.Results.Transcripts[0].Transcript)
	require.Len(t, doc.Results.Items, 4)
	assert.Equal(t, "0.100", doc.Results.Items[0].StartTime)
	assert.Equal(t, "0.450", doc.Results.Items[0].EndTime)
	assert.Equal(t, "Hello", doc.Results.Items[0].Alternatives[0].Content)

	require.NotNil(t, doc.Results.SpeakerLabels)
	assert.Equal(t, 2, doc.Results.SpeakerLabels.Speakers)
	require.Len(t, doc.Results.SpeakerLabels.Segments, 2)
	assert.Equal(t, "B", doc.Results.SpeakerLabels.Segments[1].SpeakerLabel)
	require.Len(t, doc.Results.SpeakerLabels.Segments[1].Items, 2)
	assert.Equal(t, "1.200", doc.Results.SpeakerLabels.Segments[1].Items[0].StartTime)
}

func TestAssemblyAI_FetchResultWithoutDiarization(t *testing.T) {
	ts := newAssemblyServer(t, map[string]string{
		"tr-plain": `{"id": "tr-plain", "status": "completed", "text": "just text",
			"words": [{"text": "just", "start": 0, "end": 200}, {"text": "text", "start": 200, "end": 500}]}`,
	}, nil)
	defer ts.Close()

	client := NewAssemblyAIClient(&config.AssemblyAIConfig{APIKey: "test-key", BaseURL: ts.URL})

	raw, err := client.FetchResult(context.Background(), LocatorScheme+"tr-plain")
	require.NoError(t, err)

	var generic map[string]map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &generic))
	_, hasLabels := generic["results"]["speaker_labels"]
	assert.False(t, hasLabels)
}

func TestAssemblyAI_FetchResultDownloadsHTTPLocator(t *testing.T) {
	payload := `{"results": {"transcripts": [{"transcript": "stored output"}], "items": []}}`
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.json" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(payload))
	}))
	defer ts.Close()

	client := NewAssemblyAIClient(&config.AssemblyAIConfig{APIKey: "test-key"})

	raw, err := client.FetchResult(context.Background(), ts.URL+"/result.json")
	require.NoError(t, err)
	assert.JSONEq(t, payload, string(raw))

	_, err = client.FetchResult(context.Background(), ts.URL+"/missing.json")
	assert.ErrorContains(t, err, "status 404")

	_, err = client.FetchResult(context.Background(), "ftp://nowhere/result.json")
	assert.ErrorContains(t, err, "unsupported result locator")
}

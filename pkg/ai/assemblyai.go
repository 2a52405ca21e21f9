package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	aai "github.com/AssemblyAI/assemblyai-go-sdk"

	"github.com/johnquangdev/transcript-pipeline/internal/domain/providers"
	"github.com/johnquangdev/transcript-pipeline/pkg/config"
)

// LocatorScheme prefixes result locators that point back at an AssemblyAI transcript
const LocatorScheme = "assemblyai://transcripts/"

// AssemblyAIClient is the transcript provider gateway backed by the AssemblyAI SDK
type AssemblyAIClient struct {
	sdk    *aai.Client
	client *http.Client
}

var _ providers.TranscriptProvider = (*AssemblyAIClient)(nil)

// NewAssemblyAIClient creates an AssemblyAI client using the provided config.
// If cfg is nil, falls back to environment variables.
func NewAssemblyAIClient(cfg *config.AssemblyAIConfig) *AssemblyAIClient {
	var apiKey, baseURL string
	if cfg != nil {
		apiKey = cfg.APIKey
		baseURL = cfg.BaseURL
	}
	if apiKey == "" {
		apiKey = os.Getenv("ASSEMBLYAI_API_KEY")
	}

	opts := []aai.ClientOption{aai.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, aai.WithBaseURL(baseURL))
	}

	return &AssemblyAIClient{
		sdk:    aai.NewClientWithOptions(opts...),
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Submit queues a transcription of a reachable audio URL and returns the transcript id.
// The audio format is detected by the provider.
func (c *AssemblyAIClient) Submit(ctx context.Context, req providers.SubmitRequest) (string, error) {
	if req.AudioURL == "" {
		return "", fmt.Errorf("audio url is required")
	}

	params := &aai.TranscriptOptionalParams{
		SpeakerLabels: aai.Bool(req.Diarize),
	}
	if req.LanguageHint != "" {
		params.LanguageCode = aai.TranscriptLanguageCode(req.LanguageHint)
	} else {
		params.LanguageDetection = aai.Bool(true)
	}
	if req.Diarize && req.MaxSpeakers > 0 {
		params.SpeakersExpected = aai.Int64(int64(req.MaxSpeakers))
	}

	transcript, err := c.sdk.Transcripts.SubmitFromURL(ctx, req.AudioURL, params)
	if err != nil {
		return "", fmt.Errorf("assemblyai submit: %w", err)
	}
	if transcript.ID == nil || *transcript.ID == "" {
		return "", fmt.Errorf("assemblyai submit: response carried no transcript id")
	}
	return *transcript.ID, nil
}

// GetStatus reads the transcript state. A locator is reported as soon as the
// transcript text is present, which can happen before the status flips.
func (c *AssemblyAIClient) GetStatus(ctx context.Context, transcriptID string) (*providers.StatusReport, error) {
	transcript, err := c.sdk.Transcripts.Get(ctx, transcriptID)
	if err != nil {
		return nil, fmt.Errorf("assemblyai get %s: %w", transcriptID, err)
	}

	report := &providers.StatusReport{
		Status:    mapTranscriptStatus(transcript.Status),
		RawStatus: string(transcript.Status),
	}
	if transcript.Error != nil {
		report.Error = *transcript.Error
	}
	if report.Status == providers.StatusCompleted || (transcript.Text != nil && report.Status != providers.StatusFailed) {
		report.ResultLocator = LocatorScheme + transcriptID
	}
	return report, nil
}

// FetchResult returns the time-aligned transcript document for a locator.
// assemblyai:// locators are converted from the SDK transcript, http(s) locators
// are downloaded as-is.
func (c *AssemblyAIClient) FetchResult(ctx context.Context, resultLocator string) ([]byte, error) {
	switch {
	case strings.HasPrefix(resultLocator, LocatorScheme):
		transcriptID := strings.TrimPrefix(resultLocator, LocatorScheme)
		transcript, err := c.sdk.Transcripts.Get(ctx, transcriptID)
		if err != nil {
			return nil, fmt.Errorf("assemblyai get %s: %w", transcriptID, err)
		}
		return json.Marshal(toTranscriptDocument(transcript))

	case strings.HasPrefix(resultLocator, "http://"), strings.HasPrefix(resultLocator, "https://"):
		return c.download(ctx, resultLocator)

	default:
		return nil, fmt.Errorf("unsupported result locator %q", resultLocator)
	}
}

func (c *AssemblyAIClient) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("result download returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func mapTranscriptStatus(status aai.TranscriptStatus) providers.Status {
	switch status {
	case aai.TranscriptStatusQueued:
		return providers.StatusQueued
	case aai.TranscriptStatusProcessing:
		return providers.StatusInProgress
	case aai.TranscriptStatusCompleted:
		return providers.StatusCompleted
	case aai.TranscriptStatusError:
		return providers.StatusFailed
	default:
		return providers.StatusUnknown
	}
}

// transcriptDocument is the time-aligned result layout shared by every provider
// (results.transcripts / results.speaker_labels / results.items, times in seconds).
type transcriptDocument struct {
	JobName string          `json:"jobName,omitempty"`
	Results documentResults `json:"results"`
}

type documentResults struct {
	Transcripts   []documentTranscript   `json:"transcripts"`
	SpeakerLabels *documentSpeakerLabels `json:"speaker_labels,omitempty"`
	Items         []documentItem         `json:"items"`
}

type documentTranscript struct {
	Transcript string `json:"transcript"`
}

type documentSpeakerLabels struct {
	Speakers int               `json:"speakers"`
	Segments []documentSegment `json:"segments"`
}

type documentSegment struct {
	StartTime    string                `json:"start_time"`
	EndTime      string                `json:"end_time"`
	SpeakerLabel string                `json:"speaker_label"`
	Items        []documentSegmentItem `json:"items"`
}

type documentSegmentItem struct {
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	SpeakerLabel string `json:"speaker_label"`
}

type documentItem struct {
	StartTime    string                `json:"start_time"`
	EndTime      string                `json:"end_time"`
	Type         string                `json:"type"`
	Alternatives []documentAlternative `json:"alternatives"`
}

type documentAlternative struct {
	Confidence string `json:"confidence"`
	Content    string `json:"content"`
}

func toTranscriptDocument(t aai.Transcript) transcriptDocument {
	doc := transcriptDocument{
		JobName: deref(t.ID),
		Results: documentResults{
			Transcripts: []documentTranscript{{Transcript: deref(t.Text)}},
			Items:       make([]documentItem, 0, len(t.Words)),
		},
	}

	for _, w := range t.Words {
		doc.Results.Items = append(doc.Results.Items, documentItem{
			StartTime: formatMillis(w.Start),
			EndTime:   formatMillis(w.End),
			Type:      "pronunciation",
			Alternatives: []documentAlternative{{
				Confidence: formatConfidence(w.Confidence),
				Content:    deref(w.Text),
			}},
		})
	}

	// Utterances are only returned when speaker labels were requested
	if t.Utterances == nil {
		return doc
	}

	labels := &documentSpeakerLabels{Segments: make([]documentSegment, 0, len(t.Utterances))}
	seen := make(map[string]struct{})
	for _, u := range t.Utterances {
		label := deref(u.Speaker)
		seen[label] = struct{}{}

		segment := documentSegment{
			StartTime:    formatMillis(u.Start),
			EndTime:      formatMillis(u.End),
			SpeakerLabel: label,
			Items:        make([]documentSegmentItem, 0, len(u.Words)),
		}
		for _, w := range u.Words {
			segment.Items = append(segment.Items, documentSegmentItem{
				StartTime:    formatMillis(w.Start),
				EndTime:      formatMillis(w.End),
				SpeakerLabel: label,
			})
		}
		labels.Segments = append(labels.Segments, segment)
	}
	labels.Speakers = len(seen)
	doc.Results.SpeakerLabels = labels

	return doc
}

func formatMillis(ms *int64) string {
	if ms == nil {
		return ""
	}
	return strconv.FormatFloat(float64(*ms)/1000, 'f', 3, 64)
}

func formatConfidence(c *float64) string {
	if c == nil {
		return ""
	}
	return strconv.FormatFloat(*c, 'f', 4, 64)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

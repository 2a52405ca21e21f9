package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/transcript-pipeline/internal/domain/entities"
	"github.com/johnquangdev/transcript-pipeline/internal/domain/providers"
	"github.com/johnquangdev/transcript-pipeline/pkg/jobcontext"
)

// Assembler turns a provider result into full text plus per-speaker text
type Assembler struct {
	provider    providers.TranscriptProvider
	callTimeout time.Duration
	logger      *zap.Logger
}

// NewAssembler creates an assembler that fetches payloads through provider
func NewAssembler(provider providers.TranscriptProvider, callTimeout time.Duration, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{provider: provider, callTimeout: callTimeout, logger: logger}
}

// Assemble fetches the payload behind resultLocator and parses it.
// Fetch failures are ProviderErrors, malformed payloads ResultParseErrors.
func (a *Assembler) Assemble(ctx context.Context, jobID uuid.UUID, resultLocator string) (*entities.Assembly, error) {
	callCtx, cancel := jobcontext.CallBegin(ctx, jobID, "fetch_result", a.callTimeout)
	defer cancel()

	raw, err := a.provider.FetchResult(callCtx, resultLocator)
	if err != nil {
		return nil, entities.NewProviderError("fetch_result", err)
	}

	assembly, err := ParsePayload(raw)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("🧩 Transcript assembled", append(jobcontext.Fields(callCtx),
		zap.Int("text_length", len(assembly.FullText)),
		zap.Int("speakers", len(assembly.Speakers)),
		zap.Bool("diarized", assembly.Speakers != nil),
	)...)
	return assembly, nil
}

// millis is a payload time converted to whole milliseconds so ranges compare exactly.
// Accepts "1.234" strings and bare numbers, both in seconds.
type millis struct {
	value int64
	valid bool
}

func (m *millis) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if s == "" || s == "null" {
		*m = millis{}
		return nil
	}
	seconds, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid time %q: %w", s, err)
	}
	*m = millis{value: int64(math.Round(seconds * 1000)), valid: true}
	return nil
}

type timeRange struct {
	start, end int64
}

type payload struct {
	Results *payloadResults `json:"results"`
}

type payloadResults struct {
	Transcripts   []payloadTranscript   `json:"transcripts"`
	SpeakerLabels *payloadSpeakerLabels `json:"speaker_labels"`
	Items         []payloadItem         `json:"items"`
}

type payloadTranscript struct {
	Transcript *string `json:"transcript"`
}

type payloadSpeakerLabels struct {
	Segments []payloadSegment `json:"segments"`
}

type payloadSegment struct {
	SpeakerLabel string             `json:"speaker_label"`
	StartTime    millis             `json:"start_time"`
	EndTime      millis             `json:"end_time"`
	Items        []payloadTimeRange `json:"items"`
}

type payloadTimeRange struct {
	StartTime millis `json:"start_time"`
	EndTime   millis `json:"end_time"`
}

type payloadItem struct {
	StartTime    millis `json:"start_time"`
	EndTime      millis `json:"end_time"`
	Alternatives []struct {
		Content string `json:"content"`
	} `json:"alternatives"`
}

func (it payloadItem) timeRange() (timeRange, bool) {
	if !it.StartTime.valid || !it.EndTime.valid {
		return timeRange{}, false
	}
	return timeRange{start: it.StartTime.value, end: it.EndTime.value}, true
}

func (it payloadItem) content() string {
	if len(it.Alternatives) == 0 {
		return ""
	}
	return it.Alternatives[0].Content
}

// ParsePayload decodes a time-aligned result document.
//
// FullText is the transcript field verbatim. When a speaker_labels structure is
// present, each segment collects the items whose time range exactly equals one
// of the segment's ranges, in item order. Items matching no segment are left out
// of speaker text but stay in FullText. Without speaker_labels Speakers is nil;
// with an empty segment list it is an empty slice.
func ParsePayload(raw []byte) (*entities.Assembly, error) {
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &entities.ResultParseError{Reason: "invalid json", Err: err}
	}
	if p.Results == nil {
		return nil, &entities.ResultParseError{Reason: "missing results"}
	}
	if len(p.Results.Transcripts) == 0 || p.Results.Transcripts[0].Transcript == nil {
		return nil, &entities.ResultParseError{Reason: "missing transcript"}
	}

	assembly := &entities.Assembly{FullText: *p.Results.Transcripts[0].Transcript}
	if p.Results.SpeakerLabels == nil {
		return assembly, nil
	}

	byRange := make(map[timeRange][]int, len(p.Results.Items))
	for i, item := range p.Results.Items {
		if r, ok := item.timeRange(); ok {
			byRange[r] = append(byRange[r], i)
		}
	}

	order := make([]string, 0)
	words := make(map[string][]string)
	for _, seg := range p.Results.SpeakerLabels.Segments {
		if _, seen := words[seg.SpeakerLabel]; !seen {
			order = append(order, seg.SpeakerLabel)
			words[seg.SpeakerLabel] = []string{}
		}

		matched := make(map[int]struct{})
		for _, rng := range seg.Items {
			if !rng.StartTime.valid || !rng.EndTime.valid {
				continue
			}
			for _, idx := range byRange[timeRange{start: rng.StartTime.value, end: rng.EndTime.value}] {
				matched[idx] = struct{}{}
			}
		}

		indices := make([]int, 0, len(matched))
		for idx := range matched {
			indices = append(indices, idx)
		}
		sort.Ints(indices)

		for _, idx := range indices {
			if c := p.Results.Items[idx].content(); c != "" {
				words[seg.SpeakerLabel] = append(words[seg.SpeakerLabel], c)
			}
		}
	}

	assembly.Speakers = make([]entities.Speaker, 0, len(order))
	for _, label := range order {
		assembly.Speakers = append(assembly.Speakers, entities.Speaker{
			Label: label,
			Text:  strings.Join(words[label], " "),
		})
	}
	return assembly, nil
}

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/johnquangdev/transcript-pipeline/internal/domain/providers"
	"github.com/johnquangdev/transcript-pipeline/pkg/config"
)

const defaultGroqModel = "llama-3.1-70b-versatile"

// GroqClient is a minimal client for Groq API calls used for LLM analysis and translation
type GroqClient struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

var (
	_ providers.AnalysisProvider    = (*GroqClient)(nil)
	_ providers.TranslationProvider = (*GroqClient)(nil)
)

// NewGroqClient creates a Groq client using values from the provided config.
// Pass a nil config to fall back to environment variables.
func NewGroqClient(cfg *config.GroqConfig) *GroqClient {
	var apiKey, model string
	if cfg != nil {
		apiKey = cfg.APIKey
		model = cfg.Model
	}
	if apiKey == "" {
		apiKey = os.Getenv("GROQ_API_KEY")
	}
	if model == "" {
		model = defaultGroqModel
	}

	var base string
	if cfg != nil && cfg.BaseURL != "" {
		base = cfg.BaseURL
	} else {
		base = os.Getenv("GROQ_API_URL")
		if base == "" {
			base = "https://api.groq.com"
		}
	}

	return &GroqClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(base, "/"),
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// ChatMessage is one chat turn
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat asks the model for a constrained output shape
type ResponseFormat struct {
	Type string `json:"type"`
}

// ChatRequest is the shape for chat completion requests
type ChatRequest struct {
	Model          string          `json:"model,omitempty"`
	Messages       []ChatMessage   `json:"messages,omitempty"`
	Temperature    float64         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// ChatResponse is a minimal response shape
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Summarize returns a short prose summary of the transcript in the given language
func (g *GroqClient) Summarize(ctx context.Context, text, language string) (string, error) {
	system := fmt.Sprintf(
		"You summarize transcripts. Reply with a concise summary of at most five sentences written in language %q. Reply with the summary only.",
		language)

	content, err := g.complete(ctx, ChatRequest{
		Messages: []ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: text},
		},
		Temperature: 0.3,
		MaxTokens:   1024,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

// ExtractKeyPhrases returns key phrases ordered from most to least relevant
func (g *GroqClient) ExtractKeyPhrases(ctx context.Context, text, language string) ([]string, error) {
	system := fmt.Sprintf(
		`Extract the key phrases of the transcript, most relevant first, written in language %q. Reply with a JSON object {"key_phrases": ["..."]}.`,
		language)

	content, err := g.complete(ctx, ChatRequest{
		Messages: []ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: text},
		},
		Temperature:    0.2,
		MaxTokens:      512,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, err
	}

	var out struct {
		KeyPhrases []string `json:"key_phrases"`
	}
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("groq key phrases: unexpected content: %w", err)
	}

	phrases := make([]string, 0, len(out.KeyPhrases))
	seen := make(map[string]struct{}, len(out.KeyPhrases))
	for _, p := range out.KeyPhrases {
		p = strings.TrimSpace(p)
		key := strings.ToLower(p)
		if p == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		phrases = append(phrases, p)
	}
	return phrases, nil
}

// Translate translates text into targetLanguage; sourceLanguage may be empty
func (g *GroqClient) Translate(ctx context.Context, text, targetLanguage, sourceLanguage string) (*providers.TranslationResult, error) {
	source := "auto-detect it"
	if sourceLanguage != "" {
		source = fmt.Sprintf("it is %q", sourceLanguage)
	}
	system := fmt.Sprintf(
		`Translate the user's text into language %q. For the source language, %s. Reply with a JSON object {"translation": "...", "detected_source_language": "<ISO 639-1 code>"}.`,
		targetLanguage, source)

	content, err := g.complete(ctx, ChatRequest{
		Messages: []ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: text},
		},
		Temperature:    0.1,
		MaxTokens:      8000,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, err
	}

	var out struct {
		Translation            string `json:"translation"`
		DetectedSourceLanguage string `json:"detected_source_language"`
	}
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("groq translate: unexpected content: %w", err)
	}
	if out.Translation == "" {
		return nil, fmt.Errorf("groq translate: empty translation")
	}

	detected := out.DetectedSourceLanguage
	if sourceLanguage != "" {
		detected = sourceLanguage
	}
	return &providers.TranslationResult{Text: out.Translation, DetectedSourceLanguage: detected}, nil
}

// complete sends one chat completion and returns the assistant content
func (g *GroqClient) complete(ctx context.Context, reqBody ChatRequest) (string, error) {
	if reqBody.Model == "" {
		reqBody.Model = g.model
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	endpoint := g.baseURL + "/openai/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("groq returned status %d", resp.StatusCode)
	}

	var cr ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", err
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("empty response from groq")
	}
	return cr.Choices[0].Message.Content, nil
}

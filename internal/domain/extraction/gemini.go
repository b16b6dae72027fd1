package extraction

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/hcevision/cardio/internal/platform/metrics"
)

const (
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	DefaultGeminiModel   = "gemini-flash-latest"
	providerGemini       = "gemini"
)

// GeminiRequest is the generateContent request body.
type GeminiRequest struct {
	Contents         []GeminiContent         `json:"contents"`
	GenerationConfig *GeminiGenerationConfig `json:"generationConfig,omitempty"`
}

type GeminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []GeminiPart `json:"parts"`
}

// GeminiPart holds either text or an inline file.
type GeminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *GeminiInlineData `json:"inline_data,omitempty"`
}

type GeminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type GeminiGenerationConfig struct {
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
	Temperature      float64 `json:"temperature"`
}

type GeminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

// Text concatenates the text parts of the first candidate.
func (r *GeminiResponse) Text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String())
}

type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// GeminiAdapter extracts drafts with the Gemini generateContent API.
type GeminiAdapter struct {
	client *resty.Client
	apiKey string
	model  string
	logger zerolog.Logger
}

func NewGeminiAdapter(cfg GeminiConfig, logger zerolog.Logger) *GeminiAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGeminiBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &GeminiAdapter{
		client: client,
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		logger: logger.With().Str("component", "extraction").Str("provider", providerGemini).Logger(),
	}
}

// Extract sends every document in a single request. Any failure yields a
// Fallback draft.
func (a *GeminiAdapter) Extract(ctx context.Context, docs []Document) Draft {
	start := time.Now()
	d := a.extract(ctx, docs)
	metrics.RecordExtraction(providerGemini, d.Fallback, time.Since(start))
	if d.Fallback {
		a.logger.Warn().
			Str("reason", d.FallbackReason).
			Int("documents", len(docs)).
			Dur("elapsed", time.Since(start)).
			Msg("extraction fell back to simulated draft")
	}
	return d
}

func (a *GeminiAdapter) extract(ctx context.Context, docs []Document) Draft {
	if a.apiKey == "" {
		return Fallback("GEMINI_API_KEY is not configured")
	}
	if len(docs) == 0 {
		return Fallback("no documents")
	}

	parts := make([]GeminiPart, 0, len(docs)+1)
	for _, doc := range docs {
		parts = append(parts, GeminiPart{InlineData: &GeminiInlineData{
			MimeType: doc.MimeType,
			Data:     base64.StdEncoding.EncodeToString(doc.Data),
		}})
	}
	parts = append(parts, GeminiPart{Text: extractionPrompt})

	body := GeminiRequest{
		Contents:         []GeminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: &GeminiGenerationConfig{ResponseMimeType: "application/json"},
	}

	var out GeminiResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParam("key", a.apiKey).
		SetBody(body).
		SetResult(&out).
		Post(fmt.Sprintf("/v1beta/models/%s:generateContent", a.model))
	if err != nil {
		msg := strings.ReplaceAll(err.Error(), a.apiKey, "REDACTED")
		return Fallback("gemini request failed: " + msg)
	}
	if resp.IsError() {
		return Fallback(fmt.Sprintf("gemini returned status %d", resp.StatusCode()))
	}

	text := out.Text()
	if text == "" {
		return Fallback("gemini returned no candidates")
	}
	d, err := Parse(text)
	if err != nil {
		return Fallback(err.Error())
	}

	a.logger.Debug().
		Int("documents", len(docs)).
		Str("type", d.Type).
		Int("labs", len(d.Labs)).
		Int("historical", len(d.HistoricalData)).
		Msg("extraction succeeded")
	return d
}

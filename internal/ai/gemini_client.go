package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// DefaultGeminiBaseURL is the Google Generative Language REST endpoint.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient calls models/{model}:generateContent.
type GeminiClient struct {
	transport
	apiKey  string
	baseURL string
}

// NewGeminiClient creates a Gemini runtime. An empty baseURL selects the public API.
func NewGeminiClient(apiKey, baseURL string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration) *GeminiClient {
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	return &GeminiClient{
		transport: newTransport(httpTimeout, RetryPolicy{MaxAttempts: retryMax, BaseDelay: baseDelay, MaxDelay: maxDelay}),
		apiKey:    apiKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      *float64       `json:"temperature,omitempty"`
	MaxOutputTokens  int            `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	ResponseID string `json:"responseId"`
}

// Generate maps the chat-style request onto generateContent. System messages
// become the system instruction and assistant turns use the "model" role.
func (c *GeminiClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if c.apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is missing")
	}
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	if len(req.Messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}

	var greq geminiRequest
	var system []geminiPart
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			system = append(system, geminiPart{Text: m.Content})
		case "assistant", "model":
			greq.Contents = append(greq.Contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: m.Content}}})
		default:
			greq.Contents = append(greq.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: m.Content}}})
		}
	}
	if len(system) > 0 {
		greq.SystemInstruction = &geminiContent{Parts: system}
	}
	gc := &geminiGenerationConfig{MaxOutputTokens: req.MaxTokens}
	if req.Temperature > 0 {
		t := req.Temperature
		gc.Temperature = &t
	}
	if req.Schema != nil {
		gc.ResponseMimeType = "application/json"
		gc.ResponseSchema = GeminiSchema(req.Schema.Schema)
	}
	greq.GenerationConfig = gc

	payload, err := json.Marshal(greq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	endpoint := c.baseURL + "/models/" + url.PathEscape(strings.TrimPrefix(req.Model, "models/")) + ":generateContent"
	headers := map[string]string{"x-goog-api-key": c.apiKey}

	var gresp geminiResponse
	requestID, err := c.postJSON(ctx, endpoint, headers, payload, &gresp)
	if err != nil {
		return nil, err
	}
	out := &GenerateResponse{
		ID:        gresp.ResponseID,
		RequestID: requestID,
		Usage: Usage{
			PromptTokens:     gresp.UsageMetadata.PromptTokenCount,
			CompletionTokens: gresp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      gresp.UsageMetadata.TotalTokenCount,
		},
	}
	if len(gresp.Candidates) > 0 {
		var sb strings.Builder
		for _, p := range gresp.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
		out.Choices = []Choice{{Message: Message{Role: "assistant", Content: sb.String()}}}
	}
	return out, nil
}

// GeminiSchema converts a JSON Schema document into the OpenAPI subset
// accepted by responseSchema: upper-case type names, a ["T","null"] union
// becomes T with nullable=true, and unsupported keywords are dropped.
func GeminiSchema(s map[string]any) map[string]any {
	if s == nil {
		return nil
	}
	out := map[string]any{}
	switch t := s["type"].(type) {
	case string:
		out["type"] = strings.ToUpper(t)
	case []any:
		for _, v := range t {
			name, _ := v.(string)
			if name == "null" {
				out["nullable"] = true
				continue
			}
			if _, set := out["type"]; !set && name != "" {
				out["type"] = strings.ToUpper(name)
			}
		}
	}
	for _, k := range []string{"description", "format", "enum", "required", "nullable"} {
		if v, ok := s[k]; ok {
			out[k] = v
		}
	}
	if props, ok := s["properties"].(map[string]any); ok {
		converted := make(map[string]any, len(props))
		for name, p := range props {
			if ps, ok := p.(map[string]any); ok {
				converted[name] = GeminiSchema(ps)
			}
		}
		out["properties"] = converted
	}
	if items, ok := s["items"].(map[string]any); ok {
		out["items"] = GeminiSchema(items)
	}
	return out
}

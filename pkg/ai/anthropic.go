package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	anthropicBaseURL    = "https://api.anthropic.com/v1/messages"
	anthropicAPIVersion = "2023-06-01"
)

// AnthropicConfig defines configuration options for the Anthropic grader.
type AnthropicConfig struct {
	APIKey     string
	Model      string
	MaxTokens  int
	BaseURL    string
	HTTPClient *http.Client
}

// AnthropicGrader implements Grader against the Anthropic messages API.
type AnthropicGrader struct {
	cfg    AnthropicConfig
	client *http.Client
	tracer trace.Tracer
}

// NewAnthropicGrader builds a new grader using the provided configuration.
func NewAnthropicGrader(cfg AnthropicConfig) (*AnthropicGrader, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-20250514"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 512
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = anthropicBaseURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	return &AnthropicGrader{
		cfg:    cfg,
		client: client,
		tracer: otel.Tracer("github.com/penmark-edu/penmark-api/pkg/ai/anthropic"),
	}, nil
}

type anthropicContentBlock struct {
	Type   string                 `json:"type"`
	Text   string                 `json:"text,omitempty"`
	Source map[string]interface{} `json:"source,omitempty"`
}

type anthropicMessage struct {
	Role    string                  `json:"role"`
	Content []anthropicContentBlock `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []anthropicContentBlock `json:"content"`
	Usage   map[string]interface{}  `json:"usage"`
	Error   *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// GradeQuestion sends one rubric question and the scanned page to Anthropic
// and parses the structured judgment.
func (g *AnthropicGrader) GradeQuestion(parent context.Context, input QuestionInput) (QuestionGrade, error) {
	ctx, span := g.tracer.Start(parent, "anthropic.grade_question", trace.WithAttributes(
		attribute.String("model", g.cfg.Model),
		attribute.Int("question_number", input.QuestionNumber),
	))
	defer span.End()

	payload := anthropicRequest{
		Model:     g.cfg.Model,
		MaxTokens: g.cfg.MaxTokens,
		System:    graderSystemPrompt(),
		Messages: []anthropicMessage{
			{
				Role: "user",
				Content: []anthropicContentBlock{
					{Type: "text", Text: buildQuestionPrompt(input)},
					{Type: "image", Source: map[string]interface{}{
						"type": "url",
						"url":  input.ImageURL,
					}},
				},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return QuestionGrade{}, fmt.Errorf("encode anthropic request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return QuestionGrade{}, fmt.Errorf("build anthropic request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", g.cfg.APIKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)

	start := time.Now()
	resp, err := g.client.Do(req)
	aiDuration.WithLabelValues(g.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		aiFailures.WithLabelValues(g.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return QuestionGrade{}, fmt.Errorf("anthropic grade: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		aiFailures.WithLabelValues(g.cfg.Model).Inc()
		return QuestionGrade{}, fmt.Errorf("read anthropic response: %w", err)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		aiFailures.WithLabelValues(g.cfg.Model).Inc()
		return QuestionGrade{}, fmt.Errorf("decode anthropic response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		aiFailures.WithLabelValues(g.cfg.Model).Inc()
		message := resp.Status
		if parsed.Error != nil {
			message = parsed.Error.Message
		}
		err := fmt.Errorf("anthropic grade: %s", message)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return QuestionGrade{}, err
	}

	text := ""
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		aiFailures.WithLabelValues(g.cfg.Model).Inc()
		err := fmt.Errorf("no text content returned from anthropic")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return QuestionGrade{}, err
	}

	grade, err := parseQuestionGrade(extractJSONObject(text), input.PointsAvailable)
	if err != nil {
		aiFailures.WithLabelValues(g.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return QuestionGrade{}, err
	}

	grade.Raw = map[string]interface{}{
		"usage": parsed.Usage,
	}

	return grade, nil
}

// extractJSONObject trims any prose the model wraps around the JSON payload.
func extractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return text
	}
	return text[start : end+1]
}

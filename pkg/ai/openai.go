package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "penmark",
		Subsystem: "ai",
		Name:      "grading_duration_seconds",
		Help:      "Duration of AI grading requests",
	}, []string{"model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "penmark",
		Subsystem: "ai",
		Name:      "grading_failures_total",
		Help:      "Number of AI grading failures",
	}, []string{"model"})
)

// OpenAIConfig defines configuration options for the OpenAI grader.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIGrader implements Grader against the OpenAI vision chat API.
type OpenAIGrader struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIGrader builds a new grader using the provided configuration.
func NewOpenAIGrader(cfg OpenAIConfig) (*OpenAIGrader, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 512
	}

	tracer := otel.Tracer("github.com/penmark-edu/penmark-api/pkg/ai/openai")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	client := openai.NewClientWithConfig(config)

	return &OpenAIGrader{
		client: client,
		cfg:    cfg,
		tracer: tracer,
		logger: logger,
	}, nil
}

// GradeQuestion sends one rubric question and the scanned page to OpenAI and
// parses the structured judgment.
func (g *OpenAIGrader) GradeQuestion(parent context.Context, input QuestionInput) (QuestionGrade, error) {
	ctx, span := g.tracer.Start(parent, "openai.grade_question", trace.WithAttributes(
		attribute.String("model", g.cfg.Model),
		attribute.Int("question_number", input.QuestionNumber),
	))
	defer span.End()

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: graderSystemPrompt(),
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: buildQuestionPrompt(input),
					},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: input.ImageURL},
					},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := g.client.CreateChatCompletion(ctx, request)
	duration := time.Since(start)
	aiDuration.WithLabelValues(g.cfg.Model).Observe(duration.Seconds())
	if err != nil {
		aiFailures.WithLabelValues(g.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return QuestionGrade{}, fmt.Errorf("openai grade: %w", err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from openai")
		aiFailures.WithLabelValues(g.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return QuestionGrade{}, err
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	grade, err := parseQuestionGrade(content, input.PointsAvailable)
	if err != nil {
		aiFailures.WithLabelValues(g.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return QuestionGrade{}, err
	}

	grade.Raw = map[string]interface{}{
		"usage": resp.Usage,
	}

	return grade, nil
}

func graderSystemPrompt() string {
	return "You are grading a handwritten exam answer from a scanned page. Compare the student's answer for the numbered questi" +
		"on against the expected answer and award partial credit. Respond with a JSON object containing pointsAwarded (number), " +
		"confidence (0-1, how certain you are of your reading and scoring), illegible (boolean, true when the handwriting cannot" +
		" be read), and feedback (one or two sentences for the teacher)."
}

func buildQuestionPrompt(input QuestionInput) string {
	builder := strings.Builder{}
	fmt.Fprintf(&builder, "# Question %d", input.QuestionNumber)
	if input.Subject != "" {
		fmt.Fprintf(&builder, " (%s)", input.Subject)
	}
	if input.QuestionText != "" {
		builder.WriteString("\n\n## Question\n")
		builder.WriteString(input.QuestionText)
	}
	builder.WriteString("\n\n## Expected Answer\n")
	builder.WriteString(input.ExpectedAnswer)
	fmt.Fprintf(&builder, "\n\n## Points Available\n%g", input.PointsAvailable)
	builder.WriteString("\n\nLocate this question's answer on the attached page and grade it. Return JSON.")
	return builder.String()
}

func parseQuestionGrade(content string, pointsAvailable float64) (QuestionGrade, error) {
	type payload struct {
		PointsAwarded float64 `json:"pointsAwarded"`
		Confidence    float64 `json:"confidence"`
		Illegible     bool    `json:"illegible"`
		Feedback      string  `json:"feedback"`
	}

	var data payload
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return QuestionGrade{}, fmt.Errorf("parse grading json: %w", err)
	}

	if data.PointsAwarded < 0 {
		data.PointsAwarded = 0
	}
	if data.PointsAwarded > pointsAvailable {
		data.PointsAwarded = pointsAvailable
	}
	if data.Confidence < 0 {
		data.Confidence = 0
	}
	if data.Confidence > 1 {
		data.Confidence = 1
	}
	if data.Illegible {
		// An unreadable answer earns nothing and must reach a human.
		data.PointsAwarded = 0
	}

	return QuestionGrade{
		PointsAwarded: data.PointsAwarded,
		Confidence:    data.Confidence,
		Illegible:     data.Illegible,
		Feedback:      data.Feedback,
	}, nil
}

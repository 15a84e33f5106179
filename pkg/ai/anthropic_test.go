package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnthropicGraderParsesTextBlock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-key", r.Header.Get("x-api-key"))
		require.Equal(t, anthropicAPIVersion, r.Header.Get("anthropic-version"))

		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)
		require.Len(t, req.Messages[0].Content, 2)

		_ = json.NewEncoder(w).Encode(anthropicResponse{
			Content: []anthropicContentBlock{
				{Type: "text", Text: `Here is the grade: {"pointsAwarded":6,"confidence":0.72,"illegible":false,"feedback":"Working shown, final step wrong."}`},
			},
		})
	}))
	defer server.Close()

	grader, err := NewAnthropicGrader(AnthropicConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
	})
	require.NoError(t, err)

	grade, err := grader.GradeQuestion(context.Background(), QuestionInput{
		ImageURL:        "https://cdn.example.com/scan.jpg",
		QuestionNumber:  1,
		ExpectedAnswer:  "x = 4",
		PointsAvailable: 10,
	})
	require.NoError(t, err)
	require.Equal(t, 6.0, grade.PointsAwarded)
	require.Equal(t, 0.72, grade.Confidence)
	require.False(t, grade.Illegible)
}

func TestAnthropicGraderSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate_limit_error","message":"rate limited"}}`))
	}))
	defer server.Close()

	grader, err := NewAnthropicGrader(AnthropicConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
	})
	require.NoError(t, err)

	_, err = grader.GradeQuestion(context.Background(), QuestionInput{PointsAvailable: 10})
	require.ErrorContains(t, err, "rate limited")
}

func TestAnthropicGraderRequiresAPIKey(t *testing.T) {
	_, err := NewAnthropicGrader(AnthropicConfig{})
	require.Error(t, err)
}

func TestExtractJSONObject(t *testing.T) {
	require.Equal(t, `{"a":1}`, extractJSONObject(`leading text {"a":1} trailing`))
	require.Equal(t, "no braces here", extractJSONObject("no braces here"))
}

package gradeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// File is an in-memory file selected for upload.
type File struct {
	Name     string
	MIMEType string
	Content  []byte
}

// Size returns the file payload size in bytes.
func (f File) Size() int64 {
	return int64(len(f.Content))
}

// ClientConfig configures the API client.
type ClientConfig struct {
	BaseURL   string
	TeacherID string
	Timeout   time.Duration
	Logger    zerolog.Logger
}

// Client talks to the Penmark grading API. It implements the collaborator
// interfaces consumed by the gradeflow session pipeline.
type Client struct {
	baseURL   string
	teacherID string
	http      *http.Client
	logger    zerolog.Logger
}

// NewClient constructs an API client.
func NewClient(cfg ClientConfig) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("gradeapi: base url must be provided")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		baseURL:   base,
		teacherID: strings.TrimSpace(cfg.TeacherID),
		http:      &http.Client{Timeout: timeout},
		logger:    cfg.Logger.With().Str("component", "gradeapi_client").Logger(),
	}, nil
}

// envelope mirrors the server's APIResponse wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// UploadSingle uploads one submission file. onProgress, when non-nil,
// observes integer percentages 0-100 ending at exactly 100 on success.
func (c *Client) UploadSingle(ctx context.Context, assignmentID, studentID string, file File, onProgress ProgressFunc) (UploadResult, error) {
	body, contentType, err := encodeMultipart("file", []File{file})
	if err != nil {
		return UploadResult{}, err
	}

	path := fmt.Sprintf("/api/v1/submissions/upload?assignmentId=%s&studentId=%s",
		url.QueryEscape(assignmentID), url.QueryEscape(studentID))

	var result UploadResult
	if err := c.postMultipart(ctx, path, body, contentType, onProgress, &result); err != nil {
		return UploadResult{}, err
	}

	return result, nil
}

// UploadBatch uploads several files in one request. Progress covers the
// aggregate transfer.
func (c *Client) UploadBatch(ctx context.Context, assignmentID, studentID string, files []File, onProgress ProgressFunc) (BatchUploadResult, error) {
	body, contentType, err := encodeMultipart("files", files)
	if err != nil {
		return BatchUploadResult{}, err
	}

	path := fmt.Sprintf("/api/v1/submissions/upload/batch?assignmentId=%s&studentId=%s",
		url.QueryEscape(assignmentID), url.QueryEscape(studentID))

	var result BatchUploadResult
	if err := c.postMultipart(ctx, path, body, contentType, onProgress, &result); err != nil {
		return BatchUploadResult{}, err
	}

	return result, nil
}

// TriggerGrading asks the server to grade a submission. The call is
// idempotent: an existing result is returned unchanged.
func (c *Client) TriggerGrading(ctx context.Context, submissionID string) (GradingResult, error) {
	var result GradingResult
	path := fmt.Sprintf("/api/v1/submissions/%s/grade", url.PathEscape(submissionID))
	if err := c.do(ctx, http.MethodPost, path, nil, &result); err != nil {
		return GradingResult{}, err
	}
	return result, nil
}

// FetchGradingResult reads an existing grading result.
func (c *Client) FetchGradingResult(ctx context.Context, submissionID string) (GradingResult, error) {
	var result GradingResult
	path := fmt.Sprintf("/api/v1/submissions/%s/grade", url.PathEscape(submissionID))
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return GradingResult{}, err
	}
	return result, nil
}

// FetchPendingReviews lists grading results flagged for manual review that
// have not been reviewed yet.
func (c *Client) FetchPendingReviews(ctx context.Context) ([]GradingResult, error) {
	var results []GradingResult
	if err := c.do(ctx, http.MethodGet, "/api/v1/grading/reviews/pending", nil, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// SubmitReview finalizes a review decision for a grade.
func (c *Client) SubmitReview(ctx context.Context, gradeID string, decision ReviewDecision) (GradingResult, error) {
	var result GradingResult
	path := fmt.Sprintf("/api/v1/grading/%s/review", url.PathEscape(gradeID))
	if err := c.do(ctx, http.MethodPatch, path, decision, &result); err != nil {
		return GradingResult{}, err
	}
	return result, nil
}

// GetThreshold reads the teacher's effective review threshold.
func (c *Client) GetThreshold(ctx context.Context) (Threshold, error) {
	var threshold Threshold
	if err := c.do(ctx, http.MethodGet, "/api/v1/teachers/me/grading-threshold", nil, &threshold); err != nil {
		return Threshold{}, err
	}
	return threshold, nil
}

// UpdateThreshold stores a new per-teacher threshold fraction.
func (c *Client) UpdateThreshold(ctx context.Context, value float64) (Threshold, error) {
	var threshold Threshold
	payload := map[string]float64{"threshold": value}
	if err := c.do(ctx, http.MethodPut, "/api/v1/teachers/me/grading-threshold", payload, &threshold); err != nil {
		return Threshold{}, err
	}
	return threshold, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setCommonHeaders(req)

	return c.send(req, out)
}

func (c *Client) postMultipart(ctx context.Context, path string, body []byte, contentType string, onProgress ProgressFunc, out interface{}) error {
	reader := newProgressReader(bytes.NewReader(body), int64(len(body)), onProgress)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.ContentLength = int64(len(body))
	req.Header.Set("Content-Type", contentType)
	c.setCommonHeaders(req)

	if err := c.send(req, out); err != nil {
		return err
	}

	reader.finish()
	return nil
}

func (c *Client) send(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var wrapped envelope
	if err := json.NewDecoder(resp.Body).Decode(&wrapped); err != nil {
		return fmt.Errorf("gradeapi: decode response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest || !wrapped.Success {
		message := strings.TrimSpace(wrapped.Message)
		if message == "" {
			message = fmt.Sprintf("request failed with status %d", resp.StatusCode)
		}
		c.logger.Debug().Int("status", resp.StatusCode).Str("path", req.URL.Path).Msg("api request rejected")
		return fmt.Errorf("gradeapi: %s", message)
	}

	if out == nil || len(wrapped.Data) == 0 {
		return nil
	}

	if err := json.Unmarshal(wrapped.Data, out); err != nil {
		return fmt.Errorf("gradeapi: decode payload: %w", err)
	}

	return nil
}

func (c *Client) setCommonHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.teacherID != "" {
		req.Header.Set("X-Teacher-ID", c.teacherID)
	}
}

func encodeMultipart(fieldName string, files []File) ([]byte, string, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	for _, file := range files {
		part, err := writer.CreateFormFile(fieldName, file.Name)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(file.Content); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), writer.FormDataContentType(), nil
}

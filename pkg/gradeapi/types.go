// Package gradeapi defines the wire contract of the Penmark grading API and
// an HTTP client for it. The types here are shared between the server
// handlers and the client-side grading pipeline so both halves agree on one
// serialization of scores, confidence values, and review decisions.
package gradeapi

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Submission lifecycle statuses reported in grading results.
const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// Threshold sources reported by the settings endpoint.
const (
	ThresholdSourceDefault         = "default"
	ThresholdSourceTeacherOverride = "teacher_override"
)

// ErrMalformedQuestionScores indicates a questionScores payload that is not
// valid JSON. Callers that tolerate upstream drift degrade to an empty slice;
// callers that persist scores reject the payload.
var ErrMalformedQuestionScores = errors.New("malformed questionScores payload")

// UploadResult is returned once per successfully stored submission file.
type UploadResult struct {
	SubmissionID string    `json:"submissionId"`
	FileURL      string    `json:"fileUrl"`
	FileName     string    `json:"fileName"`
	Status       string    `json:"status"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// BatchUploadResult aggregates per-file results of a batch upload.
type BatchUploadResult struct {
	Results       []UploadResult `json:"results"`
	TotalUploaded int            `json:"totalUploaded"`
	TotalFailed   int            `json:"totalFailed"`
}

// QuestionScore is one question's grade inside a grading result. Confidence
// is on the 0-100 scale; the server multiplies the model's raw 0.0-1.0 value
// by 100 before serializing.
type QuestionScore struct {
	QuestionNumber  int     `json:"questionNumber"`
	PointsAwarded   float64 `json:"pointsAwarded"`
	PointsAvailable float64 `json:"pointsAvailable"`
	ConfidenceScore float64 `json:"confidenceScore"`
	Illegible       bool    `json:"illegible"`
	Feedback        string  `json:"feedback"`
}

// GradingResult is the AI's scored assessment of one submission.
// QuestionScores carries a JSON-encoded QuestionScore array nested inside the
// string field; the upstream contract requires the nesting to be preserved.
type GradingResult struct {
	GradeID            string     `json:"gradeId"`
	SubmissionID       string     `json:"submissionId"`
	Status             string     `json:"status"`
	AIScore            float64    `json:"aiScore"`
	FinalScore         float64    `json:"finalScore"`
	ConfidenceScore    float64    `json:"confidenceScore"`
	NeedsReview        bool       `json:"needsReview"`
	QuestionScores     string     `json:"questionScores"`
	AIFeedback         string     `json:"aiFeedback"`
	TeacherOverride    bool       `json:"teacherOverride"`
	ReviewedBy         *string    `json:"reviewedBy"`
	ReviewedAt         *time.Time `json:"reviewedAt"`
	SubmissionImageURL string     `json:"submissionImageUrl,omitempty"`
	ProcessingTimeMs   int        `json:"processingTimeMs"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// ReviewDecision finalizes a flagged grading result. A nil QuestionScores
// means "keep the AI's per-question scores, approve as-is".
type ReviewDecision struct {
	FinalScore      float64 `json:"finalScore"`
	TeacherOverride bool    `json:"teacherOverride"`
	QuestionScores  *string `json:"questionScores,omitempty"`
}

// Threshold is the per-teacher review threshold, a fraction in [0,1].
// It is display-only context on the client; routing reads the server-computed
// NeedsReview flag instead.
type Threshold struct {
	EffectiveThreshold float64  `json:"effectiveThreshold"`
	Source             string   `json:"source"`
	TeacherThreshold   *float64 `json:"teacherThreshold"`
}

// DecodeQuestionScores parses the string-encoded question score array.
// Malformed JSON yields ErrMalformedQuestionScores so callers can distinguish
// a corrupt payload from a legitimately empty one.
func DecodeQuestionScores(raw string) ([]QuestionScore, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var scores []QuestionScore
	if err := json.Unmarshal([]byte(raw), &scores); err != nil {
		return nil, ErrMalformedQuestionScores
	}

	return scores, nil
}

// EncodeQuestionScores serializes question scores back into the nested
// string form used on the wire.
func EncodeQuestionScores(scores []QuestionScore) (string, error) {
	if scores == nil {
		scores = []QuestionScore{}
	}

	encoded, err := json.Marshal(scores)
	if err != nil {
		return "", err
	}

	return string(encoded), nil
}

package dto

import (
	"github.com/penmark-edu/penmark-api/internal/models"
	"github.com/penmark-edu/penmark-api/pkg/gradeapi"
)

// ReviewRequest is a teacher's decision on a flagged grading result.
// QuestionScores, when present, must be a JSON-encoded question score array;
// omitting it keeps the stored breakdown.
type ReviewRequest struct {
	FinalScore      float64 `json:"finalScore" validate:"gte=0,lte=100"`
	TeacherOverride bool    `json:"teacherOverride"`
	QuestionScores  *string `json:"questionScores"`
}

// ThresholdUpdateRequest sets the per-teacher review threshold fraction.
type ThresholdUpdateRequest struct {
	Threshold float64 `json:"threshold" validate:"gte=0,lte=1"`
}

// NewGradingResultResponse converts a grading result model into the wire
// shape shared with the client pipeline.
func NewGradingResultResponse(model models.GradingResult) gradeapi.GradingResult {
	return gradeapi.GradingResult{
		GradeID:            model.ID,
		SubmissionID:       model.SubmissionID,
		Status:             model.Status,
		AIScore:            model.AIScore,
		FinalScore:         model.FinalScore,
		ConfidenceScore:    model.ConfidenceScore,
		NeedsReview:        model.NeedsReview,
		QuestionScores:     model.QuestionScores,
		AIFeedback:         model.AIFeedback,
		TeacherOverride:    model.TeacherOverride,
		ReviewedBy:         model.ReviewedBy,
		ReviewedAt:         model.ReviewedAt,
		SubmissionImageURL: model.Submission.FileURL,
		ProcessingTimeMs:   model.ProcessingTimeMs,
		CreatedAt:          model.CreatedAt,
		UpdatedAt:          model.UpdatedAt,
	}
}

// NewGradingResultResponseSlice converts grading result models into DTOs.
func NewGradingResultResponseSlice(results []models.GradingResult) []gradeapi.GradingResult {
	responses := make([]gradeapi.GradingResult, 0, len(results))
	for _, result := range results {
		responses = append(responses, NewGradingResultResponse(result))
	}

	return responses
}

package dto

import (
	"github.com/penmark-edu/penmark-api/internal/models"
	"github.com/penmark-edu/penmark-api/pkg/gradeapi"
)

// UploadParams carries the query-string identifiers for submission uploads.
type UploadParams struct {
	AssignmentID string `query:"assignmentId" validate:"required,uuid4"`
	StudentID    string `query:"studentId" validate:"required,uuid4"`
}

// NewUploadResult converts a stored submission into the wire result.
func NewUploadResult(model models.Submission) gradeapi.UploadResult {
	return gradeapi.UploadResult{
		SubmissionID: model.ID,
		FileURL:      model.FileURL,
		FileName:     model.FileName,
		Status:       model.Status,
		UploadedAt:   model.CreatedAt,
	}
}

// NewBatchUploadResult aggregates per-file outcomes of a batch upload.
func NewBatchUploadResult(stored []models.Submission, failed int) gradeapi.BatchUploadResult {
	results := make([]gradeapi.UploadResult, 0, len(stored))
	for _, submission := range stored {
		results = append(results, NewUploadResult(submission))
	}

	return gradeapi.BatchUploadResult{
		Results:       results,
		TotalUploaded: len(stored),
		TotalFailed:   failed,
	}
}

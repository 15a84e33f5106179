package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Submission lifecycle statuses.
const (
	SubmissionStatusPending    = "PENDING"
	SubmissionStatusProcessing = "PROCESSING"
	SubmissionStatusCompleted  = "COMPLETED"
	SubmissionStatusFailed     = "FAILED"
)

// Submission is one uploaded handwritten exam file for a student.
type Submission struct {
	ID             string            `gorm:"primaryKey;size:36" json:"id"`
	ExamTemplateID string            `gorm:"size:36;index;not null" json:"exam_template_id"`
	StudentID      string            `gorm:"size:36;index;not null" json:"student_id"`
	TeacherID      string            `gorm:"size:36;index;not null" json:"teacher_id"`
	FileURL        string            `gorm:"size:512;not null" json:"file_url"`
	FileName       string            `gorm:"size:255;not null" json:"file_name"`
	Status         string            `gorm:"size:32;not null" json:"status"`
	Metadata       datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	ExamTemplate   ExamTemplate      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"exam_template"`
	Student        Student           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (s *Submission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// IsTerminal reports whether grading has finished for this submission.
func (s Submission) IsTerminal() bool {
	return s.Status == SubmissionStatusCompleted || s.Status == SubmissionStatusFailed
}

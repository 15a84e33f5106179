package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GradingResult is the AI's scored assessment of one submission. A
// submission has at most one result; once Status reaches a terminal value
// the AI fields never change, only review fields do.
//
// QuestionScores holds a JSON-encoded array as a string column. The upstream
// contract serializes the breakdown nested inside the string field, so it is
// stored exactly as it travels.
type GradingResult struct {
	ID               string     `gorm:"primaryKey;size:36" json:"id"`
	SubmissionID     string     `gorm:"size:36;uniqueIndex;not null" json:"submission_id"`
	Status           string     `gorm:"size:32;not null" json:"status"`
	AIScore          float64    `json:"ai_score"`
	FinalScore       float64    `json:"final_score"`
	ConfidenceScore  float64    `json:"confidence_score"`
	NeedsReview      bool       `gorm:"index" json:"needs_review"`
	QuestionScores   string     `gorm:"type:text" json:"question_scores"`
	AIFeedback       string     `gorm:"type:text" json:"ai_feedback"`
	TeacherOverride  bool       `json:"teacher_override"`
	ReviewedBy       *string    `gorm:"size:36" json:"reviewed_by"`
	ReviewedAt       *time.Time `json:"reviewed_at"`
	ProcessingTimeMs int        `json:"processing_time_ms"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	Submission       Submission `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"submission"`
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (g *GradingResult) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	return nil
}

// IsReviewed reports whether a teacher has finalized this result.
func (g GradingResult) IsReviewed() bool {
	return g.ReviewedAt != nil
}

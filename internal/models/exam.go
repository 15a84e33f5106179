package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ExamTemplate defines one paper exam: its identity plus the answer rubric
// the AI grades against.
type ExamTemplate struct {
	ID        string          `gorm:"primaryKey;size:36" json:"id"`
	TeacherID string          `gorm:"size:36;index;not null" json:"teacher_id"`
	Title     string          `gorm:"size:255;not null" json:"title"`
	Subject   string          `gorm:"size:128" json:"subject"`
	Rubric    []RubricQuestion `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"rubric"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (e *ExamTemplate) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// TotalPoints sums the rubric's available points.
func (e ExamTemplate) TotalPoints() float64 {
	var total float64
	for _, q := range e.Rubric {
		total += q.PointsAvailable
	}
	return total
}

// RubricQuestion is one gradable question on an exam template.
type RubricQuestion struct {
	ID              string  `gorm:"primaryKey;size:36" json:"id"`
	ExamTemplateID  string  `gorm:"size:36;index;not null" json:"exam_template_id"`
	QuestionNumber  int     `gorm:"not null" json:"question_number"`
	QuestionText    string  `gorm:"type:text" json:"question_text"`
	ExpectedAnswer  string  `gorm:"type:text" json:"expected_answer"`
	PointsAvailable float64 `gorm:"not null" json:"points_available"`
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (q *RubricQuestion) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}

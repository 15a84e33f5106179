package dto

import (
	"time"

	"github.com/penmark-edu/penmark-api/internal/models"
)

// StudentCreateRequest registers a student on the roster.
type StudentCreateRequest struct {
	Name      string `json:"name" validate:"required,min=2,max=255"`
	Email     string `json:"email" validate:"required,email"`
	ClassName string `json:"className" validate:"omitempty,max=128"`
}

// StudentResponse serializes a roster student.
type StudentResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	ClassName string    `json:"className"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewStudentResponse converts a student model into a DTO.
func NewStudentResponse(model models.Student) StudentResponse {
	return StudentResponse{
		ID:        model.ID,
		Name:      model.Name,
		Email:     model.Email,
		ClassName: model.ClassName,
		CreatedAt: model.CreatedAt,
	}
}

// NewStudentResponseSlice converts student models into DTOs.
func NewStudentResponseSlice(students []models.Student) []StudentResponse {
	responses := make([]StudentResponse, 0, len(students))
	for _, student := range students {
		responses = append(responses, NewStudentResponse(student))
	}

	return responses
}

// RubricQuestionRequest defines one question when creating an exam template.
type RubricQuestionRequest struct {
	QuestionNumber  int     `json:"questionNumber" validate:"required,gt=0"`
	QuestionText    string  `json:"questionText" validate:"omitempty,max=4000"`
	ExpectedAnswer  string  `json:"expectedAnswer" validate:"required"`
	PointsAvailable float64 `json:"pointsAvailable" validate:"required,gt=0"`
}

// ExamTemplateCreateRequest creates an exam template with its rubric.
type ExamTemplateCreateRequest struct {
	Title   string                  `json:"title" validate:"required,min=2,max=255"`
	Subject string                  `json:"subject" validate:"omitempty,max=128"`
	Rubric  []RubricQuestionRequest `json:"rubric" validate:"required,min=1,dive"`
}

// RubricQuestionResponse serializes one rubric question.
type RubricQuestionResponse struct {
	QuestionNumber  int     `json:"questionNumber"`
	QuestionText    string  `json:"questionText"`
	ExpectedAnswer  string  `json:"expectedAnswer"`
	PointsAvailable float64 `json:"pointsAvailable"`
}

// ExamTemplateResponse serializes an exam template with its rubric.
type ExamTemplateResponse struct {
	ID          string                   `json:"id"`
	Title       string                   `json:"title"`
	Subject     string                   `json:"subject"`
	TotalPoints float64                  `json:"totalPoints"`
	Rubric      []RubricQuestionResponse `json:"rubric"`
	CreatedAt   time.Time                `json:"createdAt"`
}

// NewExamTemplateResponse converts an exam template model into a DTO.
func NewExamTemplateResponse(model models.ExamTemplate) ExamTemplateResponse {
	rubric := make([]RubricQuestionResponse, 0, len(model.Rubric))
	for _, q := range model.Rubric {
		rubric = append(rubric, RubricQuestionResponse{
			QuestionNumber:  q.QuestionNumber,
			QuestionText:    q.QuestionText,
			ExpectedAnswer:  q.ExpectedAnswer,
			PointsAvailable: q.PointsAvailable,
		})
	}

	return ExamTemplateResponse{
		ID:          model.ID,
		Title:       model.Title,
		Subject:     model.Subject,
		TotalPoints: model.TotalPoints(),
		Rubric:      rubric,
		CreatedAt:   model.CreatedAt,
	}
}

// NewExamTemplateResponseSlice converts exam template models into DTOs.
func NewExamTemplateResponseSlice(templates []models.ExamTemplate) []ExamTemplateResponse {
	responses := make([]ExamTemplateResponse, 0, len(templates))
	for _, template := range templates {
		responses = append(responses, NewExamTemplateResponse(template))
	}

	return responses
}

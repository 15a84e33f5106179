package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/penmark-edu/penmark-api/internal/dto"
	"github.com/penmark-edu/penmark-api/internal/models"
	"github.com/penmark-edu/penmark-api/internal/repository"
)

// ErrExamTemplateNotFound indicates the exam template id is unknown.
var ErrExamTemplateNotFound = errors.New("exam template not found")

// RosterService manages students and exam templates.
type RosterService interface {
	ListStudents(ctx context.Context) ([]models.Student, error)
	CreateStudent(ctx context.Context, req dto.StudentCreateRequest) (models.Student, error)
	ListExamTemplates(ctx context.Context, teacherID string) ([]models.ExamTemplate, error)
	GetExamTemplate(ctx context.Context, id string) (models.ExamTemplate, error)
	CreateExamTemplate(ctx context.Context, teacherID string, req dto.ExamTemplateCreateRequest) (models.ExamTemplate, error)
}

type rosterService struct {
	students repository.StudentRepository
	exams    repository.ExamTemplateRepository
	logger   zerolog.Logger
}

// NewRosterService builds the roster service.
func NewRosterService(students repository.StudentRepository, exams repository.ExamTemplateRepository, logger zerolog.Logger) RosterService {
	return &rosterService{
		students: students,
		exams:    exams,
		logger:   logger.With().Str("component", "roster_service").Logger(),
	}
}

func (s *rosterService) ListStudents(ctx context.Context) ([]models.Student, error) {
	return s.students.List(ctx)
}

func (s *rosterService) CreateStudent(ctx context.Context, req dto.StudentCreateRequest) (models.Student, error) {
	student := models.Student{
		Name:      req.Name,
		Email:     req.Email,
		ClassName: req.ClassName,
	}

	if err := s.students.Create(ctx, &student); err != nil {
		return models.Student{}, err
	}

	s.logger.Info().Str("student_id", student.ID).Msg("student registered")
	return student, nil
}

func (s *rosterService) ListExamTemplates(ctx context.Context, teacherID string) ([]models.ExamTemplate, error) {
	return s.exams.List(ctx, teacherID)
}

func (s *rosterService) GetExamTemplate(ctx context.Context, id string) (models.ExamTemplate, error) {
	template, err := s.exams.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ExamTemplate{}, ErrExamTemplateNotFound
		}
		return models.ExamTemplate{}, err
	}

	return template, nil
}

func (s *rosterService) CreateExamTemplate(ctx context.Context, teacherID string, req dto.ExamTemplateCreateRequest) (models.ExamTemplate, error) {
	template := models.ExamTemplate{
		TeacherID: teacherID,
		Title:     req.Title,
		Subject:   req.Subject,
		Rubric:    make([]models.RubricQuestion, 0, len(req.Rubric)),
	}

	for _, q := range req.Rubric {
		template.Rubric = append(template.Rubric, models.RubricQuestion{
			QuestionNumber:  q.QuestionNumber,
			QuestionText:    q.QuestionText,
			ExpectedAnswer:  q.ExpectedAnswer,
			PointsAvailable: q.PointsAvailable,
		})
	}

	if err := s.exams.Create(ctx, &template); err != nil {
		return models.ExamTemplate{}, err
	}

	s.logger.Info().
		Str("exam_template_id", template.ID).
		Str("teacher_id", teacherID).
		Int("questions", len(template.Rubric)).
		Msg("exam template created")

	return template, nil
}

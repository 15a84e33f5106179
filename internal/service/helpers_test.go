package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/penmark-edu/penmark-api/internal/models"
	"github.com/penmark-edu/penmark-api/internal/repository"
	"github.com/penmark-edu/penmark-api/pkg/ai"
	"github.com/penmark-edu/penmark-api/pkg/gradeapi"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

type submissionRepoStub struct {
	records map[string]models.Submission
}

func newSubmissionRepoStub() *submissionRepoStub {
	return &submissionRepoStub{records: map[string]models.Submission{}}
}

func (s *submissionRepoStub) List(ctx context.Context, filter repository.SubmissionFilter) ([]models.Submission, error) {
	out := make([]models.Submission, 0, len(s.records))
	for _, record := range s.records {
		out = append(out, record)
	}
	return out, nil
}

func (s *submissionRepoStub) GetByID(ctx context.Context, id string) (models.Submission, error) {
	record, ok := s.records[id]
	if !ok {
		return models.Submission{}, gorm.ErrRecordNotFound
	}
	return record, nil
}

func (s *submissionRepoStub) Create(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	submission.CreatedAt = time.Now()
	s.records[submission.ID] = *submission
	return nil
}

func (s *submissionRepoStub) Update(ctx context.Context, submission *models.Submission) error {
	s.records[submission.ID] = *submission
	return nil
}

type gradingRepoStub struct {
	byID         map[string]models.GradingResult
	bySubmission map[string]string
}

func newGradingRepoStub() *gradingRepoStub {
	return &gradingRepoStub{
		byID:         map[string]models.GradingResult{},
		bySubmission: map[string]string{},
	}
}

func (g *gradingRepoStub) GetByID(ctx context.Context, id string) (models.GradingResult, error) {
	result, ok := g.byID[id]
	if !ok {
		return models.GradingResult{}, gorm.ErrRecordNotFound
	}
	return result, nil
}

func (g *gradingRepoStub) GetBySubmissionID(ctx context.Context, submissionID string) (models.GradingResult, error) {
	id, ok := g.bySubmission[submissionID]
	if !ok {
		return models.GradingResult{}, gorm.ErrRecordNotFound
	}
	return g.byID[id], nil
}

func (g *gradingRepoStub) ListPendingReviews(ctx context.Context, teacherID string) ([]models.GradingResult, error) {
	out := make([]models.GradingResult, 0)
	for _, result := range g.byID {
		if result.NeedsReview && result.ReviewedAt == nil {
			out = append(out, result)
		}
	}
	return out, nil
}

func (g *gradingRepoStub) Create(ctx context.Context, result *models.GradingResult) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	result.CreatedAt = time.Now()
	g.byID[result.ID] = *result
	g.bySubmission[result.SubmissionID] = result.ID
	return nil
}

func (g *gradingRepoStub) Update(ctx context.Context, result *models.GradingResult) error {
	g.byID[result.ID] = *result
	return nil
}

type examRepoStub struct {
	templates map[string]models.ExamTemplate
}

func newExamRepoStub() *examRepoStub {
	return &examRepoStub{templates: map[string]models.ExamTemplate{}}
}

func (e *examRepoStub) List(ctx context.Context, teacherID string) ([]models.ExamTemplate, error) {
	out := make([]models.ExamTemplate, 0, len(e.templates))
	for _, template := range e.templates {
		if teacherID == "" || template.TeacherID == teacherID {
			out = append(out, template)
		}
	}
	return out, nil
}

func (e *examRepoStub) GetByID(ctx context.Context, id string) (models.ExamTemplate, error) {
	template, ok := e.templates[id]
	if !ok {
		return models.ExamTemplate{}, gorm.ErrRecordNotFound
	}
	return template, nil
}

func (e *examRepoStub) Create(ctx context.Context, template *models.ExamTemplate) error {
	if template.ID == "" {
		template.ID = uuid.NewString()
	}
	for i := range template.Rubric {
		if template.Rubric[i].ID == "" {
			template.Rubric[i].ID = uuid.NewString()
		}
		template.Rubric[i].ExamTemplateID = template.ID
	}
	e.templates[template.ID] = *template
	return nil
}

type studentRepoStub struct {
	students map[string]models.Student
}

func newStudentRepoStub() *studentRepoStub {
	return &studentRepoStub{students: map[string]models.Student{}}
}

func (s *studentRepoStub) List(ctx context.Context) ([]models.Student, error) {
	out := make([]models.Student, 0, len(s.students))
	for _, student := range s.students {
		out = append(out, student)
	}
	return out, nil
}

func (s *studentRepoStub) GetByID(ctx context.Context, id string) (models.Student, error) {
	student, ok := s.students[id]
	if !ok {
		return models.Student{}, gorm.ErrRecordNotFound
	}
	return student, nil
}

func (s *studentRepoStub) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	s.students[student.ID] = *student
	return nil
}

type teacherRepoStub struct {
	teachers map[string]models.Teacher
	updates  int
}

func newTeacherRepoStub() *teacherRepoStub {
	return &teacherRepoStub{teachers: map[string]models.Teacher{}}
}

func (t *teacherRepoStub) GetByID(ctx context.Context, id string) (models.Teacher, error) {
	teacher, ok := t.teachers[id]
	if !ok {
		return models.Teacher{}, gorm.ErrRecordNotFound
	}
	return teacher, nil
}

func (t *teacherRepoStub) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	t.teachers[teacher.ID] = *teacher
	return nil
}

func (t *teacherRepoStub) UpdateThreshold(ctx context.Context, id string, threshold *float64) error {
	teacher := t.teachers[id]
	teacher.ID = id
	teacher.GradingThreshold = threshold
	t.teachers[id] = teacher
	t.updates++
	return nil
}

// graderStub returns canned grades keyed by question number.
type graderStub struct {
	grades map[int]ai.QuestionGrade
	err    error
	calls  int
}

func (g *graderStub) GradeQuestion(ctx context.Context, input ai.QuestionInput) (ai.QuestionGrade, error) {
	g.calls++
	if g.err != nil {
		return ai.QuestionGrade{}, g.err
	}
	grade, ok := g.grades[input.QuestionNumber]
	if !ok {
		grade = ai.QuestionGrade{PointsAwarded: input.PointsAvailable, Confidence: 0.95}
	}
	return grade, nil
}

// thresholdStub resolves a fixed threshold without touching storage.
type thresholdStub struct {
	threshold gradeapi.Threshold
}

func (t *thresholdStub) Get(ctx context.Context, teacherID string) (gradeapi.Threshold, error) {
	return t.threshold, nil
}

func (t *thresholdStub) Update(ctx context.Context, teacherID string, threshold *float64) (gradeapi.Threshold, error) {
	return t.threshold, nil
}

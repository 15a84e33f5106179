package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/penmark-edu/penmark-api/internal/models"
)

func TestSeedServiceTokenGuard(t *testing.T) {
	svc := NewSeedService(newStudentRepoStub(), newExamRepoStub(), true, "secret", testLogger())

	_, err := svc.SeedRoster(context.Background(), "wrong", []models.Student{{Name: "Maya Chen", Email: "maya@example.com"}})
	require.ErrorIs(t, err, ErrSeedUnauthorized)

	created, err := svc.SeedRoster(context.Background(), "secret", []models.Student{{Name: "Maya Chen", Email: "MAYA@Example.com "}})
	require.NoError(t, err)
	require.Equal(t, int64(1), created)
}

func TestSeedServiceDisabled(t *testing.T) {
	svc := NewSeedService(newStudentRepoStub(), newExamRepoStub(), false, "secret", testLogger())

	_, err := svc.SeedRoster(context.Background(), "secret", nil)
	require.ErrorIs(t, err, ErrSeedDisabled)
}

func TestSeedServiceSkipsIncompleteStudents(t *testing.T) {
	students := newStudentRepoStub()
	svc := NewSeedService(students, newExamRepoStub(), true, "secret", testLogger())

	created, err := svc.SeedRoster(context.Background(), "secret", []models.Student{
		{Name: "Maya Chen", Email: "maya@example.com"},
		{Name: "", Email: "nameless@example.com"},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), created)
	require.Len(t, students.students, 1)
}

func TestSeedExamTemplatesAssignsQuestionNumbers(t *testing.T) {
	exams := newExamRepoStub()
	svc := NewSeedService(newStudentRepoStub(), exams, true, "secret", testLogger())

	created, err := svc.SeedExamTemplates(context.Background(), "secret", "teacher-1", []models.ExamTemplate{
		{
			Title: "Algebra Midterm",
			Rubric: []models.RubricQuestion{
				{ExpectedAnswer: "x = 4", PointsAvailable: 10},
				{ExpectedAnswer: "y = 2", PointsAvailable: 10},
			},
		},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), created)

	templates, err := exams.List(context.Background(), "teacher-1")
	require.NoError(t, err)
	require.Len(t, templates, 1)
	require.Equal(t, 1, templates[0].Rubric[0].QuestionNumber)
	require.Equal(t, 2, templates[0].Rubric[1].QuestionNumber)
}

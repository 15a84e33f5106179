package ai

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseQuestionGrade(t *testing.T) {
	grade, err := parseQuestionGrade(`{"pointsAwarded":7.5,"confidence":0.88,"illegible":false,"feedback":"Correct method, arithmetic slip at the end."}`, 10)
	require.NoError(t, err)
	require.Equal(t, 7.5, grade.PointsAwarded)
	require.Equal(t, 0.88, grade.Confidence)
	require.False(t, grade.Illegible)
	require.NotEmpty(t, grade.Feedback)
}

func TestParseQuestionGradeClampsToRubric(t *testing.T) {
	grade, err := parseQuestionGrade(`{"pointsAwarded":14,"confidence":1.7}`, 10)
	require.NoError(t, err)
	require.Equal(t, 10.0, grade.PointsAwarded)
	require.Equal(t, 1.0, grade.Confidence)

	grade, err = parseQuestionGrade(`{"pointsAwarded":-3,"confidence":-0.5}`, 10)
	require.NoError(t, err)
	require.Equal(t, 0.0, grade.PointsAwarded)
	require.Equal(t, 0.0, grade.Confidence)
}

func TestParseQuestionGradeIllegibleZeroesPoints(t *testing.T) {
	grade, err := parseQuestionGrade(`{"pointsAwarded":5,"confidence":0.2,"illegible":true}`, 10)
	require.NoError(t, err)
	require.True(t, grade.Illegible)
	require.Equal(t, 0.0, grade.PointsAwarded)
}

func TestParseQuestionGradeRejectsNonJSON(t *testing.T) {
	_, err := parseQuestionGrade("I could not read the page", 10)
	require.Error(t, err)
}

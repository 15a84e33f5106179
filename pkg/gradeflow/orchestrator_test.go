package gradeflow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/penmark-edu/penmark-api/pkg/gradeapi"
)

type graderStub struct {
	mu      sync.Mutex
	calls   int
	result  gradeapi.GradingResult
	err     error
	started chan struct{}
	release chan struct{}
}

func (g *graderStub) TriggerGrading(ctx context.Context, submissionID string) (gradeapi.GradingResult, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()

	if g.started != nil {
		close(g.started)
		g.started = nil
	}
	if g.release != nil {
		<-g.release
	}

	return g.result, g.err
}

func (g *graderStub) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func TestTriggerSuccessParsesQuestions(t *testing.T) {
	grader := &graderStub{result: gradeapi.GradingResult{
		GradeID:         "grade-1",
		SubmissionID:    "sub-1",
		Status:          gradeapi.StatusCompleted,
		AIScore:         85,
		ConfidenceScore: 92,
		QuestionScores:  `[{"questionNumber":1,"pointsAwarded":8.5,"pointsAvailable":10,"confidenceScore":92},{"questionNumber":2,"pointsAwarded":8.5,"pointsAvailable":10,"confidenceScore":92}]`,
	}}
	o := NewOrchestrator(grader, zerolog.Nop())

	require.NoError(t, o.Trigger(context.Background(), "sub-1"))

	state := o.State()
	require.Equal(t, PhaseSuccess, state.Phase)
	require.Equal(t, "grade-1", state.Result.GradeID)
	require.Len(t, state.Questions, 2)
}

func TestTriggerTransportErrorSetsErrorPhase(t *testing.T) {
	grader := &graderStub{err: errors.New("Grading failed. Please try again.")}
	o := NewOrchestrator(grader, zerolog.Nop())

	require.NoError(t, o.Trigger(context.Background(), "sub-1"))

	state := o.State()
	require.Equal(t, PhaseError, state.Phase)
	require.Equal(t, "Grading failed. Please try again.", state.Message)
	require.Empty(t, state.Result.GradeID)
}

func TestTriggerMalformedQuestionScoresDegradesToEmpty(t *testing.T) {
	grader := &graderStub{result: gradeapi.GradingResult{
		GradeID:        "grade-1",
		Status:         gradeapi.StatusCompleted,
		AIScore:        70,
		QuestionScores: "not-json",
	}}
	o := NewOrchestrator(grader, zerolog.Nop())

	require.NoError(t, o.Trigger(context.Background(), "sub-1"))

	state := o.State()
	require.Equal(t, PhaseSuccess, state.Phase)
	require.Equal(t, 70.0, state.Result.AIScore)
	require.Empty(t, state.Questions)
}

func TestTriggerSingleFlight(t *testing.T) {
	grader := &graderStub{
		started: make(chan struct{}),
		release: make(chan struct{}),
		result:  gradeapi.GradingResult{GradeID: "grade-1", QuestionScores: "[]"},
	}
	o := NewOrchestrator(grader, zerolog.Nop())

	started := grader.started
	done := make(chan error, 1)
	go func() {
		done <- o.Trigger(context.Background(), "sub-1")
	}()

	<-started
	require.ErrorIs(t, o.Trigger(context.Background(), "sub-1"), ErrGradingInFlight)

	close(grader.release)
	require.NoError(t, <-done)
	require.Equal(t, 1, grader.callCount())
	require.Equal(t, PhaseSuccess, o.State().Phase)
}

func TestResetFromTerminalPhases(t *testing.T) {
	grader := &graderStub{result: gradeapi.GradingResult{GradeID: "grade-1", QuestionScores: "[]"}}
	o := NewOrchestrator(grader, zerolog.Nop())

	require.NoError(t, o.Trigger(context.Background(), "sub-1"))
	require.Equal(t, PhaseSuccess, o.State().Phase)

	o.Reset()
	require.Equal(t, PhaseIdle, o.State().Phase)
}

package gradeflow

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/penmark-edu/penmark-api/pkg/gradeapi"
)

// Phase is the grading attempt lifecycle.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseSuccess Phase = "success"
	PhaseError   Phase = "error"
)

// ErrGradingInFlight indicates Trigger was called while a grading request
// was already outstanding.
var ErrGradingInFlight = errors.New("grading already in progress")

// GradingTrigger starts AI grading for a submission.
type GradingTrigger interface {
	TriggerGrading(ctx context.Context, submissionID string) (gradeapi.GradingResult, error)
}

// OrchestratorState is a snapshot of the phase machine. Result and Questions
// are set in PhaseSuccess; Message is set in PhaseError.
type OrchestratorState struct {
	Phase     Phase
	Result    gradeapi.GradingResult
	Questions []gradeapi.QuestionScore
	Message   string
}

// Orchestrator drives one grading attempt at a time through
// idle -> loading -> success|error. Trigger is single-flight: a second call
// while loading is rejected locally, no network call issued.
type Orchestrator struct {
	mu      sync.Mutex
	state   OrchestratorState
	grading GradingTrigger
	logger  zerolog.Logger
}

// NewOrchestrator constructs an idle orchestrator.
func NewOrchestrator(grading GradingTrigger, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		state:   OrchestratorState{Phase: PhaseIdle},
		grading: grading,
		logger:  logger.With().Str("component", "grading_orchestrator").Logger(),
	}
}

// Trigger grades the submission. On success the state carries both the raw
// result and its parsed question scores; malformed questionScores degrade to
// an empty slice without failing the attempt.
func (o *Orchestrator) Trigger(ctx context.Context, submissionID string) error {
	o.mu.Lock()
	if o.state.Phase == PhaseLoading {
		o.mu.Unlock()
		return ErrGradingInFlight
	}
	o.state = OrchestratorState{Phase: PhaseLoading}
	o.mu.Unlock()

	result, err := o.grading.TriggerGrading(ctx, submissionID)

	o.mu.Lock()
	defer o.mu.Unlock()

	if err != nil {
		message := strings.TrimSpace(err.Error())
		if message == "" {
			message = "Grading failed. Please try again."
		}
		o.state = OrchestratorState{Phase: PhaseError, Message: message}
		o.logger.Warn().Str("submission_id", submissionID).Str("error", message).Msg("grading failed")
		return nil
	}

	questions, decodeErr := gradeapi.DecodeQuestionScores(result.QuestionScores)
	if decodeErr != nil {
		// Corrupt payloads degrade to an empty breakdown; the overall
		// result is still usable.
		o.logger.Warn().Str("submission_id", submissionID).Msg("malformed question scores in grading result")
		questions = nil
	}

	o.state = OrchestratorState{Phase: PhaseSuccess, Result: result, Questions: questions}
	o.logger.Info().
		Str("submission_id", submissionID).
		Float64("ai_score", result.AIScore).
		Bool("needs_review", result.NeedsReview).
		Msg("grading complete")
	return nil
}

// Reset returns a finished attempt to idle. Resetting while loading is
// ignored to keep the single-flight gate intact.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state.Phase == PhaseLoading {
		return
	}
	o.state = OrchestratorState{Phase: PhaseIdle}
}

// State returns a snapshot of the current phase.
func (o *Orchestrator) State() OrchestratorState {
	o.mu.Lock()
	defer o.mu.Unlock()

	snapshot := o.state
	snapshot.Questions = append([]gradeapi.QuestionScore(nil), o.state.Questions...)
	return snapshot
}

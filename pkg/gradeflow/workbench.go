package gradeflow

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/penmark-edu/penmark-api/pkg/gradeapi"
	"github.com/penmark-edu/penmark-api/pkg/score"
)

// ReviewState is the workbench lifecycle for one flagged result.
type ReviewState string

const (
	ReviewEditing    ReviewState = "editing"
	ReviewSubmitting ReviewState = "submitting"
	ReviewDone       ReviewState = "reviewed"
)

var (
	// ErrReviewInFlight indicates a decision is already being submitted.
	ErrReviewInFlight = errors.New("review submission already in progress")
	// ErrAlreadyReviewed indicates the result was finalized and cannot be
	// edited or re-submitted.
	ErrAlreadyReviewed = errors.New("grade already reviewed")
	// ErrUnknownQuestion indicates an adjustment for a question number the
	// result does not contain.
	ErrUnknownQuestion = errors.New("question not present in grading result")
)

// ReviewSubmitter finalizes a review decision for a grade.
type ReviewSubmitter interface {
	SubmitReview(ctx context.Context, gradeID string, decision gradeapi.ReviewDecision) (gradeapi.GradingResult, error)
}

// Workbench holds one flagged grading result while the teacher approves it
// as-is or adjusts per-question points. Submission is single-flight and a
// finalized workbench is non-re-openable.
type Workbench struct {
	mu          sync.Mutex
	result      gradeapi.GradingResult
	questions   []gradeapi.QuestionScore
	adjustments map[int]float64
	state       ReviewState
	lastError   string
	submitter   ReviewSubmitter
	logger      zerolog.Logger
}

// NewWorkbench opens a workbench for the given result. The adjustment map is
// seeded from each question's AI-awarded points; a malformed questionScores
// payload degrades to an empty breakdown.
func NewWorkbench(result gradeapi.GradingResult, submitter ReviewSubmitter, logger zerolog.Logger) *Workbench {
	questions, err := gradeapi.DecodeQuestionScores(result.QuestionScores)
	if err != nil {
		logger.Warn().Str("grade_id", result.GradeID).Msg("malformed question scores in review item")
		questions = nil
	}

	adjustments := make(map[int]float64, len(questions))
	for _, q := range questions {
		adjustments[q.QuestionNumber] = q.PointsAwarded
	}

	return &Workbench{
		result:      result,
		questions:   questions,
		adjustments: adjustments,
		state:       ReviewEditing,
		submitter:   submitter,
		logger:      logger.With().Str("component", "review_workbench").Str("grade_id", result.GradeID).Logger(),
	}
}

// Adjust stores a teacher-adjusted point value for a question, clamped into
// [0, pointsAvailable] at 0.5 granularity.
func (w *Workbench) Adjust(questionNumber int, points float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state {
	case ReviewSubmitting:
		return ErrReviewInFlight
	case ReviewDone:
		return ErrAlreadyReviewed
	}

	for _, q := range w.questions {
		if q.QuestionNumber == questionNumber {
			w.adjustments[questionNumber] = score.ClampPoints(points, q.PointsAvailable)
			return nil
		}
	}

	return ErrUnknownQuestion
}

// Approve accepts the AI grade unchanged: the submitted decision carries the
// original AI score, no teacher override, and no question scores, regardless
// of any unsaved local adjustments.
func (w *Workbench) Approve(ctx context.Context) (gradeapi.GradingResult, error) {
	decision := gradeapi.ReviewDecision{
		FinalScore:      w.result.AIScore,
		TeacherOverride: false,
	}
	return w.submit(ctx, decision)
}

// SaveAdjustments submits the teacher's per-question points. The final score
// is the adjusted percentage computed by the shared aggregator.
func (w *Workbench) SaveAdjustments(ctx context.Context) (gradeapi.GradingResult, error) {
	w.mu.Lock()
	totals := score.Aggregate(w.questions, w.adjustments)

	updated := make([]gradeapi.QuestionScore, len(w.questions))
	for i, q := range w.questions {
		if points, ok := w.adjustments[q.QuestionNumber]; ok {
			q.PointsAwarded = points
		}
		updated[i] = q
	}
	w.mu.Unlock()

	finalScore := 0.0
	if totals.Percentage != nil {
		finalScore = *totals.Percentage
	}

	encoded, err := gradeapi.EncodeQuestionScores(updated)
	if err != nil {
		return gradeapi.GradingResult{}, err
	}

	decision := gradeapi.ReviewDecision{
		FinalScore:      finalScore,
		TeacherOverride: true,
		QuestionScores:  &encoded,
	}
	return w.submit(ctx, decision)
}

func (w *Workbench) submit(ctx context.Context, decision gradeapi.ReviewDecision) (gradeapi.GradingResult, error) {
	w.mu.Lock()
	switch w.state {
	case ReviewSubmitting:
		w.mu.Unlock()
		return gradeapi.GradingResult{}, ErrReviewInFlight
	case ReviewDone:
		w.mu.Unlock()
		return gradeapi.GradingResult{}, ErrAlreadyReviewed
	}
	w.state = ReviewSubmitting
	w.lastError = ""
	gradeID := w.result.GradeID
	w.mu.Unlock()

	updated, err := w.submitter.SubmitReview(ctx, gradeID, decision)

	w.mu.Lock()
	defer w.mu.Unlock()

	if err != nil {
		// The workbench stays editable with adjustments intact; no partial
		// reviewed state is ever exposed.
		w.state = ReviewEditing
		w.lastError = strings.TrimSpace(err.Error())
		if w.lastError == "" {
			w.lastError = "Failed to save review. Please try again."
		}
		w.logger.Warn().Str("error", w.lastError).Msg("review submission failed")
		return gradeapi.GradingResult{}, err
	}

	w.state = ReviewDone
	w.result = updated
	w.logger.Info().Bool("teacher_override", decision.TeacherOverride).Float64("final_score", decision.FinalScore).Msg("review finalized")
	return updated, nil
}

// State reports the workbench lifecycle state.
func (w *Workbench) State() ReviewState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// LastError returns the inline error from the most recent failed submission.
func (w *Workbench) LastError() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastError
}

// Questions returns the parsed question breakdown.
func (w *Workbench) Questions() []gradeapi.QuestionScore {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]gradeapi.QuestionScore(nil), w.questions...)
}

// Adjustments returns a copy of the current adjustment map.
func (w *Workbench) Adjustments() map[int]float64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	copied := make(map[int]float64, len(w.adjustments))
	for k, v := range w.adjustments {
		copied[k] = v
	}
	return copied
}

// Totals aggregates the current adjustments with the shared score package.
func (w *Workbench) Totals() score.Totals {
	w.mu.Lock()
	defer w.mu.Unlock()
	return score.Aggregate(w.questions, w.adjustments)
}

// Result returns the grading result the workbench currently holds; after a
// successful submission this is the server's finalized copy.
func (w *Workbench) Result() gradeapi.GradingResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.result
}

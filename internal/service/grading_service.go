package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/penmark-edu/penmark-api/internal/models"
	"github.com/penmark-edu/penmark-api/internal/observability"
	"github.com/penmark-edu/penmark-api/internal/repository"
	"github.com/penmark-edu/penmark-api/pkg/ai"
	"github.com/penmark-edu/penmark-api/pkg/gradeapi"
)

var (
	// ErrSubmissionNotFound indicates the submission id is unknown.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrEmptyRubric indicates the exam template has no questions to grade.
	ErrEmptyRubric = errors.New("exam template has no rubric questions")
)

// GradingService runs the AI grading pipeline over stored submissions.
type GradingService interface {
	Grade(ctx context.Context, submissionID string) (models.GradingResult, error)
	GetBySubmission(ctx context.Context, submissionID string) (models.GradingResult, error)
}

type gradingService struct {
	submissions repository.SubmissionRepository
	gradings    repository.GradingRepository
	thresholds  ThresholdService
	grader      ai.Grader
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewGradingService builds the grading pipeline.
func NewGradingService(submissions repository.SubmissionRepository, gradings repository.GradingRepository, thresholds ThresholdService, grader ai.Grader, logger zerolog.Logger) GradingService {
	return &gradingService{
		submissions: submissions,
		gradings:    gradings,
		thresholds:  thresholds,
		grader:      grader,
		logger:      logger.With().Str("component", "grading_service").Logger(),
		tracer:      otel.Tracer("github.com/penmark-edu/penmark-api/internal/service/grading"),
		now:         time.Now,
	}
}

// Grade runs the rubric for a submission through the AI grader and persists
// one GradingResult. Re-triggering a graded submission returns the stored
// result untouched, so retried requests never double-grade.
func (s *gradingService) Grade(ctx context.Context, submissionID string) (models.GradingResult, error) {
	ctx, span := s.tracer.Start(ctx, "grading.run")
	defer span.End()
	span.SetAttributes(attribute.String("grading.submission_id", submissionID))

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "submission not found")
			return models.GradingResult{}, ErrSubmissionNotFound
		}
		return models.GradingResult{}, err
	}

	if existing, err := s.gradings.GetBySubmissionID(ctx, submissionID); err == nil {
		s.logger.Debug().Str("submission_id", submissionID).Msg("submission already graded")
		span.SetStatus(codes.Ok, "already graded")
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.GradingResult{}, err
	}

	if len(submission.ExamTemplate.Rubric) == 0 {
		span.SetStatus(codes.Error, "empty rubric")
		return models.GradingResult{}, ErrEmptyRubric
	}

	threshold, err := s.thresholds.Get(ctx, submission.TeacherID)
	if err != nil {
		return models.GradingResult{}, err
	}

	submission.Status = models.SubmissionStatusProcessing
	if err := s.submissions.Update(ctx, &submission); err != nil {
		return models.GradingResult{}, err
	}

	start := s.now()
	scores, feedback, gradeErr := s.gradeRubric(ctx, submission)
	elapsed := s.now().Sub(start)
	observability.GradingLatency().Observe(elapsed.Seconds())

	if gradeErr != nil {
		span.RecordError(gradeErr)
		span.SetStatus(codes.Error, "grading failed")
		return s.persistFailure(ctx, submission, elapsed, gradeErr)
	}

	result := buildGradingResult(submission.ID, scores, feedback, threshold.EffectiveThreshold)
	result.ProcessingTimeMs = int(elapsed.Milliseconds())

	if err := s.gradings.Create(ctx, &result); err != nil {
		return models.GradingResult{}, err
	}

	submission.Status = models.SubmissionStatusCompleted
	if err := s.submissions.Update(ctx, &submission); err != nil {
		return models.GradingResult{}, err
	}

	observability.GradingRuns().WithLabelValues("success").Inc()
	if result.NeedsReview {
		observability.GradingFlagged().Inc()
	}

	span.SetStatus(codes.Ok, "graded")
	s.logger.Info().
		Str("submission_id", submission.ID).
		Float64("ai_score", result.AIScore).
		Float64("confidence", result.ConfidenceScore).
		Bool("needs_review", result.NeedsReview).
		Dur("elapsed", elapsed).
		Msg("submission graded")

	result.Submission = submission
	return result, nil
}

func (s *gradingService) GetBySubmission(ctx context.Context, submissionID string) (models.GradingResult, error) {
	result, err := s.gradings.GetBySubmissionID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.GradingResult{}, ErrSubmissionNotFound
		}
		return models.GradingResult{}, err
	}
	return result, nil
}

// gradeRubric grades every rubric question against the submission image in
// question order. Confidence stays on the model's 0-1 scale here; scaling to
// 0-100 happens once, in buildGradingResult.
func (s *gradingService) gradeRubric(ctx context.Context, submission models.Submission) ([]gradeapi.QuestionScore, []string, error) {
	rubric := submission.ExamTemplate.Rubric
	scores := make([]gradeapi.QuestionScore, 0, len(rubric))
	feedback := make([]string, 0, len(rubric))

	for _, question := range rubric {
		grade, err := s.grader.GradeQuestion(ctx, ai.QuestionInput{
			ImageURL:        submission.FileURL,
			QuestionNumber:  question.QuestionNumber,
			QuestionText:    question.QuestionText,
			ExpectedAnswer:  question.ExpectedAnswer,
			PointsAvailable: question.PointsAvailable,
			Subject:         submission.ExamTemplate.Subject,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("grade question %d: %w", question.QuestionNumber, err)
		}

		scores = append(scores, gradeapi.QuestionScore{
			QuestionNumber:  question.QuestionNumber,
			PointsAwarded:   grade.PointsAwarded,
			PointsAvailable: question.PointsAvailable,
			ConfidenceScore: grade.Confidence,
			Illegible:       grade.Illegible,
			Feedback:        grade.Feedback,
		})
		if grade.Feedback != "" {
			feedback = append(feedback, fmt.Sprintf("Q%d: %s", question.QuestionNumber, grade.Feedback))
		}
	}

	return scores, feedback, nil
}

// buildGradingResult folds per-question grades into one result. A question
// flags the submission for review when its confidence falls below the
// effective threshold or the handwriting was illegible.
func buildGradingResult(submissionID string, scores []gradeapi.QuestionScore, feedback []string, effectiveThreshold float64) models.GradingResult {
	var awarded, available, confidenceSum float64
	needsReview := false

	for i, q := range scores {
		awarded += q.PointsAwarded
		available += q.PointsAvailable
		confidenceSum += q.ConfidenceScore
		if q.ConfidenceScore < effectiveThreshold || q.Illegible {
			needsReview = true
		}
		scores[i].ConfidenceScore = round2(q.ConfidenceScore * 100)
	}

	aiScore := 0.0
	if available > 0 {
		aiScore = round2(100 * awarded / available)
	}
	confidence := 0.0
	if len(scores) > 0 {
		confidence = round2(100 * confidenceSum / float64(len(scores)))
	}

	encoded, err := gradeapi.EncodeQuestionScores(scores)
	if err != nil {
		encoded = "[]"
	}

	return models.GradingResult{
		SubmissionID:    submissionID,
		Status:          models.SubmissionStatusCompleted,
		AIScore:         aiScore,
		FinalScore:      aiScore,
		ConfidenceScore: confidence,
		NeedsReview:     needsReview,
		QuestionScores:  encoded,
		AIFeedback:      strings.Join(feedback, "\n"),
	}
}

// persistFailure records a FAILED result so the submission is never stuck in
// PROCESSING. Failed runs always land in the review queue.
func (s *gradingService) persistFailure(ctx context.Context, submission models.Submission, elapsed time.Duration, cause error) (models.GradingResult, error) {
	observability.GradingRuns().WithLabelValues("failure").Inc()
	observability.GradingFlagged().Inc()

	result := models.GradingResult{
		SubmissionID:     submission.ID,
		Status:           models.SubmissionStatusFailed,
		NeedsReview:      true,
		QuestionScores:   "[]",
		AIFeedback:       "Automatic grading failed; manual review required.",
		ProcessingTimeMs: int(elapsed.Milliseconds()),
	}

	if err := s.gradings.Create(ctx, &result); err != nil {
		return models.GradingResult{}, err
	}

	submission.Status = models.SubmissionStatusFailed
	if err := s.submissions.Update(ctx, &submission); err != nil {
		return models.GradingResult{}, err
	}

	s.logger.Error().
		Err(cause).
		Str("submission_id", submission.ID).
		Msg("grading run failed")

	result.Submission = submission
	return result, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

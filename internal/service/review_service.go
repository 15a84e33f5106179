package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/penmark-edu/penmark-api/internal/dto"
	"github.com/penmark-edu/penmark-api/internal/models"
	"github.com/penmark-edu/penmark-api/internal/observability"
	"github.com/penmark-edu/penmark-api/internal/repository"
	"github.com/penmark-edu/penmark-api/pkg/gradeapi"
	"github.com/penmark-edu/penmark-api/pkg/score"
)

var (
	// ErrGradingNotFound indicates the grading result id is unknown.
	ErrGradingNotFound = errors.New("grading result not found")
	// ErrAlreadyReviewed indicates a teacher has already finalized the result.
	ErrAlreadyReviewed = errors.New("grading result already reviewed")
)

// ReviewService manages the teacher review queue for flagged results.
type ReviewService interface {
	ListPending(ctx context.Context, teacherID string) ([]models.GradingResult, error)
	SubmitReview(ctx context.Context, gradeID, teacherID string, req dto.ReviewRequest) (models.GradingResult, error)
}

type reviewService struct {
	gradings repository.GradingRepository
	logger   zerolog.Logger
	now      func() time.Time
}

// NewReviewService builds the review queue service.
func NewReviewService(gradings repository.GradingRepository, logger zerolog.Logger) ReviewService {
	return &reviewService{
		gradings: gradings,
		logger:   logger.With().Str("component", "review_service").Logger(),
		now:      time.Now,
	}
}

func (s *reviewService) ListPending(ctx context.Context, teacherID string) ([]models.GradingResult, error) {
	return s.gradings.ListPendingReviews(ctx, teacherID)
}

// SubmitReview finalizes a flagged result. Review fields are the only ones
// that change; the AI's original score and feedback stay on record. A result
// can be reviewed exactly once.
func (s *reviewService) SubmitReview(ctx context.Context, gradeID, teacherID string, req dto.ReviewRequest) (models.GradingResult, error) {
	result, err := s.gradings.GetByID(ctx, gradeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.GradingResult{}, ErrGradingNotFound
		}
		return models.GradingResult{}, err
	}

	if result.IsReviewed() {
		return models.GradingResult{}, ErrAlreadyReviewed
	}

	if req.QuestionScores != nil {
		adjusted, err := gradeapi.DecodeQuestionScores(*req.QuestionScores)
		if err != nil {
			return models.GradingResult{}, err
		}

		encoded, err := gradeapi.EncodeQuestionScores(adjusted)
		if err != nil {
			return models.GradingResult{}, err
		}
		result.QuestionScores = encoded

		// The client computes finalScore from its adjustments; recompute
		// server-side and flag drift rather than silently trusting it.
		totals := score.Aggregate(adjusted, nil)
		if totals.Percentage != nil && math.Abs(*totals.Percentage-req.FinalScore) > 0.01 {
			s.logger.Warn().
				Str("grade_id", gradeID).
				Float64("submitted", req.FinalScore).
				Float64("recomputed", *totals.Percentage).
				Msg("submitted final score drifts from adjusted question scores")
		}
	}

	reviewedAt := s.now()
	result.FinalScore = req.FinalScore
	result.TeacherOverride = req.TeacherOverride
	result.NeedsReview = false
	result.ReviewedBy = &teacherID
	result.ReviewedAt = &reviewedAt

	if err := s.gradings.Update(ctx, &result); err != nil {
		return models.GradingResult{}, err
	}

	kind := "approved"
	if req.TeacherOverride {
		kind = "override"
	}
	observability.ReviewsCompleted().WithLabelValues(kind).Inc()

	s.logger.Info().
		Str("grade_id", gradeID).
		Str("teacher_id", teacherID).
		Float64("final_score", result.FinalScore).
		Bool("teacher_override", result.TeacherOverride).
		Msg("review submitted")

	return result, nil
}

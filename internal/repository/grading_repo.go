package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/penmark-edu/penmark-api/internal/models"
)

// GradingRepository defines data operations for grading results.
type GradingRepository interface {
	GetByID(ctx context.Context, id string) (models.GradingResult, error)
	GetBySubmissionID(ctx context.Context, submissionID string) (models.GradingResult, error)
	ListPendingReviews(ctx context.Context, teacherID string) ([]models.GradingResult, error)
	Create(ctx context.Context, result *models.GradingResult) error
	Update(ctx context.Context, result *models.GradingResult) error
}

type gradingRepository struct {
	db *gorm.DB
}

// NewGradingRepository instantiates the repository.
func NewGradingRepository(db *gorm.DB) GradingRepository {
	return &gradingRepository{db: db}
}

func (r *gradingRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.GradingResult{}).
		Preload("Submission").
		Preload("Submission.Student")
}

func (r *gradingRepository) GetByID(ctx context.Context, id string) (models.GradingResult, error) {
	var result models.GradingResult
	if err := r.baseQuery(ctx).First(&result, "grading_results.id = ?", id).Error; err != nil {
		return models.GradingResult{}, err
	}

	return result, nil
}

func (r *gradingRepository) GetBySubmissionID(ctx context.Context, submissionID string) (models.GradingResult, error) {
	var result models.GradingResult
	if err := r.baseQuery(ctx).
		Where("submission_id = ?", submissionID).
		First(&result).Error; err != nil {
		return models.GradingResult{}, err
	}

	return result, nil
}

// ListPendingReviews returns results flagged for review that no teacher has
// finalized, oldest first so the review queue is stable.
func (r *gradingRepository) ListPendingReviews(ctx context.Context, teacherID string) ([]models.GradingResult, error) {
	query := r.baseQuery(ctx).
		Where("needs_review = ?", true).
		Where("reviewed_at IS NULL")

	if teacherID != "" {
		query = query.
			Joins("JOIN submissions ON submissions.id = grading_results.submission_id").
			Where("submissions.teacher_id = ?", teacherID)
	}

	var results []models.GradingResult
	if err := query.Order("grading_results.created_at ASC").Find(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}

func (r *gradingRepository) Create(ctx context.Context, result *models.GradingResult) error {
	return r.db.WithContext(ctx).Create(result).Error
}

func (r *gradingRepository) Update(ctx context.Context, result *models.GradingResult) error {
	return r.db.WithContext(ctx).Save(result).Error
}

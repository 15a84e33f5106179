package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/penmark-edu/penmark-api/internal/models"
)

// ExamTemplateRepository defines data operations for exam templates and
// their rubrics.
type ExamTemplateRepository interface {
	List(ctx context.Context, teacherID string) ([]models.ExamTemplate, error)
	GetByID(ctx context.Context, id string) (models.ExamTemplate, error)
	Create(ctx context.Context, template *models.ExamTemplate) error
}

type examTemplateRepository struct {
	db *gorm.DB
}

// NewExamTemplateRepository instantiates the repository.
func NewExamTemplateRepository(db *gorm.DB) ExamTemplateRepository {
	return &examTemplateRepository{db: db}
}

func (r *examTemplateRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.ExamTemplate{}).
		Preload("Rubric", func(db *gorm.DB) *gorm.DB {
			return db.Order("question_number ASC")
		})
}

func (r *examTemplateRepository) List(ctx context.Context, teacherID string) ([]models.ExamTemplate, error) {
	query := r.baseQuery(ctx)
	if teacherID != "" {
		query = query.Where("teacher_id = ?", teacherID)
	}

	var templates []models.ExamTemplate
	if err := query.Order("created_at DESC").Find(&templates).Error; err != nil {
		return nil, err
	}

	return templates, nil
}

func (r *examTemplateRepository) GetByID(ctx context.Context, id string) (models.ExamTemplate, error) {
	var template models.ExamTemplate
	if err := r.baseQuery(ctx).First(&template, "exam_templates.id = ?", id).Error; err != nil {
		return models.ExamTemplate{}, err
	}

	return template, nil
}

func (r *examTemplateRepository) Create(ctx context.Context, template *models.ExamTemplate) error {
	return r.db.WithContext(ctx).Create(template).Error
}

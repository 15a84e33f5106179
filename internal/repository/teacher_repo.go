package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/penmark-edu/penmark-api/internal/models"
)

// TeacherRepository defines data operations for teachers.
type TeacherRepository interface {
	GetByID(ctx context.Context, id string) (models.Teacher, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	UpdateThreshold(ctx context.Context, id string, threshold *float64) error
}

type teacherRepository struct {
	db *gorm.DB
}

// NewTeacherRepository instantiates the repository.
func NewTeacherRepository(db *gorm.DB) TeacherRepository {
	return &teacherRepository{db: db}
}

func (r *teacherRepository) GetByID(ctx context.Context, id string) (models.Teacher, error) {
	var teacher models.Teacher
	if err := r.db.WithContext(ctx).First(&teacher, "id = ?", id).Error; err != nil {
		return models.Teacher{}, err
	}

	return teacher, nil
}

func (r *teacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	return r.db.WithContext(ctx).Create(teacher).Error
}

// UpdateThreshold sets or clears the per-teacher review threshold.
func (r *teacherRepository) UpdateThreshold(ctx context.Context, id string, threshold *float64) error {
	return r.db.WithContext(ctx).
		Model(&models.Teacher{}).
		Where("id = ?", id).
		Update("grading_threshold", threshold).Error
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/penmark-edu/penmark-api/internal/models"
	"github.com/penmark-edu/penmark-api/internal/repository"
	"github.com/penmark-edu/penmark-api/pkg/gradeapi"
)

// DefaultGradingThreshold applies when a teacher has not set an override.
const DefaultGradingThreshold = 0.80

// ErrThresholdOutOfRange indicates a threshold outside [0,1].
var ErrThresholdOutOfRange = errors.New("threshold must be between 0 and 1")

// ThresholdService resolves and updates per-teacher review thresholds.
type ThresholdService interface {
	Get(ctx context.Context, teacherID string) (gradeapi.Threshold, error)
	Update(ctx context.Context, teacherID string, threshold *float64) (gradeapi.Threshold, error)
}

type thresholdService struct {
	teachers repository.TeacherRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
}

// NewThresholdService builds the threshold resolver.
func NewThresholdService(teachers repository.TeacherRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) ThresholdService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &thresholdService{
		teachers: teachers,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "threshold_service").Logger(),
	}
}

func thresholdCacheKey(teacherID string) string {
	return fmt.Sprintf("threshold:teacher:%s", teacherID)
}

// Get returns the effective threshold for a teacher. Teachers without a
// stored profile get the default; the resolved value is cached so the
// grading hot path does not hit the database per question.
func (s *thresholdService) Get(ctx context.Context, teacherID string) (gradeapi.Threshold, error) {
	cacheKey := thresholdCacheKey(teacherID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var threshold gradeapi.Threshold
			if unmarshalErr := json.Unmarshal([]byte(cached), &threshold); unmarshalErr == nil {
				s.logger.Debug().Str("teacher_id", teacherID).Msg("threshold cache hit")
				return threshold, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read threshold cache")
		}
	}

	threshold := gradeapi.Threshold{
		EffectiveThreshold: DefaultGradingThreshold,
		Source:             gradeapi.ThresholdSourceDefault,
	}

	teacher, err := s.teachers.GetByID(ctx, teacherID)
	switch {
	case err == nil:
		if teacher.GradingThreshold != nil {
			threshold.EffectiveThreshold = *teacher.GradingThreshold
			threshold.Source = gradeapi.ThresholdSourceTeacherOverride
			threshold.TeacherThreshold = teacher.GradingThreshold
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// No profile row yet: the default applies.
	default:
		return gradeapi.Threshold{}, err
	}

	if s.cache != nil {
		if payload, marshalErr := json.Marshal(threshold); marshalErr == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store threshold cache")
			}
		}
	}

	return threshold, nil
}

// Update sets or clears the teacher's override and busts the cached value so
// the next grading run routes with the new threshold.
func (s *thresholdService) Update(ctx context.Context, teacherID string, threshold *float64) (gradeapi.Threshold, error) {
	if threshold != nil && (*threshold < 0 || *threshold > 1) {
		return gradeapi.Threshold{}, ErrThresholdOutOfRange
	}

	_, err := s.teachers.GetByID(ctx, teacherID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		teacher := models.Teacher{ID: teacherID, GradingThreshold: threshold}
		if err := s.teachers.Create(ctx, &teacher); err != nil {
			return gradeapi.Threshold{}, err
		}
	case err != nil:
		return gradeapi.Threshold{}, err
	default:
		if err := s.teachers.UpdateThreshold(ctx, teacherID, threshold); err != nil {
			return gradeapi.Threshold{}, err
		}
	}

	if s.cache != nil {
		if err := s.cache.Del(ctx, thresholdCacheKey(teacherID)).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to invalidate threshold cache")
		}
	}

	resolved := gradeapi.Threshold{
		EffectiveThreshold: DefaultGradingThreshold,
		Source:             gradeapi.ThresholdSourceDefault,
	}
	if threshold != nil {
		resolved.EffectiveThreshold = *threshold
		resolved.Source = gradeapi.ThresholdSourceTeacherOverride
		resolved.TeacherThreshold = threshold
	}

	s.logger.Info().
		Str("teacher_id", teacherID).
		Float64("effective_threshold", resolved.EffectiveThreshold).
		Str("source", resolved.Source).
		Msg("grading threshold updated")

	return resolved, nil
}

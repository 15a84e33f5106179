package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/penmark-edu/penmark-api/internal/models"
	"github.com/penmark-edu/penmark-api/pkg/gradeapi"
)

func newThresholdFixture(t *testing.T) (ThresholdService, *teacherRepoStub, *miniredis.Miniredis) {
	t.Helper()

	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	teachers := newTeacherRepoStub()
	svc := NewThresholdService(teachers, redisClient, time.Minute, testLogger())
	return svc, teachers, mini
}

func TestThresholdDefaultsWithoutProfile(t *testing.T) {
	svc, _, _ := newThresholdFixture(t)

	threshold, err := svc.Get(context.Background(), "teacher-1")
	require.NoError(t, err)
	require.InDelta(t, DefaultGradingThreshold, threshold.EffectiveThreshold, 0.001)
	require.Equal(t, gradeapi.ThresholdSourceDefault, threshold.Source)
	require.Nil(t, threshold.TeacherThreshold)
}

func TestThresholdTeacherOverride(t *testing.T) {
	svc, teachers, _ := newThresholdFixture(t)

	override := 0.9
	teachers.teachers["teacher-1"] = models.Teacher{ID: "teacher-1", GradingThreshold: &override}

	threshold, err := svc.Get(context.Background(), "teacher-1")
	require.NoError(t, err)
	require.InDelta(t, 0.9, threshold.EffectiveThreshold, 0.001)
	require.Equal(t, gradeapi.ThresholdSourceTeacherOverride, threshold.Source)
	require.NotNil(t, threshold.TeacherThreshold)
}

func TestThresholdCachesResolvedValue(t *testing.T) {
	svc, teachers, _ := newThresholdFixture(t)

	first, err := svc.Get(context.Background(), "teacher-1")
	require.NoError(t, err)
	require.InDelta(t, DefaultGradingThreshold, first.EffectiveThreshold, 0.001)

	// A direct database change must not be visible until the cache expires
	// or an update busts it.
	override := 0.5
	teachers.teachers["teacher-1"] = models.Teacher{ID: "teacher-1", GradingThreshold: &override}

	cached, err := svc.Get(context.Background(), "teacher-1")
	require.NoError(t, err)
	require.InDelta(t, DefaultGradingThreshold, cached.EffectiveThreshold, 0.001)
}

func TestThresholdUpdateBustsCache(t *testing.T) {
	svc, _, _ := newThresholdFixture(t)

	_, err := svc.Get(context.Background(), "teacher-1")
	require.NoError(t, err)

	override := 0.7
	updated, err := svc.Update(context.Background(), "teacher-1", &override)
	require.NoError(t, err)
	require.InDelta(t, 0.7, updated.EffectiveThreshold, 0.001)
	require.Equal(t, gradeapi.ThresholdSourceTeacherOverride, updated.Source)

	resolved, err := svc.Get(context.Background(), "teacher-1")
	require.NoError(t, err)
	require.InDelta(t, 0.7, resolved.EffectiveThreshold, 0.001)
}

func TestThresholdUpdateCreatesMissingProfile(t *testing.T) {
	svc, teachers, _ := newThresholdFixture(t)

	override := 0.85
	_, err := svc.Update(context.Background(), "teacher-9", &override)
	require.NoError(t, err)

	teacher, ok := teachers.teachers["teacher-9"]
	require.True(t, ok)
	require.NotNil(t, teacher.GradingThreshold)
	require.InDelta(t, 0.85, *teacher.GradingThreshold, 0.001)
}

func TestThresholdUpdateClearsOverride(t *testing.T) {
	svc, teachers, _ := newThresholdFixture(t)

	override := 0.9
	teachers.teachers["teacher-1"] = models.Teacher{ID: "teacher-1", GradingThreshold: &override}

	cleared, err := svc.Update(context.Background(), "teacher-1", nil)
	require.NoError(t, err)
	require.InDelta(t, DefaultGradingThreshold, cleared.EffectiveThreshold, 0.001)
	require.Equal(t, gradeapi.ThresholdSourceDefault, cleared.Source)
}

func TestThresholdUpdateRejectsOutOfRange(t *testing.T) {
	svc, _, _ := newThresholdFixture(t)

	bad := 1.5
	_, err := svc.Update(context.Background(), "teacher-1", &bad)
	require.ErrorIs(t, err, ErrThresholdOutOfRange)
}

package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStatus_StartsHealthy(t *testing.T) {
	s := NewStatus()
	assert.True(t, s.Healthy)
	assert.False(t, s.StartedAt.IsZero())
}

func TestIdleChecker_HealthyWithinThreshold(t *testing.T) {
	lastActivity := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := lastActivity.Add(5 * time.Second)

	checker := NewIdleChecker(10*time.Second,
		func() time.Time { return lastActivity },
		func() time.Time { return now },
	)

	require.Equal(t, CheckTypeIdle, checker.Type())

	result := checker.Check(context.Background())
	assert.True(t, result.Healthy)
	assert.Empty(t, result.Message)
	assert.Equal(t, 5*time.Second, result.Duration)
}

func TestIdleChecker_UnhealthyPastThreshold(t *testing.T) {
	lastActivity := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := lastActivity.Add(30 * time.Second)

	checker := NewIdleChecker(10*time.Second,
		func() time.Time { return lastActivity },
		func() time.Time { return now },
	)

	result := checker.Check(context.Background())
	assert.False(t, result.Healthy)
	assert.NotEmpty(t, result.Message)
}

func TestStatus_UpdateMarksUnhealthyAfterRetries(t *testing.T) {
	s := NewStatus()
	cfg := Config{Retries: 2}

	s.Update(Result{Healthy: false, CheckedAt: time.Now()}, cfg)
	assert.True(t, s.Healthy, "should stay healthy before reaching retry threshold")
	assert.Equal(t, 1, s.ConsecutiveFailures)

	s.Update(Result{Healthy: false, CheckedAt: time.Now()}, cfg)
	assert.False(t, s.Healthy, "should flip unhealthy once failures reach Retries")
}

func TestStatus_UpdateRecoversOnSuccess(t *testing.T) {
	s := NewStatus()
	cfg := Config{Retries: 1}

	s.Update(Result{Healthy: false, CheckedAt: time.Now()}, cfg)
	require.False(t, s.Healthy)

	s.Update(Result{Healthy: true, CheckedAt: time.Now()}, cfg)
	assert.True(t, s.Healthy)
	assert.Equal(t, 0, s.ConsecutiveFailures)
	assert.Equal(t, 1, s.ConsecutiveSuccesses)
}

func TestStatus_InStartPeriod(t *testing.T) {
	s := &Status{StartedAt: time.Now()}

	assert.True(t, s.InStartPeriod(Config{StartPeriod: time.Minute}))
	assert.False(t, s.InStartPeriod(Config{StartPeriod: 0}))

	s.StartedAt = time.Now().Add(-time.Hour)
	assert.False(t, s.InStartPeriod(Config{StartPeriod: time.Minute}))
}

func TestDefaultConfig_HasSensibleRetries(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3, cfg.Retries)
	assert.Zero(t, cfg.StartPeriod)
}

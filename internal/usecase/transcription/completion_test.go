package transcription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/johnquangdev/transcript-pipeline/internal/domain/entities"
	"github.com/johnquangdev/transcript-pipeline/internal/domain/providers"
)

func TestEstimateProgress(t *testing.T) {
	cases := []struct {
		elapsed time.Duration
		want    int
	}{
		{0, 0},
		{-time.Second, 0},
		{3 * time.Second, 30},
		{1250 * time.Millisecond, 13},
		{9 * time.Second, 90},
		{9500 * time.Millisecond, 95},
		{10 * time.Second, 95},
		{50 * time.Second, 95},
		{time.Hour, 95},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, EstimateProgress(tc.elapsed), tc.elapsed.String())
	}
}

func TestLocatorFirstPolicy_Evaluate(t *testing.T) {
	policy := LocatorFirstPolicy{}

	t.Run("in progress estimates", func(t *testing.T) {
		v := policy.Evaluate(&providers.StatusReport{Status: providers.StatusInProgress}, 3*time.Second)
		assert.Equal(t, entities.JobStatusInProgress, v.Status)
		assert.Equal(t, 30, v.Progress)
	})

	t.Run("queued counts as in progress", func(t *testing.T) {
		v := policy.Evaluate(&providers.StatusReport{Status: providers.StatusQueued}, time.Second)
		assert.Equal(t, entities.JobStatusInProgress, v.Status)
		assert.Equal(t, 10, v.Progress)
	})

	t.Run("completed with locator", func(t *testing.T) {
		v := policy.Evaluate(&providers.StatusReport{Status: providers.StatusCompleted, ResultLocator: "loc"}, time.Second)
		assert.Equal(t, entities.JobStatusCompleted, v.Status)
		assert.Equal(t, 100, v.Progress)
		assert.Equal(t, "loc", v.ResultLocator)
	})

	t.Run("locator wins over in progress status", func(t *testing.T) {
		v := policy.Evaluate(&providers.StatusReport{Status: providers.StatusInProgress, ResultLocator: "loc"}, time.Second)
		assert.Equal(t, entities.JobStatusCompleted, v.Status)
		assert.Equal(t, 100, v.Progress)
	})

	t.Run("completed without locator keeps estimating", func(t *testing.T) {
		v := policy.Evaluate(&providers.StatusReport{Status: providers.StatusCompleted}, 50*time.Second)
		assert.Equal(t, entities.JobStatusInProgress, v.Status)
		assert.Equal(t, 95, v.Progress)
		assert.True(t, policy.ShouldRequery(v))
	})

	t.Run("failed", func(t *testing.T) {
		v := policy.Evaluate(&providers.StatusReport{Status: providers.StatusFailed, Error: "bad audio"}, time.Second)
		assert.Equal(t, entities.JobStatusFailed, v.Status)
		assert.Equal(t, "bad audio", v.FailureReason)

		v = policy.Evaluate(&providers.StatusReport{Status: providers.StatusFailed}, time.Second)
		assert.NotEmpty(t, v.FailureReason)
	})
}

func TestLocatorFirstPolicy_ShouldRequery(t *testing.T) {
	policy := LocatorFirstPolicy{}

	assert.True(t, policy.ShouldRequery(Verdict{Status: entities.JobStatusInProgress, Progress: 95}))
	assert.False(t, policy.ShouldRequery(Verdict{Status: entities.JobStatusInProgress, Progress: 94}))
	assert.False(t, policy.ShouldRequery(Verdict{Status: entities.JobStatusCompleted, Progress: 100, ResultLocator: "loc"}))
	assert.False(t, policy.ShouldRequery(Verdict{Status: entities.JobStatusFailed}))
}

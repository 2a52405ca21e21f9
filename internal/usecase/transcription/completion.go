package transcription

import (
	"math"
	"time"

	"github.com/johnquangdev/transcript-pipeline/internal/domain/entities"
	"github.com/johnquangdev/transcript-pipeline/internal/domain/providers"
)

// MaxEstimatedProgress is the ceiling for estimated progress; only a confirmed
// completion reports 100
const MaxEstimatedProgress = 95

// Verdict is what one provider observation means for the job record
type Verdict struct {
	Status        entities.JobStatus
	Progress      int
	ResultLocator string
	FailureReason string
}

// CompletionPolicy turns a provider status report into a job verdict.
// Providers differ in how far their status flags can be trusted, so the
// rule is swappable per provider.
type CompletionPolicy interface {
	Evaluate(report *providers.StatusReport, elapsed time.Duration) Verdict
	// ShouldRequery reports whether one delayed re-query is worth making
	ShouldRequery(v Verdict) bool
}

// LocatorFirstPolicy trusts a result locator over the status string: some
// providers populate the result before flipping their status flag.
type LocatorFirstPolicy struct{}

var _ CompletionPolicy = LocatorFirstPolicy{}

func (LocatorFirstPolicy) Evaluate(report *providers.StatusReport, elapsed time.Duration) Verdict {
	if report.Status == providers.StatusFailed {
		reason := report.Error
		if reason == "" {
			reason = "provider reported failure"
		}
		return Verdict{Status: entities.JobStatusFailed, FailureReason: reason}
	}

	if report.ResultLocator != "" {
		return Verdict{
			Status:        entities.JobStatusCompleted,
			Progress:      100,
			ResultLocator: report.ResultLocator,
		}
	}

	// Completed without a locator is not yet fetchable; keep estimating
	return Verdict{
		Status:   entities.JobStatusInProgress,
		Progress: EstimateProgress(elapsed),
	}
}

func (LocatorFirstPolicy) ShouldRequery(v Verdict) bool {
	return v.Status == entities.JobStatusInProgress &&
		v.ResultLocator == "" &&
		v.Progress >= MaxEstimatedProgress
}

// EstimateProgress maps elapsed provider time to min(round(s/10*100), 95)
func EstimateProgress(elapsed time.Duration) int {
	if elapsed <= 0 {
		return 0
	}
	estimate := math.Round(elapsed.Seconds() / 10 * 100)
	if estimate >= MaxEstimatedProgress {
		return MaxEstimatedProgress
	}
	return int(estimate)
}

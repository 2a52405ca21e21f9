package jobcontext

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type KeyContext string

var (
	keyJobID     KeyContext = "job_id"
	keyOperation KeyContext = "operation"
	keyStartTime KeyContext = "call_start_time"
)

// DefaultCallTimeout bounds a provider call when the caller passes no timeout
const DefaultCallTimeout = 30 * time.Second

// CallBegin derives a context for a single provider call.
// Every external call gets its own deadline so a hung provider surfaces as a timeout.
func CallBegin(parentCtx context.Context, jobID uuid.UUID, operation string, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	ctx, cancel := context.WithTimeout(parentCtx, timeout)

	ctx = context.WithValue(ctx, keyJobID, jobID)
	ctx = context.WithValue(ctx, keyOperation, operation)
	ctx = context.WithValue(ctx, keyStartTime, time.Now())

	return ctx, cancel
}

// GetJobID extracts job ID from context
func GetJobID(ctx context.Context) (uuid.UUID, bool) {
	jobID, ok := ctx.Value(keyJobID).(uuid.UUID)
	return jobID, ok
}

// GetOperation extracts the provider operation name from context
func GetOperation(ctx context.Context) (string, bool) {
	op, ok := ctx.Value(keyOperation).(string)
	return op, ok
}

// GetStartTime extracts call start time from context
func GetStartTime(ctx context.Context) (time.Time, bool) {
	startTime, ok := ctx.Value(keyStartTime).(time.Time)
	return startTime, ok
}

// Fields returns the call metadata as log fields
func Fields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 3)
	if jobID, ok := GetJobID(ctx); ok && jobID != uuid.Nil {
		fields = append(fields, zap.String("job_id", jobID.String()))
	}
	if op, ok := GetOperation(ctx); ok {
		fields = append(fields, zap.String("operation", op))
	}
	if _, ok := GetStartTime(ctx); ok {
		fields = append(fields, zap.Duration("elapsed", Elapsed(ctx)))
	}
	return fields
}

// Elapsed returns the time since CallBegin, or zero outside a call context
func Elapsed(ctx context.Context) time.Duration {
	startTime, ok := GetStartTime(ctx)
	if !ok {
		return 0
	}
	return time.Since(startTime)
}

// IsTimeout reports whether err came from a call deadline
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

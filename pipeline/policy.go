// Copyright 2026 Open Harbor
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/openharbor/vecflow/core"
)

// RetryPolicy bounds in-process retries for one stage. The backoff
// doubles on each retry.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// Per-stage retry budgets. Chunking is pure and deterministic, so it is
// never retried; embedding gets one delayed retry to ride out transient
// provider errors; insertion is not retried in-process because the queue
// redelivery path already covers broker-visible failures.
var (
	ExtractPolicy = RetryPolicy{MaxAttempts: 3}
	ChunkPolicy   = RetryPolicy{MaxAttempts: 1}
	EmbedPolicy   = RetryPolicy{MaxAttempts: 2, Backoff: 5 * time.Second}
	InsertPolicy  = RetryPolicy{MaxAttempts: 1}
)

// PolicyForStage returns the retry policy attached to a stage.
func PolicyForStage(s core.Stage) RetryPolicy {
	switch s {
	case core.StageExtract:
		return ExtractPolicy
	case core.StageChunk:
		return ChunkPolicy
	case core.StageEmbed:
		return EmbedPolicy
	case core.StageInsert:
		return InsertPolicy
	default:
		return RetryPolicy{MaxAttempts: 1}
	}
}

// NonRetryableError marks a stage failure that no amount of retrying can
// fix, such as an unsupported document type or a violated invariant.
type NonRetryableError struct {
	Err error
}

func (e *NonRetryableError) Error() string {
	return e.Err.Error()
}

func (e *NonRetryableError) Unwrap() error {
	return e.Err
}

// NonRetryable wraps an error to stop the retry loop immediately.
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &NonRetryableError{Err: err}
}

// IsNonRetryable checks if an error is marked non-retryable.
func IsNonRetryable(err error) bool {
	var nre *NonRetryableError
	return errors.As(err, &nre)
}

// Run executes operation under the policy. It returns the last error
// after the attempt budget is exhausted, or immediately when the error
// is non-retryable or the context is cancelled.
func (p RetryPolicy) Run(ctx context.Context, logger *slog.Logger, operation func() error) error {
	if p.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				logger.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}

		if IsNonRetryable(lastErr) {
			return lastErr
		}

		logger.Debug("operation failed, will retry",
			"attempt", attempt, "maxAttempts", p.MaxAttempts, "error", lastErr)

		if attempt == p.MaxAttempts {
			break
		}

		if p.Backoff > 0 {
			delay := p.Backoff
			for i := 1; i < attempt; i++ {
				delay *= 2
			}

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	return lastErr
}

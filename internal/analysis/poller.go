package analysis

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/brandpulse/sponsorship-analysis-go/internal/metrics"
	"github.com/brandpulse/sponsorship-analysis-go/internal/models"
	"github.com/brandpulse/sponsorship-analysis-go/internal/provider"
	"github.com/brandpulse/sponsorship-analysis-go/pkg/logger"
)

// StatusFetcher fetches one status snapshot for a job. Implemented by the
// provider client.
type StatusFetcher interface {
	GetJobStatus(ctx context.Context, jobID string) (*models.AnalysisStatus, error)
}

// PollerConfig controls the polling cadence and transient-failure policy.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type PollerConfig struct {
	// Interval between successful polls. Defaults to one second.
	Interval time.Duration
	// MaxConsecutiveFailures is the number of consecutive transient
	// failures tolerated before escalating to a terminal error.
	// Defaults to 5.
	MaxConsecutiveFailures int
	// InitialBackoff is the first retry delay after a transient failure.
	// Defaults to 2 seconds; subsequent delays grow exponentially up to
	// MaxBackoff.
	InitialBackoff time.Duration
	// MaxBackoff caps the transient-failure retry delay. Defaults to 30
	// seconds.
	MaxBackoff time.Duration
}

func (c PollerConfig) withDefaults() PollerConfig {
	if c.Interval <= 0 {
		c.Interval = time.Second
	}
	if c.MaxConsecutiveFailures <= 0 {
		c.MaxConsecutiveFailures = 5
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 2 * time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	return c
}

// Poller drives the status polling loop for one job at a time. Requests are
// strictly sequential: the next poll is scheduled only after the previous
// response has been fully processed, so requests never overlap even when a
// response takes longer than the interval.
type Poller struct {
	fetcher StatusFetcher
	config  PollerConfig
}

// NewPoller creates a Poller over the given fetcher.
func NewPoller(fetcher StatusFetcher, config PollerConfig) *Poller {
	return &Poller{
		fetcher: fetcher,
		config:  config.withDefaults(),
	}
}

// Poll fetches the job's status until a terminal state, a terminal polling
// error, or cancellation. Every non-terminal snapshot is passed to onStatus
// before the next poll is scheduled; onStatus carries no control signal.
//
// A "not found" response means the provider evicted the job: Poll stops
// immediately, issues no further requests, and returns JobExpiredError. Any
// other failure is transient for that tick: it is logged and retried with
// exponential backoff, and only MaxConsecutiveFailures in a row escalate to
// TransientFailureLimitError. A successful poll resets the failure counter.
//
// On cancellation Poll returns ctx.Err(); the job itself is left untouched.
func (p *Poller) Poll(ctx context.Context, jobID string, onStatus func(*models.AnalysisStatus)) (*models.AnalysisStatus, error) {
	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = p.config.InitialBackoff
	retry.MaxInterval = p.config.MaxBackoff
	retry.MaxElapsedTime = 0
	retry.Reset()

	consecutiveFailures := 0

	for {
		metrics.PollTicks.Inc()
		tickStart := time.Now()
		status, err := p.fetcher.GetJobStatus(ctx, jobID)
		metrics.PollDuration.Observe(time.Since(tickStart).Seconds())

		switch {
		case err == nil:
			consecutiveFailures = 0
			retry.Reset()

			if status.State.IsTerminal() {
				return status, nil
			}
			if onStatus != nil {
				onStatus(status)
			}
			if waitErr := sleepCtx(ctx, p.config.Interval); waitErr != nil {
				return nil, waitErr
			}

		case errors.Is(err, provider.ErrJobNotFound):
			logger.Log.Warn("analysis job expired on provider",
				zap.String("jobId", jobID),
			)
			return nil, &JobExpiredError{JobID: jobID}

		case ctx.Err() != nil:
			return nil, ctx.Err()

		default:
			consecutiveFailures++
			metrics.PollTransientFailures.Inc()
			if consecutiveFailures >= p.config.MaxConsecutiveFailures {
				logger.Log.Error("giving up after repeated transient polling failures",
					zap.String("jobId", jobID),
					zap.Int("failures", consecutiveFailures),
					zap.Error(err),
				)
				return nil, &TransientFailureLimitError{
					JobID:    jobID,
					Failures: consecutiveFailures,
					Last:     err,
				}
			}

			delay := retry.NextBackOff()
			logger.Log.Warn("transient polling failure, will retry",
				zap.String("jobId", jobID),
				zap.Int("consecutiveFailures", consecutiveFailures),
				zap.Duration("retryIn", delay),
				zap.Error(err),
			)
			if waitErr := sleepCtx(ctx, delay); waitErr != nil {
				return nil, waitErr
			}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

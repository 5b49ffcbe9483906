// Package retry re-runs an operation that failed with a transient error.
package retry

import (
	"context"
	"time"

	"github.com/bsv-blockchain/verdict/ulogger"
)

// backoffMultiplier stretches each wait by another unit of BackoffDurationType.
const backoffMultiplier = 2

type SetOptions struct {
	Message             string
	BackoffDurationType time.Duration
	RetryCount          int
	// RetryIf decides whether an error is worth another attempt. Nil retries all.
	RetryIf func(error) bool
}

type Options func(s *SetOptions)

func WithMessage(message string) Options {
	return func(s *SetOptions) {
		s.Message = message
	}
}

func WithBackoffDurationType(durationType time.Duration) Options {
	return func(s *SetOptions) {
		s.BackoffDurationType = durationType
	}
}

// WithRetryCount sets the number of attempts, including the first one.
func WithRetryCount(retryCount int) Options {
	return func(s *SetOptions) {
		s.RetryCount = retryCount
	}
}

func WithRetryIf(retryIf func(error) bool) Options {
	return func(s *SetOptions) {
		s.RetryIf = retryIf
	}
}

// Retry calls f until it succeeds, the attempts run out, RetryIf rejects the
// error or ctx is done. The last result and error are returned.
func Retry[T any](ctx context.Context, logger ulogger.Logger, f func() (T, error), opts ...Options) (T, error) {
	setOptions := &SetOptions{
		Message:             "",
		BackoffDurationType: time.Second,
		RetryCount:          3,
	}

	for _, opt := range opts {
		opt(setOptions)
	}

	var (
		result T
		err    error
	)

	for i := 0; i < setOptions.RetryCount; i++ {
		result, err = f()
		if err == nil {
			return result, nil
		}

		if setOptions.RetryIf != nil && !setOptions.RetryIf(err) {
			return result, err
		}

		if i == setOptions.RetryCount-1 {
			break
		}

		logger.Warnf("%s (attempt %d): %v", setOptions.Message, i+1, err)

		if sleepErr := BackoffAndSleep(ctx, i, backoffMultiplier, setOptions.BackoffDurationType); sleepErr != nil {
			return result, sleepErr
		}
	}

	return result, err
}

package services

import (
	"context"
	"fmt"
	"time"
)

// Polling defaults for video operations.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultMaxWait      = 180 * time.Second
)

// PollFunc advances an operation by one status check.
type PollFunc func(ctx context.Context, op *Operation) (*Operation, error)

// AwaitCompletion drives an operation to completion with a bounded wait.
// An already-done operation returns immediately without sleeping. Each call
// opens a fresh timeout window; nothing is cached across calls.
//
// On timeout the operation is abandoned, not cancelled: the provider keeps
// processing, the caller just stops waiting. Fails with ErrOperationTimeout
// once elapsed wall-clock time exceeds maxWait.
func AwaitCompletion(ctx context.Context, poll PollFunc, op *Operation, pollInterval, maxWait time.Duration) (*Operation, error) {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}

	start := time.Now()
	for !op.Done {
		if time.Since(start) > maxWait {
			return nil, fmt.Errorf("%w after %v", ErrOperationTimeout, maxWait)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait cancelled: %w", ctx.Err())
		case <-time.After(pollInterval):
		}

		next, err := poll(ctx, op)
		if err != nil {
			return nil, err
		}
		op = next
	}

	return op, nil
}

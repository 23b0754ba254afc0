package llm

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// retryProposer wraps a Proposer with a per-attempt timeout and a bounded
// exponential backoff retry loop. The final error keeps its kind (ErrTimeout
// or ErrMalformed) so the pipeline can still branch on it after retries are
// exhausted.
type retryProposer struct {
	inner      Proposer
	maxRetries uint64
	timeout    time.Duration
}

// WithRetry wraps p so each Propose call is attempted up to maxRetries+1
// times, each attempt bounded by timeout.
func WithRetry(p Proposer, maxRetries int, timeout time.Duration) Proposer {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &retryProposer{
		inner:      p,
		maxRetries: uint64(maxRetries),
		timeout:    timeout,
	}
}

func (r *retryProposer) Propose(ctx context.Context, req Request) (*Proposal, error) {
	var proposal *Proposal

	attempt := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		p, err := r.inner.Propose(attemptCtx, req)
		if err != nil {
			return err
		}

		proposal = p
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), r.maxRetries),
		ctx,
	)

	if err := backoff.Retry(attempt, policy); err != nil {
		return nil, err
	}

	return proposal, nil
}

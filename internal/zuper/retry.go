package zuper

import (
	"errors"
	"math/rand"
	"time"
)

// Decision is the outcome of consulting the retry policy for one failure.
type Decision struct {
	Retry bool
	Delay time.Duration
}

// Policy classifies client failures as retryable or fatal and computes
// backoff delays. It is a pure value: Decide never sleeps, so the caller
// owns all scheduling and tests run without real delays.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// Jitter perturbs a computed delay. Defaults to +/-50% randomization;
	// tests inject an identity function for determinism.
	Jitter func(time.Duration) time.Duration
}

// DefaultPolicy returns the production retry policy.
func DefaultPolicy(maxAttempts int, baseDelay, maxDelay time.Duration) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
	}
}

// Decide returns what to do after attempt (1-based) failed with err.
// Auth and malformed-response failures are never retried. Rate-limit
// failures honor a server-provided backoff hint when present. Exhausting
// MaxAttempts converts any transient failure into a fatal one.
func (p Policy) Decide(attempt int, err error) Decision {
	if err == nil {
		return Decision{}
	}
	if attempt >= p.MaxAttempts {
		return Decision{}
	}

	switch {
	case errors.Is(err, ErrAuth), errors.Is(err, ErrMalformed):
		return Decision{}
	case errors.Is(err, ErrRateLimited):
		var rlErr *RateLimitError
		if errors.As(err, &rlErr) && rlErr.RetryAfter > 0 {
			return Decision{Retry: true, Delay: rlErr.RetryAfter}
		}
		return Decision{Retry: true, Delay: p.backoff(attempt)}
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrUnreachable):
		return Decision{Retry: true, Delay: p.backoff(attempt)}
	}

	return Decision{}
}

// backoff doubles the base delay per attempt up to MaxDelay, then jitters.
func (p Policy) backoff(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			d = p.MaxDelay
			break
		}
	}
	if d > p.MaxDelay {
		d = p.MaxDelay
	}

	jitter := p.Jitter
	if jitter == nil {
		jitter = defaultJitter
	}
	return jitter(d)
}

// defaultJitter randomizes a delay to between 50% and 150% of its value.
func defaultJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(d)))
}

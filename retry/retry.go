// Package retry wraps remote calls with error classification and exponential
// backoff.
//
// Transient errors (408, 429, 5xx and transport errors) are retried until the
// policy's attempts are exhausted. A 401 response refreshes authentication
// once and retries once. Everything else fails on the first attempt. A
// Retry-After header on a transient response delays the next attempt by at
// least the requested time, clamped to the maximum delay.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/func/seeder/resource"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// A Policy configures retries for a service.
type Policy struct {
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// Factor multiplies the delay after every retry.
	Factor float64

	// Jitter randomizes delays by ±Jitter of their value.
	Jitter float64

	// MaxDelay caps every delay, including server hints.
	MaxDelay time.Duration

	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// Timeout limits every attempt. Zero means no limit.
	Timeout time.Duration
}

// DefaultPolicy is used for services without a policy of their own.
var DefaultPolicy = Policy{
	BaseDelay:   500 * time.Millisecond,
	Factor:      2,
	Jitter:      0.3,
	MaxDelay:    30 * time.Second,
	MaxAttempts: 5,
	Timeout:     60 * time.Second,
}

// BackOff returns the exponential backoff for the policy, limited to the
// policy's attempts.
func (p Policy) BackOff() backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.BaseDelay
	exp.Multiplier = p.Factor
	exp.RandomizationFactor = p.Jitter
	exp.MaxInterval = p.MaxDelay
	exp.MaxElapsedTime = 0
	exp.Reset()
	return exp
}

// A Reauthenticator refreshes the authentication of a session.
type Reauthenticator interface {
	Reauthenticate(ctx context.Context) error
}

// An Operation is a single attempt of a remote call.
type Operation func(ctx context.Context) error

// A Retrier retries operations according to a policy.
type Retrier struct {
	Policy Policy

	// Limiter, if set, is waited on before every attempt.
	Limiter *rate.Limiter

	// Auth is used to refresh authentication on a 401 response. If not set,
	// a 401 response fails immediately.
	Auth Reauthenticator

	// Logger logs retries. If not set, logs are discarded.
	Logger *zap.Logger

	// Backoff algorithm used for retries. If not set, the policy decides.
	Backoff func() backoff.BackOff
}

// Do runs op until it succeeds, fails permanently or runs out of attempts.
//
// The returned error is the error of the last attempt, wrapped in a
// *resource.Error carrying its class and the number of attempts made.
func (r *Retrier) Do(ctx context.Context, op Operation) error {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	policy := r.Policy
	if policy.MaxAttempts == 0 {
		policy = DefaultPolicy
	}

	var inner backoff.BackOff
	if r.Backoff != nil {
		inner = r.Backoff()
	} else {
		inner = policy.BackOff()
	}
	hints := &hinted{BackOff: inner, max: policy.MaxDelay}
	var algo backoff.BackOff = hints
	if policy.MaxAttempts > 0 {
		algo = backoff.WithMaxRetries(algo, uint64(policy.MaxAttempts-1))
	}
	algo = backoff.WithContext(algo, ctx)

	var (
		attempts int
		reauthed bool
		last     error
		class    resource.Class
	)

	operation := func() error {
		if r.Limiter != nil {
			if err := r.Limiter.Wait(ctx); err != nil {
				if last == nil {
					last, class = err, resource.Canceled
				}
				return backoff.Permanent(err)
			}
		}

		attempts++
		actx, cancel := ctx, func() {}
		if policy.Timeout > 0 {
			actx, cancel = context.WithTimeout(ctx, policy.Timeout)
		}
		err := op(actx)
		cancel()
		if err == nil {
			return nil
		}

		var after time.Duration
		last = err
		class, after = Classify(err)

		switch class {
		case resource.AuthInvalid:
			if reauthed || r.Auth == nil {
				return backoff.Permanent(err)
			}
			reauthed = true
			if rerr := r.Auth.Reauthenticate(ctx); rerr != nil {
				last = rerr
				return backoff.Permanent(rerr)
			}
			hints.now = true
			return err
		case resource.TransientRemote:
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			hints.after = after
			return err
		}
		return backoff.Permanent(err)
	}

	notify := func(err error, wait time.Duration) {
		logger.Info("Retry",
			zap.Int("attempt", attempts),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	err := backoff.RetryNotify(operation, algo, notify)
	track(ctx, attempts)
	if err == nil {
		return nil
	}
	if last == nil {
		last = err
	}
	if class == resource.ClassNone {
		class = resource.PermanentRemote
	}
	return &resource.Error{Class: class, Attempts: attempts, Err: last}
}

// hinted honors a delay requested by the server when it is longer than the
// regular backoff delay.
type hinted struct {
	backoff.BackOff
	max   time.Duration
	after time.Duration
	now   bool
}

func (h *hinted) NextBackOff() time.Duration {
	d := h.BackOff.NextBackOff()
	if d == backoff.Stop {
		return d
	}
	if h.now {
		h.now = false
		h.after = 0
		return 0
	}
	if h.after > 0 {
		after := h.after
		h.after = 0
		if h.max > 0 && after > h.max {
			after = h.max
		}
		if after > d {
			return after
		}
	}
	return d
}

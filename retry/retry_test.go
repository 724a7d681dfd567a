package retry_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/func/seeder/resource"
	"github.com/func/seeder/retry"
	"github.com/gophercloud/gophercloud/v2"
	"go.uber.org/zap/zaptest"
	"golang.org/x/time/rate"
)

func status(code int, body string) error {
	return gophercloud.ErrUnexpectedResponseCode{
		Actual:         code,
		Body:           []byte(body),
		ResponseHeader: http.Header{},
	}
}

func zero() backoff.BackOff { return &backoff.ZeroBackOff{} }

type sequence struct {
	errs  []error
	calls int
}

func (s *sequence) op(ctx context.Context) error {
	var err error
	if s.calls < len(s.errs) {
		err = s.errs[s.calls]
	}
	s.calls++
	return err
}

type reauth struct {
	calls int
	err   error
}

func (r *reauth) Reauthenticate(ctx context.Context) error {
	r.calls++
	return r.err
}

func TestRetrier_Do(t *testing.T) {
	tests := []struct {
		name      string
		errs      []error
		auth      *reauth
		wantClass resource.Class
		wantCalls int
		wantAuth  int
	}{
		{
			name:      "Success",
			wantCalls: 1,
		},
		{
			name:      "TransientThenSuccess",
			errs:      []error{status(503, ""), status(503, "")},
			wantCalls: 3,
		},
		{
			name:      "Permanent",
			errs:      []error{status(403, `{"error": {"message": "forbidden"}}`)},
			wantClass: resource.PermanentRemote,
			wantCalls: 1,
		},
		{
			name:      "Conflict",
			errs:      []error{status(409, "")},
			wantClass: resource.PermanentRemote,
			wantCalls: 1,
		},
		{
			name:      "Exhausted",
			errs:      []error{status(500, ""), status(502, ""), status(503, ""), status(504, "")},
			wantClass: resource.TransientRemote,
			wantCalls: 4,
		},
		{
			name:      "Throttled",
			errs:      []error{status(429, ""), status(408, "")},
			wantCalls: 3,
		},
		{
			name:      "ReauthOnce",
			errs:      []error{status(401, "")},
			auth:      &reauth{},
			wantCalls: 2,
			wantAuth:  1,
		},
		{
			name:      "ReauthRejected",
			errs:      []error{status(401, ""), status(401, "")},
			auth:      &reauth{},
			wantClass: resource.AuthInvalid,
			wantCalls: 2,
			wantAuth:  1,
		},
		{
			name:      "ReauthFails",
			errs:      []error{status(401, "")},
			auth:      &reauth{err: fmt.Errorf("bad password")},
			wantClass: resource.AuthInvalid,
			wantCalls: 1,
			wantAuth:  1,
		},
		{
			name:      "NoReauth",
			errs:      []error{status(401, "")},
			wantClass: resource.AuthInvalid,
			wantCalls: 1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			seq := &sequence{errs: tc.errs}
			r := &retry.Retrier{
				Policy:  retry.Policy{MaxAttempts: 4, MaxDelay: time.Second},
				Backoff: zero,
				Logger:  zaptest.NewLogger(t),
			}
			if tc.auth != nil {
				r.Auth = tc.auth
			}

			ctx, tracker := retry.WithTracker(context.Background())
			err := r.Do(ctx, seq.op)

			if got := resource.ClassOf(err); got != tc.wantClass {
				t.Errorf("Class = %s, want = %s (err = %v)", got, tc.wantClass, err)
			}
			if seq.calls != tc.wantCalls {
				t.Errorf("Calls = %d, want = %d", seq.calls, tc.wantCalls)
			}
			if tracker.Attempts() != tc.wantCalls {
				t.Errorf("Tracked attempts = %d, want = %d", tracker.Attempts(), tc.wantCalls)
			}
			if err != nil && resource.AttemptsOf(err) != tc.wantCalls {
				t.Errorf("AttemptsOf() = %d, want = %d", resource.AttemptsOf(err), tc.wantCalls)
			}
			if tc.auth != nil && tc.auth.calls != tc.wantAuth {
				t.Errorf("Reauth calls = %d, want = %d", tc.auth.calls, tc.wantAuth)
			}
		})
	}
}

func TestRetrier_Do_lastError(t *testing.T) {
	seq := &sequence{errs: []error{status(500, "first"), status(503, "last")}}
	r := &retry.Retrier{Policy: retry.Policy{MaxAttempts: 2}, Backoff: zero}

	err := r.Do(context.Background(), seq.op)
	if err == nil {
		t.Fatal("Do() error = nil")
	}
	code, _, ok := retry.StatusCode(err)
	if !ok || code != 503 {
		t.Errorf("Status = %d, want = %d", code, 503)
	}
}

func TestRetrier_Do_retryAfter(t *testing.T) {
	throttled := gophercloud.ErrUnexpectedResponseCode{
		Actual:         429,
		ResponseHeader: http.Header{"Retry-After": []string{"1"}},
	}
	var times []time.Time
	op := func(ctx context.Context) error {
		times = append(times, time.Now())
		if len(times) == 1 {
			return throttled
		}
		return nil
	}

	r := &retry.Retrier{
		Policy: retry.Policy{
			BaseDelay:   time.Millisecond,
			Factor:      2,
			MaxDelay:    5 * time.Second,
			MaxAttempts: 3,
		},
	}
	if err := r.Do(context.Background(), op); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if len(times) != 2 {
		t.Fatalf("Attempts = %d, want = %d", len(times), 2)
	}
	if wait := times[1].Sub(times[0]); wait < time.Second {
		t.Errorf("Retried after %s, want at least 1s", wait)
	}
}

func TestRetrier_Do_retryAfterClamped(t *testing.T) {
	throttled := gophercloud.ErrUnexpectedResponseCode{
		Actual:         429,
		ResponseHeader: http.Header{"Retry-After": []string{"3600"}},
	}
	calls := 0
	op := func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return throttled
		}
		return nil
	}

	r := &retry.Retrier{
		Policy:  retry.Policy{MaxDelay: 20 * time.Millisecond, MaxAttempts: 2},
		Backoff: zero,
	}
	start := time.Now()
	if err := r.Do(context.Background(), op); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if took := time.Since(start); took > 5*time.Second {
		t.Errorf("Took %s, want clamped to max delay", took)
	}
}

func TestRetrier_Do_canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &retry.Retrier{
		Policy:  retry.Policy{MaxAttempts: 3},
		Limiter: rate.NewLimiter(rate.Every(time.Hour), 0),
		Backoff: zero,
	}
	calls := 0
	err := r.Do(ctx, func(ctx context.Context) error {
		calls++
		return nil
	})
	if calls != 0 {
		t.Errorf("Calls = %d, want = %d", calls, 0)
	}
	if got := resource.ClassOf(err); got != resource.Canceled {
		t.Errorf("Class = %s, want = %s", got, resource.Canceled)
	}
}

func TestRetrier_Do_attemptTimeout(t *testing.T) {
	calls := 0
	r := &retry.Retrier{
		Policy:  retry.Policy{MaxAttempts: 2, Timeout: 10 * time.Millisecond},
		Backoff: zero,
	}
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("Calls = %d, want = %d", calls, 2)
	}
}

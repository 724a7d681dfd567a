package retry

import (
	"context"
	"sync/atomic"
)

// A Tracker records the highest number of attempts made by any call that
// received its context.
type Tracker struct {
	max int64
}

type trackerKey struct{}

// WithTracker returns a context that records attempts to the returned
// tracker.
func WithTracker(ctx context.Context) (context.Context, *Tracker) {
	t := &Tracker{}
	return context.WithValue(ctx, trackerKey{}, t), t
}

// Attempts returns the highest number of attempts recorded, or zero if no
// call was made.
func (t *Tracker) Attempts() int {
	return int(atomic.LoadInt64(&t.max))
}

func (t *Tracker) observe(n int) {
	for {
		cur := atomic.LoadInt64(&t.max)
		if int64(n) <= cur || atomic.CompareAndSwapInt64(&t.max, cur, int64(n)) {
			return
		}
	}
}

func track(ctx context.Context, attempts int) {
	if t, ok := ctx.Value(trackerKey{}).(*Tracker); ok {
		t.observe(attempts)
	}
}

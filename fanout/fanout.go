// Package fanout runs independent sub-requests concurrently and waits
// until all of them settle. A failed sub-request never cancels its siblings,
// and results are returned in input order regardless of completion order.
package fanout

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/google/uuid"
	"github.com/tutumi2011kt-gif/mulmochat/pkg/metricskey"
	"golang.org/x/sync/errgroup"
)

var logger = xlog.NewPackageLogger("github.com/tutumi2011kt-gif/mulmochat", "fanout")

// ErrTimeout is recorded for a sub-request that did not settle in time
var ErrTimeout = errors.New("sub-request timed out")

// Result is the settled outcome of the sub-request at Index
type Result[T any] struct {
	Index int
	Value T
	Err   error
}

// OK returns true if the sub-request succeeded
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Func is a sub-request
type Func[T any] func(ctx context.Context, i int) (T, error)

type options struct {
	name    string
	limit   int
	timeout time.Duration
}

// Option configures Settle
type Option func(*options)

// WithName sets the batch name used in logs and metrics
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithLimit bounds the number of sub-requests in flight,
// zero or negative means unbounded.
func WithLimit(n int) Option {
	return func(o *options) {
		o.limit = n
	}
}

// WithTimeout bounds the duration of each sub-request
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// Settle runs fn for every index in [0, n) and returns when all settled.
// The result at position i always corresponds to the input i.
func Settle[T any](ctx context.Context, n int, fn Func[T], opts ...Option) []Result[T] {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	name := values.StringsCoalesce(o.name, "fanout")
	batchID := uuid.NewString()

	results := make([]Result[T], n)
	if n <= 0 {
		return results
	}

	started := time.Now()
	defer metricskey.PerfFanout.MeasureSince(started, name)

	// no WithContext: a failed sub-request must not cancel its siblings
	var g errgroup.Group
	if o.limit > 0 {
		g.SetLimit(o.limit)
	}

	for i := range n {
		g.Go(func() error {
			v, err := call(ctx, i, fn, o.timeout)
			// each goroutine owns its slot
			results[i] = Result[T]{Index: i, Value: v, Err: err}
			if err != nil {
				metricskey.StatsFanoutTasksFailed.IncrCounter(1, name)
				logger.ContextKV(ctx, xlog.WARNING,
					"status", "sub_request_failed",
					"batch", name,
					"batch_id", batchID,
					"index", i,
					"err", err.Error(),
				)
			} else {
				metricskey.StatsFanoutTasksSucceeded.IncrCounter(1, name)
			}
			return nil
		})
	}
	_ = g.Wait()

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "settled",
		"batch", name,
		"batch_id", batchID,
		"count", n,
		"elapsed", time.Since(started).String(),
	)
	return results
}

func call[T any](ctx context.Context, i int, fn Func[T], timeout time.Duration) (T, error) {
	if timeout <= 0 {
		return protect(ctx, i, fn)
	}

	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		v   T
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		v, err := protect(tctx, i, fn)
		ch <- outcome{v: v, err: err}
	}()

	select {
	case out := <-ch:
		return out.v, out.err
	case <-tctx.Done():
		var zero T
		if errors.Is(tctx.Err(), context.DeadlineExceeded) {
			return zero, errors.Wrapf(ErrTimeout, "after %s", timeout)
		}
		return zero, errors.WithStack(tctx.Err())
	}
}

func protect[T any](ctx context.Context, i int, fn Func[T]) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("sub-request %d panicked: %s", i, fmt.Sprint(r))
		}
	}()
	return fn(ctx, i)
}

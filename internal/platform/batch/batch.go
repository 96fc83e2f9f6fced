// Package batch runs independent per-entity tasks with a concurrency cap and
// collects a deterministic success/failure report. A failing task never
// aborts its siblings.
package batch

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Failure records why one item failed.
type Failure struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// Report lists successes and failures in input order.
type Report[R any] struct {
	Succeeded []R       `json:"succeeded"`
	Failed    []Failure `json:"failed"`
}

// OK reports whether every item succeeded.
func (r *Report[R]) OK() bool { return len(r.Failed) == 0 }

type outcome[R any] struct {
	result R
	err    error
}

// Run calls fn for every item with at most limit calls in flight. A limit
// below 1 runs sequentially. Panics inside fn are reported as failures.
//
// Cancelling ctx stops new items from starting; those items are reported as
// failed with the context error.
func Run[T, R any](ctx context.Context, items []T, limit int, key func(T) string, fn func(context.Context, T) (R, error)) *Report[R] {
	if limit < 1 {
		limit = 1
	}
	outcomes := make([]outcome[R], len(items))

	g := new(errgroup.Group)
	g.SetLimit(limit)
	for i, item := range items {
		i, item := i, item
		if err := ctx.Err(); err != nil {
			outcomes[i] = outcome[R]{err: err}
			continue
		}
		g.Go(func() error {
			outcomes[i] = call(ctx, item, fn)
			return nil
		})
	}
	_ = g.Wait()

	rep := &Report[R]{Succeeded: []R{}, Failed: []Failure{}}
	for i, o := range outcomes {
		if o.err != nil {
			rep.Failed = append(rep.Failed, Failure{Key: key(items[i]), Reason: o.err.Error(), Err: o.err})
			continue
		}
		rep.Succeeded = append(rep.Succeeded, o.result)
	}
	return rep
}

func call[T, R any](ctx context.Context, item T, fn func(context.Context, T) (R, error)) (o outcome[R]) {
	defer func() {
		if r := recover(); r != nil {
			o = outcome[R]{err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if err := ctx.Err(); err != nil {
		return outcome[R]{err: err}
	}
	res, err := fn(ctx, item)
	return outcome[R]{result: res, err: err}
}

package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"

	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 3

type Options struct {
	Concurrency int
}

// PanicError is a task panic turned into an error.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Run calls task once for every item with at most opts.Concurrency calls in
// flight. Task errors do not stop the other items; each one is handed to
// onDone, which runs after every task including panicking ones. Run returns
// the first panic once all items have finished.
func Run[T any](ctx context.Context, items []T, opts Options, task func(ctx context.Context, item T) error, onDone func(item T, err error)) error {
	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	var g errgroup.Group
	g.SetLimit(limit)

	for _, item := range items {
		item := item
		g.Go(func() (groupErr error) {
			var taskErr error
			defer func() {
				if r := recover(); r != nil {
					panicErr := &PanicError{Value: r, Stack: debug.Stack()}
					taskErr = panicErr
					groupErr = panicErr
				}
				if onDone != nil {
					onDone(item, taskErr)
				}
			}()
			taskErr = task(ctx, item)
			return nil
		})
	}
	return g.Wait()
}

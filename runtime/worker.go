package runtime

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/numbridge/errors"
)

// fifo is an unbounded queue. pop blocks until an item is available and
// reports false once the queue is closed and drained.
type fifo[T any] struct {
	cond   *sync.Cond
	items  []T
	mu     sync.Mutex
	closed bool
}

func newFIFO[T any]() *fifo[T] {
	q := &fifo[T]{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *fifo[T]) push(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.items = append(q.items, v)
	q.cond.Signal()
	return true
}

func (q *fifo[T]) pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	v := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return v, true
}

func (q *fifo[T]) close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
}

func (q *fifo[T]) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// task is one unit of work for the runtime thread. Synchronous callers wait
// on done; asynchronous ones receive the outcome through deliver, called
// from the delivery goroutine. abort undoes work prepared on the caller's
// goroutine when the task is rejected.
type task struct {
	ctx     context.Context
	run     func(context.Context) (any, error)
	abort   func()
	deliver func(any, error)
	done    chan struct{}
	res     any
	err     error
	id      string
}

// worker owns the runtime thread. Tasks run one at a time in submission
// order; asynchronous outcomes are handed to a second goroutine so that a
// slow callback never stalls the runtime, and they arrive in the same
// order the tasks ran.
type worker struct {
	tasks      *fifo[*task]
	deliveries *fifo[*task]
	onStop     func()
	stopped    chan struct{}
	drained    chan struct{}
	delivering atomic.Bool
}

func newWorker(onStop func()) *worker {
	w := &worker{
		tasks:      newFIFO[*task](),
		deliveries: newFIFO[*task](),
		onStop:     onStop,
		stopped:    make(chan struct{}),
		drained:    make(chan struct{}),
	}
	go w.loop()
	go w.deliverLoop()
	return w
}

func errClosed() error {
	return errors.NotInitialized(errors.PhaseRuntime, "runtime")
}

// call runs fn on the runtime thread and waits for it. abort, if not nil,
// runs instead of fn when the worker no longer accepts work.
func (w *worker) call(ctx context.Context, fn func(context.Context) (any, error), abort func()) (any, error) {
	t := &task{id: uuid.NewString(), ctx: ctx, run: fn, abort: abort, done: make(chan struct{})}
	if !w.tasks.push(t) {
		t.reject()
		return nil, errClosed()
	}
	<-t.done
	return t.res, t.err
}

// callAsync queues fn and returns at once. deliver is called exactly once.
func (w *worker) callAsync(ctx context.Context, fn func(context.Context) (any, error), abort func(), deliver func(any, error)) string {
	t := &task{id: uuid.NewString(), ctx: ctx, run: fn, abort: abort, deliver: deliver}
	if !w.tasks.push(t) {
		t.reject()
		err := errClosed()
		go safeDeliver(t.id, func() { deliver(nil, err) })
		return t.id
	}
	return t.id
}

func (t *task) reject() {
	if t.abort != nil {
		t.abort()
	}
}

// post queues fn without waiting. It reports false once the worker stopped
// accepting work.
func (w *worker) post(fn func()) bool {
	return w.tasks.push(&task{
		id:  uuid.NewString(),
		ctx: context.Background(),
		run: func(context.Context) (any, error) {
			fn()
			return nil, nil
		},
	})
}

// stop rejects new work. Queued tasks still run, then onStop, then the
// pending deliveries.
func (w *worker) stop() {
	w.tasks.close()
}

// wait blocks until the runtime thread stopped and every outcome was
// delivered. While a callback is running, which may itself be the caller,
// it returns once the runtime thread stopped; the delivery goroutine keeps
// handing out the remaining outcomes in order.
func (w *worker) wait(ctx context.Context) error {
	select {
	case <-w.stopped:
	case <-ctx.Done():
		return ctx.Err()
	}
	if w.delivering.Load() {
		return nil
	}
	select {
	case <-w.drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *worker) pending() int {
	return w.tasks.len()
}

func (w *worker) loop() {
	defer close(w.stopped)
	for {
		t, ok := w.tasks.pop()
		if !ok {
			break
		}
		w.exec(t)
		switch {
		case t.deliver != nil:
			w.deliveries.push(t)
		case t.done != nil:
			close(t.done)
		}
	}
	if w.onStop != nil {
		w.onStop()
	}
	w.deliveries.close()
}

func (w *worker) exec(t *task) {
	defer func() {
		if r := recover(); r != nil {
			Logger().Error("task panicked",
				zap.String("task", t.id),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			t.res = nil
			t.err = errors.New(errors.PhaseRuntime, errors.KindRuntimeDiagnostic).
				Detail("task panicked: %v", r).
				Cause(fmt.Errorf("panic: %v", r)).
				Build()
		}
	}()
	Logger().Debug("task start", zap.String("task", t.id))
	t.res, t.err = t.run(t.ctx)
}

func (w *worker) deliverLoop() {
	defer close(w.drained)
	for {
		t, ok := w.deliveries.pop()
		if !ok {
			return
		}
		res, err := t.res, t.err
		w.delivering.Store(true)
		safeDeliver(t.id, func() { t.deliver(res, err) })
		w.delivering.Store(false)
	}
}

func safeDeliver(id string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			Logger().Error("callback panicked",
				zap.String("task", id),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()
	fn()
}

package worker_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/riftelo/internal/adapters/mq/queue"
	worker "github.com/okian/riftelo/internal/adapters/mq/worker"
	"github.com/okian/riftelo/internal/domain/validation"
	logging "github.com/okian/riftelo/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockQueue struct {
	jobs chan queue.Job
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan queue.Job, 16)}
}

func (mq *mockQueue) Dequeue(context.Context) <-chan queue.Job { return mq.jobs }

func (mq *mockQueue) Close() error {
	close(mq.jobs)
	return nil
}

type mockExecutor struct {
	mu    sync.Mutex
	calls int
	fail  map[int]error
}

func (me *mockExecutor) Execute(_ context.Context, job queue.Job) (validation.Result, error) { //nolint:gocritic // hugeParam
	me.mu.Lock()
	defer me.mu.Unlock()
	me.calls++
	if err, ok := me.fail[job.Fold.Index]; ok {
		return validation.Result{}, err
	}
	return validation.Result{Fold: job.Fold.Index, Evaluated: 10, Accuracy: 0.5}, nil
}

type outcome struct {
	fold int
	err  error
}

type recorder struct {
	mu       sync.Mutex
	outcomes []outcome
}

func (r *recorder) Collect(_ context.Context, job queue.Job, _ validation.Result, err error) { //nolint:gocritic // hugeParam
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome{fold: job.Fold.Index, err: err})
}

func (r *recorder) folds() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, 0, len(r.outcomes))
	for _, o := range r.outcomes {
		out = append(out, o.fold)
	}
	sort.Ints(out)
	return out
}

func job(fold int) queue.Job {
	return queue.Job{ID: "job", Fold: validation.Fold{Index: fold}}
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given an InMemoryWorker", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		exec := &mockExecutor{fail: map[int]error{2: errors.New("boom")}}
		rec := &recorder{}
		w := worker.NewInMemoryWorker(q, exec, rec, worker.WithName("test-worker"))

		convey.Convey("When the queue drains", func() {
			q.jobs <- job(1)
			q.jobs <- job(2)
			_ = q.Close()
			w.Run(context.Background())

			convey.Convey("Then every job reaches the collector, failures included", func() {
				convey.So(rec.folds(), convey.ShouldResemble, []int{1, 2})
				convey.So(rec.outcomes[1].err, convey.ShouldNotBeNil)
				convey.So(exec.calls, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When shut down while idle", func() {
			go w.Run(context.Background())
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
			convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
		})

		convey.Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			go w.Run(ctx)
			cancel()

			select {
			case <-w.Done():
			case <-time.After(time.Second):
				t.Fatal("worker did not stop after cancel")
			}
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool over a real queue", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		exec := &mockExecutor{}
		rec := &recorder{}
		pool := worker.NewPool(3, q, exec, rec)
		convey.So(pool.Size(), convey.ShouldEqual, 3)

		ctx := context.Background()
		for i := 1; i <= 6; i++ {
			convey.So(q.Enqueue(ctx, job(i)), convey.ShouldBeTrue)
		}
		convey.So(q.Close(), convey.ShouldBeNil)

		pool.Start(ctx)
		waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		convey.So(pool.Wait(waitCtx), convey.ShouldBeNil)

		convey.Convey("Then each fold ran exactly once", func() {
			convey.So(rec.folds(), convey.ShouldResemble, []int{1, 2, 3, 4, 5, 6})
			convey.So(exec.calls, convey.ShouldEqual, 6)
		})

		convey.Convey("Then shutdown after completion is a no-op", func() {
			convey.So(pool.Shutdown(ctx), convey.ShouldBeNil)
		})
	})

	convey.Convey("A non-positive size falls back to the CPU count", t, func() {
		_ = logging.Init()
		pool := worker.NewPool(0, newMockQueue(), &mockExecutor{}, nil)
		convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
	})
}

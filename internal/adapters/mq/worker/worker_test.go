package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
	"go.uber.org/goleak"

	"github.com/okian/attune/internal/adapters/mq/queue"
	"github.com/okian/attune/internal/adapters/mq/worker"
	"github.com/okian/attune/internal/domain/model"
)

type mockQueue struct {
	jobs chan queue.Job
	once sync.Once
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan queue.Job, 10)}
}

func (mq *mockQueue) Dequeue(context.Context) <-chan queue.Job { return mq.jobs }

func (mq *mockQueue) Close() error {
	mq.once.Do(func() { close(mq.jobs) })
	return nil
}

func (mq *mockQueue) add(id string) {
	mq.jobs <- queue.Job{Frame: model.LandmarkFrame{ID: id, SubjectID: "s"}}
}

type recorder struct {
	mu   sync.Mutex
	seen []string
	fail map[string]bool
}

func (r *recorder) Process(_ context.Context, job queue.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, job.Frame.ID)
	if r.fail[job.Frame.ID] {
		return errors.New("bad frame")
	}
	if job.Frame.ID == "panic" {
		panic("boom")
	}
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestInMemoryWorker(t *testing.T) {
	defer goleak.VerifyNone(t)

	convey.Convey("Given a running worker", t, func() {
		q := newMockQueue()
		rec := &recorder{fail: map[string]bool{"bad": true}}
		w := worker.NewInMemoryWorker(q, rec, worker.WithName("w-test"))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When frames arrive, including a failing and a panicking one", func() {
			q.add("a")
			q.add("bad")
			q.add("panic")
			q.add("b")

			convey.Convey("Then every frame is processed and the loop survives", func() {
				convey.So(waitFor(func() bool { return rec.count() == 4 }), convey.ShouldBeTrue)
				convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the queue closes", func() {
			convey.So(q.Close(), convey.ShouldBeNil)

			convey.Convey("Then the worker stops", func() {
				select {
				case <-w.Done():
				case <-time.After(time.Second):
					t.Fatal("worker did not stop")
				}
				convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the context is cancelled", func() {
			cancel()
			<-w.Done()
			convey.So(rec.count(), convey.ShouldEqual, 0)
		})
	})
}

func TestWorkerPool(t *testing.T) {
	defer goleak.VerifyNone(t)

	convey.Convey("Given a pool over a real queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(500))
		rec := &recorder{fail: map[string]bool{"f-7": true}}
		pool := worker.NewPool(4, q, rec)
		convey.So(pool.Size(), convey.ShouldEqual, 4)
		pool.Start(context.Background())

		for i := range 100 {
			convey.So(q.Enqueue(context.Background(), queue.Job{Frame: model.LandmarkFrame{ID: fmt.Sprintf("f-%d", i)}}), convey.ShouldBeTrue)
		}

		convey.Convey("When the pool shuts down", func() {
			err := pool.Shutdown(context.Background())

			convey.Convey("Then queued frames are drained first", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(rec.count(), convey.ShouldEqual, 100)
				convey.So(pool.Processed(), convey.ShouldEqual, 100)
				convey.So(pool.Failed(), convey.ShouldEqual, 1)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given a default-sized pool", t, func() {
		pool := worker.NewPool(0, newMockQueue(), worker.ProcessorFunc(func(context.Context, queue.Job) error { return nil }))
		convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
	})
}

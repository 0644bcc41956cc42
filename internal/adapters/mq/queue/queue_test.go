package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/goleak"

	"github.com/okian/attune/internal/domain/model"
)

func job(id string) Job {
	return Job{Frame: model.LandmarkFrame{ID: id, SubjectID: "s"}}
}

func TestInMemoryQueue(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()

	Convey("Given a queue of capacity 2", t, func() {
		q := NewInMemoryQueue(WithCapacity(2), WithBufferSize(1))
		So(q.Capacity(), ShouldEqual, 2)
		So(q.Len(ctx), ShouldEqual, 0)

		Convey("When filled past capacity", func() {
			So(q.Enqueue(ctx, job("a")), ShouldBeTrue)
			So(q.Enqueue(ctx, job("b")), ShouldBeTrue)
			So(q.Enqueue(ctx, job("c")), ShouldBeFalse)
			So(q.Len(ctx), ShouldEqual, 2)
			So(q.Close(), ShouldBeNil)
		})

		Convey("When a job is dequeued", func() {
			So(q.Enqueue(ctx, job("a")), ShouldBeTrue)
			dctx, cancel := context.WithCancel(ctx)
			got := <-q.Dequeue(dctx)
			cancel()

			So(got.Frame.ID, ShouldEqual, "a")
			So(got.EnqueuedAt.IsZero(), ShouldBeFalse)
			So(q.Close(), ShouldBeNil)
		})

		Convey("When closed", func() {
			So(q.Enqueue(ctx, job("a")), ShouldBeTrue)
			So(q.Close(), ShouldBeNil)
			So(q.Close(), ShouldBeNil)
			So(q.IsClosed(), ShouldBeTrue)
			So(q.Enqueue(ctx, job("b")), ShouldBeFalse)

			Convey("Then queued jobs still drain and the channel closes", func() {
				var ids []string
				for j := range q.Dequeue(ctx) {
					ids = append(ids, j.Frame.ID)
				}
				So(ids, ShouldResemble, []string{"a"})
			})
		})
	})

	Convey("Given concurrent producers and consumers", t, func() {
		q := NewInMemoryQueue(WithCapacity(50))
		const producers, perProducer = 5, 40

		var consumed sync.WaitGroup
		var mu sync.Mutex
		seen := map[string]bool{}
		for range 3 {
			consumed.Add(1)
			go func() {
				defer consumed.Done()
				for j := range q.Dequeue(ctx) {
					mu.Lock()
					seen[j.Frame.ID] = true
					mu.Unlock()
				}
			}()
		}

		var produced sync.WaitGroup
		for p := range producers {
			produced.Add(1)
			go func() {
				defer produced.Done()
				for i := range perProducer {
					for !q.Enqueue(ctx, job(fmt.Sprintf("%d-%d", p, i))) {
						time.Sleep(time.Millisecond)
					}
				}
			}()
		}
		produced.Wait()
		So(q.Close(), ShouldBeNil)
		consumed.Wait()

		So(len(seen), ShouldEqual, producers*perProducer)
	})
}

package dedupe_test

import (
	"context"
	"sync"
	"testing"

	dedupe "github.com/okian/zfinder/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryTracker(t *testing.T) {
	Convey("Given a new InMemoryTracker", t, func() {
		ctx := context.Background()

		Convey("When creating a tracker with default options", func() {
			tr := dedupe.NewInMemoryTracker()

			Convey("Then it should start empty", func() {
				So(tr, ShouldNotBeNil)
				So(tr.Size(), ShouldEqual, 0)
			})
		})

		Convey("When recording event ids", func() {
			tr := dedupe.NewInMemoryTracker()

			Convey("And the id is new", func() {
				seen := tr.SeenAndRecord(ctx, 990)

				Convey("Then it should return false and record the id", func() {
					So(seen, ShouldBeFalse)
					So(tr.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the id was already seen", func() {
				tr.SeenAndRecord(ctx, 990)
				seen := tr.SeenAndRecord(ctx, 990)

				Convey("Then it should return true without growing", func() {
					So(seen, ShouldBeTrue)
					So(tr.Size(), ShouldEqual, 1)
				})
			})
		})

		Convey("When the bounded tracker is full", func() {
			tr := dedupe.NewInMemoryTracker(dedupe.WithMaxSize(3))
			for id := int64(1); id <= 4; id++ {
				So(tr.SeenAndRecord(ctx, id), ShouldBeFalse)
			}

			Convey("Then the oldest id is forgotten first", func() {
				So(tr.Size(), ShouldEqual, 3)
				So(tr.SeenAndRecord(ctx, 4), ShouldBeTrue)
				So(tr.SeenAndRecord(ctx, 2), ShouldBeTrue)
				So(tr.SeenAndRecord(ctx, 1), ShouldBeFalse)
				So(tr.Size(), ShouldEqual, 3)
			})
		})

		Convey("When the tracker is unbounded", func() {
			tr := dedupe.NewInMemoryTracker(dedupe.WithMaxSize(0))
			for id := int64(0); id < 1000; id++ {
				tr.SeenAndRecord(ctx, id)
			}

			Convey("Then nothing is evicted", func() {
				So(tr.Size(), ShouldEqual, 1000)
				So(tr.SeenAndRecord(ctx, 0), ShouldBeTrue)
			})
		})

		Convey("When ids are recorded concurrently", func() {
			tr := dedupe.NewInMemoryTracker()
			var wg sync.WaitGroup
			var mu sync.Mutex
			fresh := 0
			for g := 0; g < 8; g++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for id := int64(0); id < 100; id++ {
						if !tr.SeenAndRecord(ctx, id) {
							mu.Lock()
							fresh++
							mu.Unlock()
						}
					}
				}()
			}
			wg.Wait()

			Convey("Then every id is recorded exactly once", func() {
				So(fresh, ShouldEqual, 100)
				So(tr.Size(), ShouldEqual, 100)
			})
		})
	})
}

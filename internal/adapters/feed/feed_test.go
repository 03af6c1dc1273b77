package feed_test

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/flexcrm/engage/internal/adapters/feed"
	"github.com/flexcrm/engage/internal/domain/model"
)

func receive(ch <-chan model.Event) (model.Event, bool) {
	select {
	case e, ok := <-ch:
		return e, ok
	case <-time.After(time.Second):
		return model.Event{}, false
	}
}

func TestFeed(t *testing.T) {
	Convey("Given a feed with two subscribers", t, func() {
		ctx := context.Background()
		f := feed.New()

		all, cancelAll := f.Subscribe(ctx, "")
		only1, cancel1 := f.Subscribe(ctx, "deal-1")
		Reset(func() {
			cancelAll()
			cancel1()
		})

		Convey("When an insert for deal-1 is published", func() {
			f.Publish(ctx, model.Event{EventID: "e1", EntityID: "deal-1"})

			Convey("Then both subscribers receive it", func() {
				got, ok := receive(all)
				So(ok, ShouldBeTrue)
				So(got.EventID, ShouldEqual, "e1")

				got, ok = receive(only1)
				So(ok, ShouldBeTrue)
				So(got.EventID, ShouldEqual, "e1")
			})
		})

		Convey("When an insert for another deal is published", func() {
			f.Publish(ctx, model.Event{EventID: "e2", EntityID: "deal-9"})

			Convey("Then the filtered subscriber sees nothing", func() {
				_, ok := receive(all)
				So(ok, ShouldBeTrue)
				So(len(only1), ShouldEqual, 0)
			})
		})

		Convey("When a subscription is canceled", func() {
			cancel1()

			Convey("Then its channel closes and cancel is idempotent", func() {
				_, open := <-only1
				So(open, ShouldBeFalse)
				So(cancel1, ShouldNotPanic)
			})
		})

		Convey("When a subscriber's buffer is full", func() {
			tiny := feed.New(feed.WithBufferSize(1))
			ch, cancel := tiny.Subscribe(ctx, "")
			Reset(cancel)

			tiny.Publish(ctx, model.Event{EventID: "a", EntityID: "deal-1"})
			tiny.Publish(ctx, model.Event{EventID: "b", EntityID: "deal-1"})

			Convey("Then the overflow delivery is dropped, not blocked", func() {
				got, ok := receive(ch)
				So(ok, ShouldBeTrue)
				So(got.EventID, ShouldEqual, "a")
				So(len(ch), ShouldEqual, 0)
			})
		})

		Convey("When the feed is closed", func() {
			f.Close()

			Convey("Then subscriber channels close", func() {
				_, open := <-all
				So(open, ShouldBeFalse)
			})

			Convey("And publishing is a no-op", func() {
				So(func() { f.Publish(ctx, model.Event{EntityID: "deal-1"}) }, ShouldNotPanic)
			})

			Convey("And new subscriptions come back closed", func() {
				ch, cancel := f.Subscribe(ctx, "")
				defer cancel()
				_, open := <-ch
				So(open, ShouldBeFalse)
			})
		})
	})
}

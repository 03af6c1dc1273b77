package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/flexcrm/engage/internal/adapters/repository"
	"github.com/flexcrm/engage/internal/domain/model"
)

func TestInMemoryEventStore(t *testing.T) {
	Convey("Given an event store with events for two deals", t, func() {
		ctx := context.Background()
		store := repository.NewInMemoryEventStore()
		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		events := []model.Event{
			{EventID: "e1", EntityID: "deal-1", Subtype: "flex_deal_viewed", TS: base},
			{EventID: "e2", EntityID: "deal-2", Subtype: "flex_nda_requested", TS: base.Add(time.Minute)},
			{EventID: "e3", EntityID: "deal-1", Subtype: "crm_note_added", TS: base.Add(2 * time.Minute)},
			{EventID: "e4", EntityID: "deal-1", Subtype: "flex_file_downloaded", TS: base.Add(3 * time.Minute)},
		}
		for _, e := range events {
			So(store.Append(ctx, e), ShouldBeNil)
		}

		Convey("When listing by one entity with a subtype prefix", func() {
			got, err := store.ListByEntities(ctx, []string{"deal-1"}, "flex_")

			Convey("Then only matching events return, in insertion order", func() {
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 2)
				So(got[0].EventID, ShouldEqual, "e1")
				So(got[1].EventID, ShouldEqual, "e4")
			})
		})

		Convey("When listing by several entities", func() {
			got, err := store.ListByEntities(ctx, []string{"deal-2", "deal-1"}, "")

			Convey("Then insertion order is preserved across entities", func() {
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 4)
				So(got[0].EventID, ShouldEqual, "e1")
				So(got[1].EventID, ShouldEqual, "e2")
			})
		})

		Convey("When the same entity id is requested twice", func() {
			got, err := store.ListByEntities(ctx, []string{"deal-1", "deal-1"}, "")

			Convey("Then each event returns exactly once", func() {
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 3)
			})
		})

		Convey("When listing with an empty entity set", func() {
			_, err := store.ListByEntities(ctx, nil, "flex_")

			Convey("Then the unbounded query is refused", func() {
				So(errors.Is(err, repository.ErrEmptyEntitySet), ShouldBeTrue)
			})
		})

		Convey("When listing an unknown entity", func() {
			got, err := store.ListByEntities(ctx, []string{"deal-404"}, "flex_")

			Convey("Then the result is empty, not an error", func() {
				So(err, ShouldBeNil)
				So(got, ShouldBeEmpty)
			})
		})

		Convey("When listing recent events", func() {
			got, err := store.ListRecent(ctx, 2)

			Convey("Then the newest events come first", func() {
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 2)
				So(got[0].EventID, ShouldEqual, "e4")
				So(got[1].EventID, ShouldEqual, "e3")
			})
		})

		Convey("When the store is closed", func() {
			So(store.Close(), ShouldBeNil)

			Convey("Then reads and writes are rejected", func() {
				So(errors.Is(store.Append(ctx, model.Event{EntityID: "deal-1"}), repository.ErrClosed), ShouldBeTrue)
				_, err := store.ListByEntities(ctx, []string{"deal-1"}, "")
				So(errors.Is(err, repository.ErrClosed), ShouldBeTrue)
			})
		})

		Convey("When counting", func() {
			So(store.Count(ctx), ShouldEqual, 4)
		})
	})
}

func TestInMemoryPreferenceStore(t *testing.T) {
	Convey("Given a preference store", t, func() {
		ctx := context.Background()
		store := repository.NewInMemoryPreferenceStore()

		Convey("When reading an unknown user", func() {
			prefs, err := store.Get(ctx, "user-1")

			Convey("Then an empty map returns", func() {
				So(err, ShouldBeNil)
				So(prefs, ShouldBeEmpty)
			})
		})

		Convey("When storing and reading back", func() {
			So(store.Put(ctx, "user-1", map[string]bool{"engagement": false}), ShouldBeNil)
			prefs, err := store.Get(ctx, "user-1")

			Convey("Then the stored toggles return", func() {
				So(err, ShouldBeNil)
				So(prefs["engagement"], ShouldBeFalse)
			})

			Convey("And mutating the returned map does not affect the store", func() {
				prefs["engagement"] = true
				again, _ := store.Get(ctx, "user-1")
				So(again["engagement"], ShouldBeFalse)
			})
		})
	})
}

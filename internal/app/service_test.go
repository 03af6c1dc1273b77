package app_test

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/flexcrm/engage/internal/app"
	"github.com/flexcrm/engage/internal/domain/model"
	"github.com/flexcrm/engage/pkg/logger"
)

func newService(extra ...app.Option) *app.Service {
	opts := append([]app.Option{
		app.WithScoreWeights(map[string]int{
			"flex_deal_viewed":          1,
			"flex_question_asked":       5,
			"flex_file_downloaded":      10,
			"flex_term_sheet_requested": 25,
			"flex_nda_requested":        50,
		}),
		app.WithTierBreakpoints(50, 15, 1),
		app.WithHighValueSubtypes([]string{"flex_term_sheet_requested", "flex_nda_requested"}),
		app.WithCategories(map[string]string{
			"flex_deal_viewed":   "engagement",
			"flex_nda_requested": "milestone",
		}),
	}, extra...)
	return app.New(opts...)
}

func TestServiceEngagement(t *testing.T) {
	_ = logger.Init()

	Convey("Given a started service with the documented scenario ingested", t, func() {
		ctx := context.Background()
		svc := newService()
		So(svc.Start(ctx), ShouldBeNil)
		Reset(svc.Stop)

		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		ingest := []model.Event{
			{EventID: "e1", EntityID: "deal-1", Subtype: "flex_deal_viewed", ActorID: "lender-a", TS: base},
			{EventID: "e2", EntityID: "deal-1", Subtype: "flex_file_downloaded", ActorID: "lender-a", TS: base.Add(time.Hour), Metadata: map[string]any{"file_id": "file-7"}},
			{EventID: "e3", EntityID: "deal-1", Subtype: "flex_nda_requested", ActorID: "lender-b", TS: base.Add(2 * time.Hour)},
		}
		for _, e := range ingest {
			dup, err := svc.AppendEvent(ctx, e)
			So(err, ShouldBeNil)
			So(dup, ShouldBeFalse)
		}

		Convey("When reading the engagement for deal-1", func() {
			aggs, err := svc.Engagement(ctx, []string{"deal-1"})

			Convey("Then the aggregate scores 61 and is hot", func() {
				So(err, ShouldBeNil)
				So(aggs["deal-1"].Score, ShouldEqual, 61)
				So(aggs["deal-1"].Tier, ShouldEqual, model.TierHot)
				So(aggs["deal-1"].ActorCount, ShouldEqual, 2)
				So(aggs["deal-1"].Flags["flex_nda_requested"], ShouldBeTrue)
				So(aggs["deal-1"].Artifacts, ShouldResemble, []string{"file-7"})
			})

			Convey("And the aggregate lands in the cache", func() {
				cached, ok := svc.CachedAggregate("deal-1")
				So(ok, ShouldBeTrue)
				So(cached.Score, ShouldEqual, 61)
			})
		})

		Convey("When the same entity id is requested twice", func() {
			aggs, err := svc.Engagement(ctx, []string{"deal-1", "deal-1"})

			Convey("Then events are not double counted", func() {
				So(err, ShouldBeNil)
				So(aggs["deal-1"].Score, ShouldEqual, 61)
				So(aggs["deal-1"].Counts["flex_deal_viewed"], ShouldEqual, 1)
			})
		})

		Convey("When reading with an empty id list", func() {
			aggs, err := svc.Engagement(ctx, nil)

			Convey("Then an empty result returns without a store query", func() {
				So(err, ShouldBeNil)
				So(aggs, ShouldBeEmpty)
			})
		})

		Convey("When re-submitting a seen event id", func() {
			dup, err := svc.AppendEvent(ctx, model.Event{EventID: "e1", EntityID: "deal-1", Subtype: "flex_deal_viewed"})

			Convey("Then it is reported as a duplicate and not re-counted", func() {
				So(err, ShouldBeNil)
				So(dup, ShouldBeTrue)

				aggs, err := svc.Engagement(ctx, []string{"deal-1"})
				So(err, ShouldBeNil)
				So(aggs["deal-1"].Score, ShouldEqual, 61)
			})
		})

		Convey("When reading the per-actor view", func() {
			actors, err := svc.ActorEngagement(ctx, "deal-1")

			Convey("Then lender-b leads with the NDA request", func() {
				So(err, ShouldBeNil)
				So(actors, ShouldHaveLength, 2)
				So(actors[0].ActorKey, ShouldEqual, "lender-b")
				So(actors[0].Score, ShouldEqual, 50)
			})
		})

		Convey("When reading recent activity", func() {
			events, err := svc.RecentActivity(ctx, 2)

			Convey("Then the newest events come first", func() {
				So(err, ShouldBeNil)
				So(events, ShouldHaveLength, 2)
				So(events[0].EventID, ShouldEqual, "e3")
			})
		})

		Convey("When weights are hot-reloaded", func() {
			svc.UpdateWeights(map[string]int{"flex_deal_viewed": 100})
			aggs, err := svc.Engagement(ctx, []string{"deal-1"})

			Convey("Then the next read uses the new table", func() {
				So(err, ShouldBeNil)
				So(aggs["deal-1"].Score, ShouldEqual, 100)
				So(aggs["deal-1"].Tier, ShouldEqual, model.TierHot)
			})
		})

		Convey("When an insert arrives for a watched entity", func() {
			_, err := svc.Engagement(ctx, []string{"deal-1"})
			So(err, ShouldBeNil)

			_, err = svc.AppendEvent(ctx, model.Event{EventID: "e9", EntityID: "deal-1", Subtype: "flex_question_asked", TS: base.Add(3 * time.Hour)})
			So(err, ShouldBeNil)

			Convey("Then the workers refresh the cached aggregate", func() {
				refreshed := func() bool {
					agg, ok := svc.CachedAggregate("deal-1")
					return ok && agg.Score == 66
				}
				deadline := time.Now().Add(2 * time.Second)
				for time.Now().Before(deadline) && !refreshed() {
					time.Sleep(5 * time.Millisecond)
				}
				So(refreshed(), ShouldBeTrue)
			})
		})

		Convey("When reading stats", func() {
			stats := svc.GetStats()

			Convey("Then counters reflect the ingested events", func() {
				So(stats["started"], ShouldBeTrue)
				So(stats["events"], ShouldEqual, 3)
			})
		})
	})
}

func TestServiceNotifications(t *testing.T) {
	_ = logger.Init()

	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := newService()
		So(svc.Start(ctx), ShouldBeNil)
		Reset(svc.Stop)

		Convey("When a notification is created for a mapped subtype", func() {
			n, err := svc.CreateNotification(ctx, model.Notification{
				EntityID: "deal-1",
				Subtype:  "flex_nda_requested",
				Message:  "Beta Partners requested an NDA",
			})
			So(err, ShouldBeNil)

			Convey("Then the category is derived from the mapping", func() {
				So(n.Category, ShouldEqual, "milestone")
				So(n.Status, ShouldEqual, model.StatusPending)
			})

			Convey("And it is visible to a user with default preferences", func() {
				list, err := svc.NotificationsFor(ctx, "user-1", "")
				So(err, ShouldBeNil)
				So(list, ShouldHaveLength, 1)
			})

			Convey("And disabling the category hides it", func() {
				So(svc.SetPreferences(ctx, "user-1", map[string]bool{"milestone": false}), ShouldBeNil)
				list, err := svc.NotificationsFor(ctx, "user-1", "")
				So(err, ShouldBeNil)
				So(list, ShouldBeEmpty)
			})

			Convey("And deciding it transitions the status once", func() {
				decided, err := svc.DecideNotification(ctx, n.ID, model.DecisionApproved)
				So(err, ShouldBeNil)
				So(decided.Status, ShouldEqual, model.StatusApproved)

				_, err = svc.DecideNotification(ctx, n.ID, model.DecisionDenied)
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When a notification uses an unmapped subtype", func() {
			_, err := svc.CreateNotification(ctx, model.Notification{
				EntityID: "deal-1",
				Subtype:  "flex_brand_new_event",
			})
			So(err, ShouldBeNil)

			Convey("Then it is hidden from every user", func() {
				list, err := svc.NotificationsFor(ctx, "user-1", "")
				So(err, ShouldBeNil)
				So(list, ShouldBeEmpty)
			})
		})
	})
}

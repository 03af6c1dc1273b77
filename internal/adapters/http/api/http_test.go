package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/flexcrm/engage/internal/adapters/http/api"
	"github.com/flexcrm/engage/internal/domain/model"
	"github.com/flexcrm/engage/internal/domain/notify"
)

// fakeService cans responses for every handler dependency.
type fakeService struct {
	appended     []model.Event
	duplicate    bool
	appendErr    error
	aggs         map[string]*model.Aggregate
	aggErr       error
	actors       []*model.ActorAggregate
	recent       []model.Event
	created      model.Notification
	list         []model.Notification
	readErr      error
	decided      model.Notification
	decideErr    error
	prefs        map[string]bool
	storedPrefs  map[string]bool
	lastEntityID string
	lastIDs      []string
}

func (f *fakeService) AppendEvent(_ context.Context, e model.Event) (bool, error) {
	f.appended = append(f.appended, e)
	return f.duplicate, f.appendErr
}

func (f *fakeService) Engagement(_ context.Context, ids []string) (map[string]*model.Aggregate, error) {
	f.lastIDs = ids
	if f.aggErr != nil {
		return nil, f.aggErr
	}
	if len(ids) == 0 {
		return map[string]*model.Aggregate{}, nil
	}
	return f.aggs, nil
}

func (f *fakeService) ActorEngagement(_ context.Context, entityID string) ([]*model.ActorAggregate, error) {
	f.lastEntityID = entityID
	return f.actors, nil
}

func (f *fakeService) RecentActivity(_ context.Context, limit int) ([]model.Event, error) {
	if limit < len(f.recent) {
		return f.recent[:limit], nil
	}
	return f.recent, nil
}

func (f *fakeService) CreateNotification(_ context.Context, n model.Notification) (model.Notification, error) {
	f.created = n
	n.ID = "n-1"
	n.Status = model.StatusPending
	return n, nil
}

func (f *fakeService) NotificationsFor(_ context.Context, _ string, _ model.NotificationStatus) ([]model.Notification, error) {
	return f.list, nil
}

func (f *fakeService) MarkNotificationRead(_ context.Context, _ string) error {
	return f.readErr
}

func (f *fakeService) DecideNotification(_ context.Context, _ string, _ model.Decision) (model.Notification, error) {
	return f.decided, f.decideErr
}

func (f *fakeService) Preferences(_ context.Context, _ string) (map[string]bool, error) {
	return f.prefs, nil
}

func (f *fakeService) SetPreferences(_ context.Context, _ string, prefs map[string]bool) error {
	f.storedPrefs = prefs
	return nil
}

func (f *fakeService) GetStats() map[string]interface{} {
	return map[string]interface{}{"events": 3}
}

func newTestServer(f *fakeService) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(f, f, 200).Register(context.Background(), mux)
	return mux
}

func TestPostEvent(t *testing.T) {
	Convey("Given the events route", t, func() {
		f := &fakeService{}
		mux := newTestServer(f)

		Convey("When posting a valid event", func() {
			body := `{"entity_id":"deal-1","subtype":"flex_deal_viewed","ts":"2026-03-01T12:00:00Z"}`
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body)))

			Convey("Then it is accepted", func() {
				So(rec.Code, ShouldEqual, http.StatusAccepted)
				So(f.appended, ShouldHaveLength, 1)
				So(f.appended[0].Subtype, ShouldEqual, "flex_deal_viewed")
				So(f.appended[0].TS, ShouldEqual, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
			})
		})

		Convey("When posting a duplicate event", func() {
			f.duplicate = true
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events",
				strings.NewReader(`{"event_id":"e1","entity_id":"deal-1","subtype":"flex_deal_viewed"}`)))

			Convey("Then the ack marks it duplicate", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var ack map[string]any
				So(json.Unmarshal(rec.Body.Bytes(), &ack), ShouldBeNil)
				So(ack["duplicate"], ShouldBeTrue)
			})
		})

		Convey("When the entity id is missing", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events",
				strings.NewReader(`{"subtype":"flex_deal_viewed"}`)))

			Convey("Then the request is rejected", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the timestamp is malformed", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events",
				strings.NewReader(`{"entity_id":"deal-1","subtype":"flex_deal_viewed","ts":"yesterday"}`)))

			Convey("Then the request is rejected", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestGetEngagement(t *testing.T) {
	Convey("Given the engagement route", t, func() {
		f := &fakeService{
			aggs: map[string]*model.Aggregate{
				"deal-1": {EntityID: "deal-1", Score: 61, Tier: model.TierHot},
			},
		}
		mux := newTestServer(f)

		Convey("When requesting known entities", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/engagement?entity_ids=deal-1,%20deal-2,", nil))

			Convey("Then the id list is parsed and aggregates return", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(f.lastIDs, ShouldResemble, []string{"deal-1", "deal-2"})

				var got map[string]model.Aggregate
				So(json.Unmarshal(rec.Body.Bytes(), &got), ShouldBeNil)
				So(got["deal-1"].Score, ShouldEqual, 61)
				So(got["deal-1"].Tier, ShouldEqual, model.TierHot)
			})
		})

		Convey("When no ids are given", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/engagement", nil))

			Convey("Then an empty object returns", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(strings.TrimSpace(rec.Body.String()), ShouldEqual, "{}")
			})
		})

		Convey("When the refresh fails", func() {
			f.aggErr = errors.New("store closed")
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/engagement?entity_ids=deal-1", nil))

			Convey("Then the handler reports service unavailable", func() {
				So(rec.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(rec.Body.String(), ShouldContainSubstring, "could_not_refresh")
			})
		})
	})
}

func TestGetActors(t *testing.T) {
	Convey("Given the per-actor route", t, func() {
		f := &fakeService{
			actors: []*model.ActorAggregate{
				{ActorKey: "lender-b", Score: 50, Tier: model.TierHot},
				{ActorKey: "lender-a", Score: 11, Tier: model.TierCold},
			},
		}
		mux := newTestServer(f)

		Convey("When requesting a deal's actors", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/engagement/deal-1/actors", nil))

			Convey("Then the ordered list returns", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(f.lastEntityID, ShouldEqual, "deal-1")

				var got []model.ActorAggregate
				So(json.Unmarshal(rec.Body.Bytes(), &got), ShouldBeNil)
				So(got, ShouldHaveLength, 2)
				So(got[0].ActorKey, ShouldEqual, "lender-b")
			})
		})

		Convey("When the path is malformed", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/engagement/deal-1/other", nil))

			Convey("Then the request is rejected", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestGetRecentActivity(t *testing.T) {
	Convey("Given the recent-activity route", t, func() {
		f := &fakeService{
			recent: []model.Event{
				{EventID: "e2", EntityID: "deal-1", Subtype: "flex_nda_requested"},
				{EventID: "e1", EntityID: "deal-1", Subtype: "flex_deal_viewed"},
			},
		}
		mux := newTestServer(f)

		Convey("When requesting with a valid limit", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/activity/recent?limit=10", nil))

			Convey("Then the newest-first list returns", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var got []map[string]any
				So(json.Unmarshal(rec.Body.Bytes(), &got), ShouldBeNil)
				So(got, ShouldHaveLength, 2)
				So(got[0]["event_id"], ShouldEqual, "e2")
			})
		})

		Convey("When the limit is missing or invalid", func() {
			for _, q := range []string{"", "?limit=0", "?limit=abc"} {
				rec := httptest.NewRecorder()
				mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/activity/recent"+q, nil))
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			}
		})

		Convey("When the limit exceeds the cap", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/activity/recent?limit=500", nil))

			Convey("Then the cap is enforced", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				So(rec.Body.String(), ShouldContainSubstring, "limit_exceeded")
			})
		})
	})
}

func TestNotificationRoutes(t *testing.T) {
	Convey("Given the notification routes", t, func() {
		f := &fakeService{
			list: []model.Notification{{ID: "n-1", Status: model.StatusPending}},
		}
		mux := newTestServer(f)

		Convey("When creating a notification", func() {
			body := `{"entity_id":"deal-1","subtype":"flex_nda_requested","message":"NDA requested"}`
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/notifications", strings.NewReader(body)))

			Convey("Then it is created pending", func() {
				So(rec.Code, ShouldEqual, http.StatusCreated)
				var got model.Notification
				So(json.Unmarshal(rec.Body.Bytes(), &got), ShouldBeNil)
				So(got.ID, ShouldEqual, "n-1")
				So(got.Status, ShouldEqual, model.StatusPending)
			})
		})

		Convey("When listing without a user id", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notifications", nil))

			Convey("Then the request is rejected", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When listing for a user", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notifications?user_id=user-1", nil))

			Convey("Then the visible list returns", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var got []model.Notification
				So(json.Unmarshal(rec.Body.Bytes(), &got), ShouldBeNil)
				So(got, ShouldHaveLength, 1)
			})
		})

		Convey("When marking read", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/notifications/n-1/read", nil))

			Convey("Then the action succeeds", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When deciding an already decided notification", func() {
			f.decideErr = notify.ErrAlreadyDecided
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/notifications/n-1/decision",
				strings.NewReader(`{"decision":"denied"}`)))

			Convey("Then the conflict surfaces as 409", func() {
				So(rec.Code, ShouldEqual, http.StatusConflict)
				So(rec.Body.String(), ShouldContainSubstring, "already_decided")
			})
		})

		Convey("When deciding an unknown notification", func() {
			f.decideErr = notify.ErrNotFound
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/notifications/missing/decision",
				strings.NewReader(`{"decision":"approved"}`)))

			Convey("Then the handler reports 404", func() {
				So(rec.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the action segment is unknown", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/notifications/n-1/archive", nil))

			Convey("Then the request is rejected", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestPreferenceRoutes(t *testing.T) {
	Convey("Given the preference routes", t, func() {
		f := &fakeService{prefs: map[string]bool{"engagement": false}}
		mux := newTestServer(f)

		Convey("When reading a user's preferences", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/preferences/user-1", nil))

			Convey("Then the toggle map returns", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var got map[string]bool
				So(json.Unmarshal(rec.Body.Bytes(), &got), ShouldBeNil)
				So(got["engagement"], ShouldBeFalse)
			})
		})

		Convey("When replacing them", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/preferences/user-1",
				strings.NewReader(`{"milestone":true}`)))

			Convey("Then the new map is stored", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(f.storedPrefs, ShouldResemble, map[string]bool{"milestone": true})
			})
		})

		Convey("When the user id is missing", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/preferences/", nil))

			Convey("Then the request is rejected", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestStats(t *testing.T) {
	Convey("Given the stats route", t, func() {
		f := &fakeService{}
		mux := newTestServer(f)

		Convey("When requesting stats", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

			Convey("Then provider values return", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `"events":3`)
			})
		})
	})
}

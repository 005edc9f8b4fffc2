package eventreplay_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/upskill/internal/adapters/mq/worker"
	"github.com/okian/upskill/internal/adapters/repository"
	service "github.com/okian/upskill/internal/app"
	"github.com/okian/upskill/internal/domain/types"
	"github.com/okian/upskill/internal/eventreplay"
	"github.com/okian/upskill/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

const catalog = `
roles:
  - role_id: backend
    skills:
      Go: {required_level: 4, importance: 5}
      SQL: {required_level: 3, importance: 3}
modules:
  - module_id: go-101
    skills_covered:
      - skill: Go
        target_level: 4
`

const events = `
{"type":"user_created","user_id":"u1","role_id":"backend","resume_text":"Go and SQL","idempotency_key":"c1"}
{"type":"user_created","user_id":"u2","role_id":"backend","resume_text":"none"}
{"type":"module_completed","user_id":"u1","module_id":"go-101","skill":"Go","target_level":4,"completion_type":"passed","idempotency_key":"m1"}
{"type":"module_completed","user_id":"u1","module_id":"go-101","skill":"Go","target_level":4,"completion_type":"passed","idempotency_key":"m1"}
{"type":"module_completed","user_id":"u2","module_id":"nope","skill":"Go","target_level":4,"completion_type":"passed"}
{"type":"module_completed","user_id":"u2","skill":"Go"}
not json
`

func TestRunInProcess(t *testing.T) {
	convey.Convey("Given a supervisor with a seeded catalog", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		store := repository.NewMemoryStore()
		c, err := repository.ParseCatalog([]byte(catalog))
		convey.So(err, convey.ShouldBeNil)
		convey.So(repository.Seed(ctx, store, c), convey.ShouldBeNil)
		svc := service.New(service.WithStore(store), service.WithLogger(logger.Discard()))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		recs, err := eventreplay.Read(strings.NewReader(events))
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When the events are replayed across workers", func() {
			sum, err := eventreplay.Run(ctx, eventreplay.Config{Workers: 3, QueueSize: 4, Logger: logger.Discard()},
				recs, eventreplay.Supervisor{Service: svc})

			convey.Convey("Then every outcome should be tallied", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(sum.Total, convey.ShouldEqual, 7)
				convey.So(sum.Applied, convey.ShouldEqual, 3)
				convey.So(sum.Replayed, convey.ShouldEqual, 1)
				convey.So(sum.Rejected, convey.ShouldEqual, 3)
				convey.So(sum.Failed, convey.ShouldEqual, 0)
				convey.So(sum.ByCode[types.CodeNotFound], convey.ShouldEqual, 1)
				convey.So(sum.ByCode[types.CodeMissingField], convey.ShouldEqual, 1)
				convey.So(sum.ByCode[types.CodeInvalidPayload], convey.ShouldEqual, 1)
				convey.So(sum.String(), convey.ShouldContainSubstring, "applied=3")
			})

			convey.Convey("Then per-user order should hold", func() {
				p, err := svc.Profile(ctx, "u1")
				convey.So(err, convey.ShouldBeNil)
				convey.So(p.Skills["Go"].Level, convey.ShouldBeGreaterThan, 2.0)

				audit, err := svc.Audit(ctx, "u1")
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(audit), convey.ShouldEqual, 3)
				convey.So(audit[0].EventType, convey.ShouldEqual, "user_created")
				convey.So(audit[2].Outcome, convey.ShouldEqual, "replayed")
			})
		})
	})
}

func TestHTTPDispatcher(t *testing.T) {
	convey.Convey("Given a server answering like the events endpoint", t, func() {
		var mu sync.Mutex
		var paths []string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			paths = append(paths, r.Method+" "+r.URL.Path)
			mu.Unlock()

			w.Header().Set("Content-Type", "application/json")
			switch {
			case r.ContentLength == 2:
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"x"}}`))
			case r.ContentLength == 3:
				w.Header().Set(eventreplay.ReplayedHeader, "true")
				_, _ = w.Write([]byte(`{"ok":true,"todo":"x"}`))
			case r.ContentLength == 4:
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte(`upstream gone`))
			default:
				_, _ = w.Write([]byte(`{"ok":true,"todo":"x"}`))
			}
		}))
		defer srv.Close()

		d := eventreplay.NewHTTP(srv.URL+"/", time.Second)
		ctx := context.Background()

		convey.Convey("Then success, replay and domain errors should map to outcomes", func() {
			o, err := d.Dispatch(ctx, []byte(`{"a":1}`))
			convey.So(err, convey.ShouldBeNil)
			convey.So(o, convey.ShouldResemble, eventreplay.Outcome{})

			o, err = d.Dispatch(ctx, []byte(`{}`))
			convey.So(err, convey.ShouldBeNil)
			convey.So(o.Code, convey.ShouldEqual, types.CodeNotFound)

			o, err = d.Dispatch(ctx, []byte(`"x"`))
			convey.So(err, convey.ShouldBeNil)
			convey.So(o.Replayed, convey.ShouldBeTrue)

			mu.Lock()
			convey.So(paths[0], convey.ShouldEqual, "POST /events")
			mu.Unlock()
		})

		convey.Convey("Then a non-JSON error should be a transport failure", func() {
			_, err := d.Dispatch(ctx, []byte(`"xy"`))
			convey.So(errors.Is(err, eventreplay.ErrTransport), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given nothing listening", t, func() {
		d := eventreplay.NewHTTP("http://127.0.0.1:1", 200*time.Millisecond)
		_, err := d.Dispatch(context.Background(), []byte(`{}`))
		convey.So(errors.Is(err, eventreplay.ErrTransport), convey.ShouldBeTrue)
	})
}

// slowDispatcher applies every event after a fixed delay, ignoring ctx.
type slowDispatcher struct {
	delay time.Duration
	calls atomic.Int64
}

func (d *slowDispatcher) Dispatch(_ context.Context, _ []byte) (eventreplay.Outcome, error) {
	time.Sleep(d.delay)
	d.calls.Add(1)
	return eventreplay.Outcome{}, nil
}

func slowRecords(n int) []eventreplay.Record {
	recs := make([]eventreplay.Record, n)
	for i := range recs {
		recs[i] = eventreplay.Record{Seq: i, UserID: "u1", Raw: []byte(`{}`)}
	}
	return recs
}

func TestRunSlowDrain(t *testing.T) {
	convey.Convey("Given one worker and a dispatcher slower than any fixed drain window", t, func() {
		d := &slowDispatcher{delay: 100 * time.Millisecond}
		recs := slowRecords(60)

		convey.Convey("When the run has enough budget", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			sum, err := eventreplay.Run(ctx, eventreplay.Config{Workers: 1, QueueSize: 256, Logger: logger.Discard()}, recs, d)

			convey.Convey("Then every record should be dispatched before Run returns", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(d.calls.Load(), convey.ShouldEqual, 60)
				convey.So(sum.Applied, convey.ShouldEqual, 60)
				convey.So(sum.Skipped, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the budget ends mid-run", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 350*time.Millisecond)
			defer cancel()
			sum, err := eventreplay.Run(ctx, eventreplay.Config{Workers: 1, QueueSize: 256, Logger: logger.Discard()}, recs, d)
			atReturn := d.calls.Load()
			time.Sleep(300 * time.Millisecond)

			convey.Convey("Then Run should report the abort and leave nothing running", func() {
				convey.So(errors.Is(err, worker.ErrShutdownAborted), convey.ShouldBeTrue)
				convey.So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
				convey.So(d.calls.Load(), convey.ShouldEqual, atReturn)
				convey.So(int64(sum.Applied), convey.ShouldEqual, atReturn)
				convey.So(sum.Skipped, convey.ShouldBeGreaterThan, 0)
				convey.So(sum.Applied+sum.Skipped, convey.ShouldEqual, 60)
				convey.So(sum.String(), convey.ShouldContainSubstring, "skipped=")
			})
		})
	})
}

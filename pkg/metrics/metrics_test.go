package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should use the upskill namespace", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "upskill")
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_ns"),
				WithSubsystem("test_sub"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithRefreshInterval(5*time.Second),
				WithPrometheusRegistry(registry),
			)

			Convey("Then options should be applied", func() {
				So(manager.namespace, ShouldEqual, "test_ns")
				So(manager.subsystem, ShouldEqual, "test_sub")
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
				So(manager.RefreshInterval(), ShouldEqual, 5*time.Second)
			})

			Convey("And metrics should be registered on the given registry", func() {
				manager.eventsHandled.WithLabelValues("module_completed", "applied").Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if strings.HasPrefix(f.GetName(), "test_ns_test_sub_events_handled_total") {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When empty options are passed", func() {
			manager := NewManager(
				WithNamespace(""),
				WithHistogramBuckets(nil),
				WithRefreshInterval(0),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "upskill")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording an idempotent replay", func() {
			before := testutil.ToFloat64(globalManager.idempotentReplays)
			RecordIdempotentReplay()

			Convey("Then the counter should increase by one", func() {
				So(testutil.ToFloat64(globalManager.idempotentReplays), ShouldEqual, before+1)
			})
		})

		Convey("When recording a handled event", func() {
			c := globalManager.eventsHandled.WithLabelValues("user_created", "applied")
			before := testutil.ToFloat64(c)
			RecordEventHandled("user_created", "applied", 1.5)

			Convey("Then the labelled counter should increase", func() {
				So(testutil.ToFloat64(c), ShouldEqual, before+1)
			})
		})

		Convey("When recording a handled event with no type", func() {
			c := globalManager.eventsHandled.WithLabelValues("unknown", "rejected")
			before := testutil.ToFloat64(c)
			RecordEventHandled("", "rejected", 0.2)

			Convey("Then it should be filed under unknown", func() {
				So(testutil.ToFloat64(c), ShouldEqual, before+1)
			})
		})

		Convey("When recording gauges and store operations", func() {
			UpdateQueueSize(7)
			UpdateWorkerCount(3)
			RecordStoreOperation("memory", "save_profile", 0.1, true)

			Convey("Then values should be visible", func() {
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.workerCount), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.storeErrors.WithLabelValues("memory", "save_profile")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("Then the custom registry should be exposed", func() {
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}

package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "badgeboard")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithMetricPrefix("pre"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(true),
				WithRefreshInterval(10*time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.queueEnqueued.Inc()

			Convey("Then the runtime settings are applied", func() {
				So(manager.Enabled(), ShouldBeTrue)
				So(manager.RefreshInterval(), ShouldEqual, 10*time.Second)
			})

			Convey("Then collectors carry the configured names", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_namespace_test_subsystem_pre_queue_enqueued_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestMetricsSwitches(t *testing.T) {
	Convey("Given a manager built with collection off", t, func() {
		manager := NewManager(
			WithPrometheusRegistry(prometheus.NewRegistry()),
			WithMetricsEnabled(false),
			WithRefreshInterval(0),
		)

		Convey("Then it reports disabled and keeps the default interval", func() {
			So(manager.Enabled(), ShouldBeFalse)
			So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
		})
	})

	Convey("Given the global recorders", t, func() {
		Reset(func() {
			SetEnabled(true)
			So(SetRefreshInterval(defaultRefreshInterval), ShouldBeNil)
		})

		Convey("When collection is switched off", func() {
			before := testutil.ToFloat64(globalManager.queueEnqueued)
			SetEnabled(false)
			RecordQueueEnqueue()
			UpdateQueueSize(99)

			Convey("Then recorders leave the collectors alone", func() {
				So(Enabled(), ShouldBeFalse)
				So(testutil.ToFloat64(globalManager.queueEnqueued), ShouldEqual, before)
				So(testutil.ToFloat64(globalManager.queueSize), ShouldNotEqual, 99)
			})

			Convey("And switched back on", func() {
				SetEnabled(true)
				RecordQueueEnqueue()

				Convey("Then recording resumes", func() {
					So(testutil.ToFloat64(globalManager.queueEnqueued), ShouldEqual, before+1)
				})
			})
		})

		Convey("When the refresh interval is changed", func() {
			So(SetRefreshInterval(250*time.Millisecond), ShouldBeNil)

			Convey("Then pollers see the new value", func() {
				So(RefreshInterval(), ShouldEqual, 250*time.Millisecond)
			})
		})

		Convey("When the refresh interval is not positive", func() {
			err := SetRefreshInterval(0)

			Convey("Then it is rejected and the old value kept", func() {
				So(errors.Is(err, ErrInvalidRefreshInterval), ShouldBeTrue)
				So(RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording ledger and asset metrics", func() {
			before := testutil.ToFloat64(globalManager.assetLookups.WithLabelValues("badge", "pending"))
			RecordAssetLookup("badge", "pending")
			UpdateLedgerSizes(3, 1)
			RecordLedgerDedupeHit("badge")

			Convey("Then the values are observable", func() {
				So(testutil.ToFloat64(globalManager.assetLookups.WithLabelValues("badge", "pending")), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.ledgerInFlight), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.ledgerResponseReady), ShouldEqual, 1)
			})
		})

		Convey("When recording the remaining metrics", func() {
			So(func() {
				RecordMaterializeLatency(2.5)
				RecordMaterializeFailure("decode")
				UpdateQueueSize(4)
				UpdateQueueCapacity(100)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueRejected("full")
				RecordQueueWait(1)
				UpdateWorkerActiveCount(4)
				RecordJobLatency("badge", 12)
				RecordJobError("badge")
				RecordRemoteRequest("download_asset", "200")
				RecordLeaderboardMerge()
				RecordLeaderboardDesync()
				UpdateLeaderboardCount(2)
				RecordLeaderboardTransition("active")
				RecordHTTPRequest("healthz", "GET", "200")
				RecordHTTPRequestDuration("healthz", "GET", "200", 1)
				RecordErrorByComponent("fetch", "timeout")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(8)
			}, ShouldNotPanic)
		})

		Convey("When gathering the custom registry", func() {
			RecordLeaderboardMerge()
			families, err := GetRegistry().Gather()

			Convey("Then every family is namespaced", func() {
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				for _, f := range families {
					So(strings.HasPrefix(f.GetName(), "badgeboard_client_"), ShouldBeTrue)
				}
			})
		})
	})
}

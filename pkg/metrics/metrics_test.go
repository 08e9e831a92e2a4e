package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a dedicated registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 2}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			m.cacheHits.Inc()

			Convey("Then its collectors are registered under the namespace", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := map[string]bool{}
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["test_unit_cache_hits_total"], ShouldBeTrue)
			})
		})
	})
}

func TestRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording cache outcomes", func() {
			before := testutil.ToFloat64(globalManager.cacheHits)
			RecordCacheHit()
			So(testutil.ToFloat64(globalManager.cacheHits), ShouldEqual, before+1)
		})

		Convey("When recording skipped matches by reason", func() {
			RecordMatchSkipped("same_team")
			So(testutil.ToFloat64(globalManager.matchesSkipped.WithLabelValues("same_team")), ShouldBeGreaterThanOrEqualTo, 1)
		})

		Convey("When setting gauges", func() {
			UpdateRegionOffset("LCK", 12.5)
			UpdateValidationAccuracy(2, 0.64)
			UpdateTrackedTeams(42)
			So(testutil.ToFloat64(globalManager.regionOffset.WithLabelValues("LCK")), ShouldEqual, 12.5)
			So(testutil.ToFloat64(globalManager.validationAccuracy.WithLabelValues("2")), ShouldEqual, 0.64)
			So(testutil.ToFloat64(globalManager.trackedTeams), ShouldEqual, 42)
		})

		Convey("When recording everything else", func() {
			So(func() {
				RecordMatchProcessed()
				RecordPipelineRun("base", 12)
				RecordCacheMiss()
				RecordCacheError()
				RecordStoreLatency("lookup", 1)
				AddWorkerActive(1)
				AddWorkerActive(-1)
				UpdateQueueLength(3)
				RecordHTTPRequest("ratings", "GET", "200")
				RecordHTTPRequestDuration("ratings", "GET", "200", 4)
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(7)
			}, ShouldNotPanic)
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}

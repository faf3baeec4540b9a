package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a private registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When a manager is created with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10}),
				WithPrometheusRegistry(registry),
			)
			m.revision.Set(4)

			Convey("Then collectors are registered under the namespace", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_unit_revision")
				So(m.histogramBuckets, ShouldResemble, []float64{1, 10})
			})
		})

		Convey("When the buckets are not strictly increasing", func() {
			m := NewManager(
				WithNamespace("unsorted"),
				WithHistogramBuckets([]float64{10, 1}),
				WithPrometheusRegistry(registry),
			)
			dup := NewManager(
				WithNamespace("dup"),
				WithHistogramBuckets([]float64{1, 1, 2}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the defaults are kept", func() {
				So(m.histogramBuckets, ShouldResemble, NewManager(WithPrometheusRegistry(prometheus.NewRegistry())).histogramBuckets)
				So(dup.histogramBuckets, ShouldHaveLength, 12)
			})
		})

		Convey("When the same registry is used twice", func() {
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then the second registration panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestRecording(t *testing.T) {
	Convey("Given the global collectors", t, func() {
		m := globalManager

		Convey("When edits are recorded", func() {
			before := testutil.ToFloat64(m.editsApplied.WithLabelValues("ranking", "set"))
			RecordEditApplied("ranking", "set")
			RecordEditApplied("ranking", "set")
			RecordEditRejected("unknown_key")
			RecordEditDuplicate()

			Convey("Then the counters move", func() {
				So(testutil.ToFloat64(m.editsApplied.WithLabelValues("ranking", "set")), ShouldEqual, before+2)
				So(testutil.ToFloat64(m.editsRejected.WithLabelValues("unknown_key")), ShouldBeGreaterThanOrEqualTo, 1)
				So(testutil.ToFloat64(m.editsDuplicate), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When the lab state changes", func() {
			UpdateRevision(12)
			UpdateSummary(3, 2, 4, 1)
			UpdateVectorModified("prediction", true)
			UpdateVectorModified("ranking", false)
			UpdateDatasetSize(32, 16)
			RecordRecompute(0.3)

			Convey("Then the gauges reflect it", func() {
				So(testutil.ToFloat64(m.revision), ShouldEqual, 12.0)
				So(testutil.ToFloat64(m.movedEntities.WithLabelValues("up")), ShouldEqual, 3.0)
				So(testutil.ToFloat64(m.movedEntities.WithLabelValues("down")), ShouldEqual, 2.0)
				So(testutil.ToFloat64(m.maxShift), ShouldEqual, 4.0)
				So(testutil.ToFloat64(m.flippedWinners), ShouldEqual, 1.0)
				So(testutil.ToFloat64(m.modifiedVectors.WithLabelValues("prediction")), ShouldEqual, 1.0)
				So(testutil.ToFloat64(m.modifiedVectors.WithLabelValues("ranking")), ShouldEqual, 0.0)
				So(testutil.ToFloat64(m.datasetEntities), ShouldEqual, 32.0)
				So(testutil.ToFloat64(m.recomputeTotal), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When queue and HTTP activity is recorded", func() {
			UpdateQueueCapacity(64)
			UpdateQueueSize(5)
			RecordQueueEnqueue()
			RecordQueueDequeue()
			RecordQueueEnqueueError("full")
			RecordQueueWait(1.5)
			RecordHTTPRequest("/lab", "GET", "200")
			RecordHTTPRequestDuration("/lab", "GET", "200", 2)
			RecordErrorByComponent("worker", "apply")
			UpdateSystemMemoryUsage(1024)
			UpdateSystemGoroutineCount(9)

			Convey("Then it is exposed on the custom registry", func() {
				So(testutil.ToFloat64(m.queueCapacity), ShouldEqual, 64.0)
				So(testutil.ToFloat64(m.queueSize), ShouldEqual, 5.0)
				So(testutil.ToFloat64(m.systemGoroutineCount), ShouldEqual, 9.0)

				n, err := testutil.GatherAndCount(GetRegistry(), "modellab_http_requests_total")
				So(err, ShouldBeNil)
				So(n, ShouldBeGreaterThanOrEqualTo, 1)

				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				for _, f := range families {
					So(strings.HasPrefix(f.GetName(), "modellab_"), ShouldBeTrue)
				}
			})
		})
	})
}

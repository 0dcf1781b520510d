package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with default options", func() {
			m := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it uses the reviewdesk namespace", func() {
				So(m.namespace, ShouldEqual, "reviewdesk")
				So(m.subsystem, ShouldEqual, "srer")
				So(m.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})

		Convey("When creating a manager with custom options", func() {
			m := NewManager(
				WithPrometheusRegistry(registry),
				WithNamespace("ns"),
				WithSubsystem("sub"),
				WithMetricPrefix("x_"),
				WithHistogramBuckets([]float64{1, 2}),
				WithRefreshInterval(time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
			)
			m.overridesApplied.Inc()

			Convey("Then names and labels reflect the options", func() {
				So(m.RefreshInterval(), ShouldEqual, time.Second)
				expected := `
# HELP ns_sub_x_overrides_applied_total Human overrides applied
# TYPE ns_sub_x_overrides_applied_total counter
ns_sub_x_overrides_applied_total{env="test"} 1
`
				err := testutil.GatherAndCompare(registry, strings.NewReader(expected), "ns_sub_x_overrides_applied_total")
				So(err, ShouldBeNil)
			})
		})

		Convey("When empty options are passed", func() {
			m := NewManager(
				WithPrometheusRegistry(registry),
				WithNamespace(""),
				WithHistogramBuckets(nil),
				WithRefreshInterval(0),
			)

			Convey("Then defaults are kept", func() {
				So(m.namespace, ShouldEqual, "reviewdesk")
				So(m.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
				So(m.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestConfigure(t *testing.T) {
	Convey("Given the global manager rebuilt with options", t, func() {
		previous := GetRegistry()
		Configure(
			WithNamespace("acme"),
			WithSubsystem("desk"),
			WithRefreshInterval(time.Minute),
			WithCustomLabels(map[string]string{"env": "test"}),
		)
		defer Configure()

		RecordOverride()

		Convey("Then recordings land in the new registry", func() {
			So(GetRegistry(), ShouldNotEqual, previous)
			So(RefreshInterval(), ShouldEqual, time.Minute)
			expected := `
# HELP acme_desk_overrides_applied_total Human overrides applied
# TYPE acme_desk_overrides_applied_total counter
acme_desk_overrides_applied_total{env="test"} 1
`
			So(testutil.GatherAndCompare(GetRegistry(), strings.NewReader(expected), "acme_desk_overrides_applied_total"), ShouldBeNil)
		})
	})
}

func TestGlobalRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("Parse outcomes are counted by strategy", func() {
			before := testutil.ToFloat64(globalManager.repliesParsed.WithLabelValues("fallback"))
			RecordReplyParsed("fallback")
			So(testutil.ToFloat64(globalManager.repliesParsed.WithLabelValues("fallback")), ShouldEqual, before+1)
		})

		Convey("Validation failures count each field code", func() {
			before := testutil.ToFloat64(globalManager.fieldErrors.WithLabelValues("evaluation", "missing"))
			RecordValidationFailure("evaluation", "missing", "missing", "out_of_range")
			So(testutil.ToFloat64(globalManager.fieldErrors.WithLabelValues("evaluation", "missing")), ShouldEqual, before+2)
		})

		Convey("Store gauges are set", func() {
			UpdateStoredSubmissions(5, 3)
			So(testutil.ToFloat64(globalManager.storedSubmissions), ShouldEqual, 5)
			So(testutil.ToFloat64(globalManager.recordedSubmissions), ShouldEqual, 3)
		})

		Convey("Queue and worker gauges are set", func() {
			UpdateQueueSize(7)
			UpdateQueueCapacity(10)
			UpdateQueueUtilization(0.7)
			UpdateWorkerCount(4)
			UpdateWorkerActiveCount(2)
			So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 7)
			So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 10)
			So(testutil.ToFloat64(globalManager.workerActive), ShouldEqual, 2)
		})

		Convey("Recording functions never panic", func() {
			So(func() {
				RecordLowConfidence("evaluation")
				RecordExtraction("evaluation", "success", 3*time.Millisecond)
				RecordSubmissionRegistered()
				RecordSubmissionRemoved()
				RecordDuplicateSource()
				RecordOverride()
				RecordStoreLatency("set_record", time.Millisecond)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordQueueWait(time.Millisecond)
				RecordWorkerProcessingLatency(time.Millisecond)
				RecordWorkerError()
				RecordBatch(3, time.Second)
				RecordAnalyzerError()
				RecordHTTPRequest("/submissions", "GET", "200", time.Millisecond)
				RecordErrorByComponent("worker", "timeout")
				RecordErrorByEndpoint("/export", "GET", "bad_request")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)
		})

		Convey("The custom registry exposes our collectors", func() {
			RecordOverride()
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			var found bool
			for _, f := range families {
				if f.GetName() == "reviewdesk_srer_overrides_applied_total" {
					found = true
				}
			}
			So(found, ShouldBeTrue)
			So(RefreshInterval(), ShouldEqual, defaultRefreshInterval)
		})
	})
}

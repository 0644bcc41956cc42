package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a manager on its own registry", t, func() {
		registry := prometheus.NewRegistry()
		m := NewManager(
			WithNamespace("test"),
			WithSubsystem("unit"),
			WithHistogramBuckets([]float64{1, 10}),
			WithPrometheusRegistry(registry),
		)

		Convey("When recording through the manager's collectors", func() {
			m.framesAnalyzed.WithLabelValues("ensemble").Inc()
			m.cacheRequests.WithLabelValues("analysis", "hit").Add(2)

			Convey("Then values land on that registry under the configured names", func() {
				So(testutil.ToFloat64(m.framesAnalyzed.WithLabelValues("ensemble")), ShouldEqual, 1)
				So(testutil.ToFloat64(m.cacheRequests.WithLabelValues("analysis", "hit")), ShouldEqual, 2)
				n, err := testutil.GatherAndCount(registry, "test_unit_frames_analyzed_total")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global recorders", t, func() {
		Convey("Then they update the custom registry", func() {
			before := testutil.ToFloat64(globalManager.framesAnalyzed.WithLabelValues("fallback"))
			RecordFrameAnalyzed("fallback")
			So(testutil.ToFloat64(globalManager.framesAnalyzed.WithLabelValues("fallback")), ShouldEqual, before+1)

			RecordCacheLookup("analysis", false)
			So(testutil.ToFloat64(globalManager.cacheRequests.WithLabelValues("analysis", "miss")), ShouldBeGreaterThanOrEqualTo, 1)

			RecordFusion(0.5, true)
			So(testutil.ToFloat64(globalManager.fusionDegraded), ShouldBeGreaterThanOrEqualTo, 1)

			UpdateQueueSize(7)
			So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 7)
		})

		Convey("Then none of the remaining recorders panic", func() {
			So(func() {
				RecordFrameDuplicate()
				RecordFrameRejected("invalid")
				RecordAnalysisLatency(3)
				RecordCognitiveState("optimal")
				RecordRiskFactor("fatigue")
				RecordRecommendations(3)
				UpdateTrackedSubjects(2)
				RecordModelRequest("fer", "ok", 12)
				RecordContentRequest("openai")
				RecordCacheEviction("analysis")
				UpdateCacheEntries("analysis", 4)
				RecordWorkflowRun("completed")
				UpdateWorkflowActive(1)
				RecordWorkflowStep("state-analysis", "completed", 2)
				RecordHTTPRequest("/v1/analyze", "POST", "200")
				RecordHTTPRequestDuration("/v1/analyze", "POST", "200", 0.01)
				UpdateQueueCapacity(10)
				UpdateQueueUtilization(0.7)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordQueueProcessingLatency(1)
				UpdateWorkerCount(4)
				UpdateWorkerActiveCount(2)
				UpdateWorkerIdleCount(2)
				UpdateWorkerMessagesPerSecond(10)
				RecordWorkerProcessingLatency(1)
				RecordWorkerError()
				RecordErrorByComponent("worker", "panic")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(10)
				RecordSystemGCPauseTime(1)
			}, ShouldNotPanic)
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}

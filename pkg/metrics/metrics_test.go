package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry and custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("scan"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithCustomLabels(map[string]string{"detector": "mvtx"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then its collectors should be registered under the namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.eventsScanned.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_scan_events_scanned_total")
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording scan outcomes", func() {
			before := testutil.ToFloat64(globalManager.eventsScanned)
			RecordEventScanned()
			RecordEventScanned()

			failedBefore := testutil.ToFloat64(globalManager.eventsFailed.WithLabelValues("degenerate_scan"))
			RecordEventFailed("degenerate_scan")

			Convey("Then the counters should advance", func() {
				So(testutil.ToFloat64(globalManager.eventsScanned), ShouldEqual, before+2)
				So(testutil.ToFloat64(globalManager.eventsFailed.WithLabelValues("degenerate_scan")), ShouldEqual, failedBefore+1)
			})
		})

		Convey("When updating gauges", func() {
			UpdateQueueCapacity(64)
			UpdateQueueSize(3)
			UpdateGridBins(16865)

			Convey("Then they should hold the latest value", func() {
				So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 64)
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.gridBins), ShouldEqual, 16865)
			})
		})

		Convey("When observing histograms", func() {
			So(func() {
				RecordScanLatency(12.5)
				RecordHitsPerEvent(631)
				RecordPeakScore(40)
				RecordTier("loose")
				RecordRowRead()
				RecordRowMalformed()
				RecordEventRead()
				RecordEventSkipped()
				RecordEventIDReused()
				RecordResultWritten()
				RecordPlotWritten()
				RecordHTTPRequest("healthz", "GET", "200", 0.4)
			}, ShouldNotPanic)
		})
	})
}

func TestHandler(t *testing.T) {
	Convey("Given the metrics handler", t, func() {
		RecordEventRead()
		srv := httptest.NewServer(Handler())
		defer srv.Close()

		Convey("When scraping it", func() {
			resp, err := srv.Client().Get(srv.URL)
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			So(err, ShouldBeNil)

			Convey("Then it should expose the zfinder collectors", func() {
				So(strings.Contains(string(body), "zfinder_zscan_events_read_total"), ShouldBeTrue)
			})
		})
	})
}

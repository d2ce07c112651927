package metrics

import (
	"errors"
	"net/http/httptest"
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
			manager := NewManager()

			Convey("Then it should own a private registry", func() {
				So(manager, ShouldNotBeNil)
				So(manager.Registry(), ShouldNotBeNil)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("cache"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then it should register on the given registry", func() {
				So(manager.Registry(), ShouldEqual, registry)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given a metrics manager", t, func() {
		manager := NewManager()

		Convey("When recording cache loads", func() {
			manager.ObserveCacheLoad(10*time.Millisecond, nil)
			manager.ObserveCacheLoad(20*time.Millisecond, errors.New("offline"))
			manager.SetCacheSizes(3, 2)

			Convey("Then counters and gauges reflect them", func() {
				So(testutil.ToFloat64(manager.cacheLoads.WithLabelValues(ResultOK)), ShouldEqual, 1)
				So(testutil.ToFloat64(manager.cacheLoads.WithLabelValues(ResultError)), ShouldEqual, 1)
				So(testutil.ToFloat64(manager.listingsCached), ShouldEqual, 3)
				So(testutil.ToFloat64(manager.providersCached), ShouldEqual, 2)
			})
		})

		Convey("When recording optimistic writes and feed events", func() {
			manager.IncOptimisticWrite("create_listing")
			manager.IncRollback("create_listing")
			manager.IncRemoteFailure("insert")
			manager.IncFeedEvent("projects", "INSERT")

			Convey("Then the handler exposes them", func() {
				rec := httptest.NewRecorder()
				manager.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
				body := rec.Body.String()
				So(strings.Contains(body, "lanceo_sync_optimistic_rollbacks_total"), ShouldBeTrue)
				So(strings.Contains(body, `lanceo_sync_feed_events_total{op="INSERT",table="projects"} 1`), ShouldBeTrue)
			})
		})
	})
}

func TestNilManagerIsSafe(t *testing.T) {
	var m *Manager
	m.ObserveCacheLoad(time.Second, nil)
	m.SetCacheSizes(1, 1)
	m.IncOptimisticWrite("x")
	m.IncRollback("x")
	m.IncRemoteFailure("x")
	m.IncFeedEvent("t", "o")
	m.IncSessionTransition("demo")
	m.IncHTTPRequest("/", "200")
	if m.Registry() != nil {
		t.Fatal("nil manager should not expose a registry")
	}
}

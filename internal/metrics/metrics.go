package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EventsRecorded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "hogwarts", Name: "point_events_total", Help: "Point events written to the ledger",
	})
	EventsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hogwarts", Name: "point_events_rejected_total", Help: "Rejected award attempts",
	}, []string{"reason"})
	QueryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hogwarts", Name: "report_query_seconds", Help: "Aggregation query latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})
	CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "hogwarts", Name: "cache_hits_total", Help: "Read cache hits",
	})
	CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "hogwarts", Name: "cache_misses_total", Help: "Read cache misses",
	})
	FraternityPoints = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "hogwarts", Name: "fraternity_points", Help: "Current fraternity totals",
	}, []string{"school", "fraternity"})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "hogwarts", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(EventsRecorded, EventsRejected, QueryDuration, CacheHits, CacheMisses, FraternityPoints, DBPing)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }

func ObserveQuery(query string, d time.Duration) {
	QueryDuration.WithLabelValues(query).Observe(d.Seconds())
}

func RejectEvent(reason string) { EventsRejected.WithLabelValues(reason).Inc() }

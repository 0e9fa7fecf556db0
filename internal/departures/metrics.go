package departures

import "github.com/prometheus/client_golang/prometheus"

// Feed request outcomes. Stop IDs come from callers and stay out of labels.
const (
	resultDownloaded = "downloaded"
	resultCached     = "cached"
	resultError      = "error"
)

var (
	feedRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vilniusbus_feed_requests_total",
		Help: "Departures feed requests by result (downloaded, cached, error)",
	}, []string{"result"})
	fetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "vilniusbus_feed_fetch_seconds",
		Help:    "Time spent downloading a departures feed",
		Buckets: prometheus.DefBuckets,
	})
	skippedLines = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vilniusbus_feed_skipped_lines_total",
		Help: "Feed lines dropped for having too few fields",
	})
)

func init() {
	prometheus.MustRegister(feedRequests, fetchDuration, skippedLines)
}

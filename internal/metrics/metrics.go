package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	Stations         prometheus.Gauge
	Segments         prometheus.Gauge
	Lines            prometheus.Gauge
	TransferStations prometheus.Gauge
	LoadDuration     prometheus.Gauge // seconds

	Queries       *prometheus.CounterVec   // op, outcome: ok|not_found|error
	QueryDuration *prometheus.HistogramVec // op
	PathsReturned prometheus.Histogram

	NATSRequests  *prometheus.CounterVec // subject
	NATSReplyErrs prometheus.Counter
	NATSConnected prometheus.Gauge
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Stations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "subway_stations",
			Help: "Number of stations in the loaded network.",
		}),
		Segments: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "subway_segments",
			Help: "Number of directed segments in the loaded network.",
		}),
		Lines: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "subway_lines",
			Help: "Number of lines in the loaded network.",
		}),
		TransferStations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "subway_transfer_stations",
			Help: "Number of stations served by more than one line.",
		}),
		LoadDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "subway_load_duration_seconds",
			Help: "Time spent loading the network at startup.",
		}),
		Queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subway_queries_total",
			Help: "Queries answered, by operation and outcome.",
		}, []string{"op", "outcome"}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "subway_query_duration_seconds",
			Help:    "Duration of query evaluation.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 12),
		}, []string{"op"}),
		PathsReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "subway_paths_returned",
			Help:    "Number of simple paths returned per path query.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
		NATSRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subway_nats_requests_total",
			Help: "NATS requests received, by subject.",
		}, []string{"subject"}),
		NATSReplyErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "subway_nats_reply_errors_total",
			Help: "Total NATS replies that could not be sent.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "subway_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
	}

	reg.MustRegister(
		c.Stations, c.Segments, c.Lines, c.TransferStations, c.LoadDuration,
		c.Queries, c.QueryDuration, c.PathsReturned,
		c.NATSRequests, c.NATSReplyErrs, c.NATSConnected,
	)
	return c
}

// SetNetwork records the size of the loaded network.
func (c *Collector) SetNetwork(stations, segments, lines, transfers int, took time.Duration) {
	c.Stations.Set(float64(stations))
	c.Segments.Set(float64(segments))
	c.Lines.Set(float64(lines))
	c.TransferStations.Set(float64(transfers))
	c.LoadDuration.Set(took.Seconds())
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()
	logger.Info("metrics listening", "addr", addr)
	return srv
}

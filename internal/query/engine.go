package query

import (
	"errors"
	"log/slog"
	"sort"
	"time"

	"subway-map/internal/subway"
)

const (
	OpTransfers = "transfers"
	OpNearby    = "nearby"
	OpPaths     = "paths"
)

// Metrics receives one observation per answered query.
type Metrics interface {
	QueryObserve(op string, d time.Duration, err error)
	PathsObserve(n int)
}

// Neighbor is a station one hop away and the length of the hop.
type Neighbor struct {
	Name       string
	DistanceKm float64
}

// Engine answers the read-only queries against a loaded network. It holds
// no mutable state and may be shared between transports.
type Engine struct {
	net     *subway.Network
	logger  *slog.Logger
	metrics Metrics
}

func NewEngine(net *subway.Network, logger *slog.Logger, m Metrics) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{net: net, logger: logger, metrics: m}
}

func (e *Engine) Network() *subway.Network { return e.net }

// Transfers lists the stations served by more than one line, by name.
func (e *Engine) Transfers() []subway.Station {
	start := time.Now()
	out := e.net.TransferStations()
	e.observe(OpTransfers, start, nil)
	return out
}

// Nearby lists the direct neighbours of station within maxKm, closest first.
func (e *Engine) Nearby(station string, maxKm float64) ([]Neighbor, error) {
	start := time.Now()
	found, err := e.net.Nearby(station, maxKm)
	e.observe(OpNearby, start, err)
	if err != nil {
		return nil, err
	}

	out := make([]Neighbor, 0, len(found))
	for name, d := range found {
		out = append(out, Neighbor{Name: name, DistanceKm: d})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DistanceKm != out[j].DistanceKm {
			return out[i].DistanceKm < out[j].DistanceKm
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Paths lists every simple path between two stations.
func (e *Engine) Paths(from, to string) ([][]string, error) {
	start := time.Now()
	paths, err := e.net.AllPaths(from, to)
	e.observe(OpPaths, start, err)
	if err != nil {
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.PathsObserve(len(paths))
	}
	e.logger.Debug("paths enumerated", "from", from, "to", to, "count", len(paths))
	return paths, nil
}

func (e *Engine) observe(op string, start time.Time, err error) {
	took := time.Since(start)
	if e.metrics != nil {
		e.metrics.QueryObserve(op, took, err)
	}
	if err != nil && !errors.Is(err, subway.ErrStationNotFound) {
		e.logger.Error("query failed", "op", op, "error", err)
	}
}

// Outcome classifies a query error for metrics labels.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, subway.ErrStationNotFound):
		return "not_found"
	default:
		return "error"
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"subway-map/internal/config"
	"subway-map/internal/db"
	"subway-map/internal/graphdb"
	"subway-map/internal/logging"
	"subway-map/internal/metrics"
	"subway-map/internal/natsapi"
	"subway-map/internal/query"
	"subway-map/internal/server"
	"subway-map/internal/subway"
)

func main() {
	var (
		dataFile    = flag.String("data", "", "Path to the distance table (overrides SUBWAY_DATA_FILE)")
		interactive = flag.Bool("menu", false, "Run the interactive menu even when HTTP or NATS is enabled")
		exportGraph = flag.Bool("export-graph", false, "Mirror the network into the graph database at GRAPH_URI and exit")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if *dataFile != "" {
		cfg.DataFile = *dataFile
		cfg.Source = config.SourceFile
	}
	logger := logging.New(cfg.Logging, os.Stderr)

	// Root context with cancellation on SIGINT/SIGTERM
	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	mcol := metrics.NewCollector()

	start := time.Now()
	net, err := loadNetwork(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("load network: %v", err)
	}
	took := time.Since(start)
	transfers := len(net.TransferStations())
	mcol.SetNetwork(net.StationCount(), net.SegmentCount(), len(net.Lines()), transfers, took)
	logger.Info("network loaded",
		"stations", net.StationCount(),
		"segments", net.SegmentCount(),
		"lines", len(net.Lines()),
		"transfers", transfers,
		"fingerprint", net.Fingerprint(),
		"took", took,
	)

	if *exportGraph || cfg.Graph.URI != "" {
		if err := mirrorGraph(ctx, cfg.Graph, net, logger); err != nil {
			log.Fatalf("export graph: %v", err)
		}
		if *exportGraph {
			return
		}
	}

	engine := query.NewEngine(net, logger, queryMetrics{c: mcol})
	g, gctx := errgroup.WithContext(ctx)

	if cfg.MetricsAddr != "" {
		srv := mcol.Serve(cfg.MetricsAddr, logger)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if cfg.HTTPAddr != "" {
		router := server.NewRouter(logger, server.NewAPIHandlers(logger, engine), mcol.Handler())
		srv := server.New(logger, cfg.HTTPAddr, router)
		g.Go(srv.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if cfg.NATSURL != "" {
		nm := natsMetrics{c: mcol}
		nc, err := natsapi.Connect(cfg.NATSURL, nm, logger)
		if err != nil {
			log.Fatalf("nats error: %v", err)
		}
		responder := natsapi.NewResponder(nc, engine, cfg.NATSSubjectPrefix, cfg.LogNATSSubjects, nm, logger)
		if err := responder.Start(); err != nil {
			nc.Close()
			log.Fatalf("nats responder: %v", err)
		}
		if err := responder.Announce(query.Summarize(net)); err != nil {
			logger.Warn("network announcement failed", "error", err)
		}
		g.Go(func() error {
			<-gctx.Done()
			responder.Close()
			return nc.Drain()
		})
	}

	if *interactive || (cfg.HTTPAddr == "" && cfg.NATSURL == "") {
		g.Go(func() error {
			// Leaving the menu shuts every other surface down too.
			defer cancel()
			return runMenu(gctx, os.Stdin, os.Stdout, engine)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("shutdown with error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func loadNetwork(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*subway.Network, error) {
	if cfg.Source != config.SourcePostgres {
		logger.Info("loading network", "file", cfg.DataFile)
		return subway.LoadFile(cfg.DataFile)
	}

	dsn := cfg.DatabaseURL
	if cfg.Network != "" {
		name, err := resolveNetworkDB(ctx, dsn, cfg.Network)
		if err != nil {
			return nil, err
		}
		if dsn, err = db.WithDBName(dsn, name); err != nil {
			return nil, fmt.Errorf("compose DSN: %w", err)
		}
		logger.Info("using network database", "database", name, "network", cfg.Network)
	}

	conn, err := db.Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	defer conn.Close()
	if err := db.Ping(ctx, conn); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db.LoadNetwork(ctx, conn)
}

// resolveNetworkDB looks network up in the catalogue kept in the cluster's
// 'postgres' database.
func resolveNetworkDB(ctx context.Context, baseDSN, network string) (string, error) {
	rootDSN, err := db.WithDBName(baseDSN, "postgres")
	if err != nil {
		return "", fmt.Errorf("invalid base DSN: %w", err)
	}
	meta, err := db.Open(rootDSN)
	if err != nil {
		return "", fmt.Errorf("db open (meta): %w", err)
	}
	defer meta.Close()
	if err := db.Ping(ctx, meta); err != nil {
		return "", fmt.Errorf("db ping (meta): %w", err)
	}
	return db.LookupNetworkDB(ctx, meta, network)
}

func mirrorGraph(ctx context.Context, gc config.GraphConfig, net *subway.Network, logger *slog.Logger) error {
	client, err := graphdb.NewNeo4jClient(ctx, graphdb.Options{
		URI:      gc.URI,
		Database: gc.Database,
		Username: gc.Username,
		Password: gc.Password,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(context.Background()); err != nil {
			logger.Warn("closing graph client failed", "error", err)
		}
	}()

	exp := graphdb.NewExporter(client, logger)
	if err := exp.Export(ctx, net); err != nil {
		return err
	}
	return exp.Verify(ctx, net)
}

// queryMetrics adapts the Collector to query.Metrics.
type queryMetrics struct{ c *metrics.Collector }

func (q queryMetrics) QueryObserve(op string, d time.Duration, err error) {
	q.c.Queries.WithLabelValues(op, query.Outcome(err)).Inc()
	q.c.QueryDuration.WithLabelValues(op).Observe(d.Seconds())
}
func (q queryMetrics) PathsObserve(n int) { q.c.PathsReturned.Observe(float64(n)) }

// natsMetrics adapts the Collector to natsapi.Metrics.
type natsMetrics struct{ c *metrics.Collector }

func (n natsMetrics) NATSRequestInc(subject string) { n.c.NATSRequests.WithLabelValues(subject).Inc() }
func (n natsMetrics) NATSReplyErrInc()              { n.c.NATSReplyErrs.Inc() }
func (n natsMetrics) NATSSetConnected(b bool) {
	if b {
		n.c.NATSConnected.Set(1)
	} else {
		n.c.NATSConnected.Set(0)
	}
}

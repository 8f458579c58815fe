package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

type Config struct {
	DataFile string
	Source   string

	// Postgres source; only required when Source is SourcePostgres.
	DatabaseURL string
	Network     string

	HTTPAddr        string
	ShutdownTimeout time.Duration
	MetricsAddr     string

	NATSURL           string
	NATSSubjectPrefix string
	LogNATSSubjects   bool

	Graph   GraphConfig
	Logging LoggingConfig
}

// GraphConfig points at an optional Neo4j instance the network is mirrored to.
type GraphConfig struct {
	URI      string
	Database string
	Username string
	Password string
}

type LoggingConfig struct {
	Level  string
	Format string // text|json
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{
		DataFile:          getenvDefault("SUBWAY_DATA_FILE", "subway.txt"),
		Source:            strings.ToLower(getenvDefault("SUBWAY_SOURCE", SourceFile)),
		Network:           strings.TrimSpace(os.Getenv("SUBWAY_NETWORK")),
		HTTPAddr:          os.Getenv("HTTP_ADDR"),
		MetricsAddr:       os.Getenv("METRICS_ADDR"),
		NATSURL:           os.Getenv("NATS_URL"),
		NATSSubjectPrefix: getenvDefault("NATS_SUBJECT_PREFIX", "subway"),
		LogNATSSubjects:   parseBool(os.Getenv("LOG_NATS_SUBJECTS")),
		Graph: GraphConfig{
			URI:      os.Getenv("GRAPH_URI"),
			Database: os.Getenv("GRAPH_DATABASE"),
			Username: os.Getenv("GRAPH_USERNAME"),
			Password: os.Getenv("GRAPH_PASSWORD"),
		},
		Logging: LoggingConfig{
			Level:  getenvDefault("LOG_LEVEL", "info"),
			Format: getenvDefault("LOG_FORMAT", "text"),
		},
	}

	switch cfg.Source {
	case SourceFile:
		if strings.TrimSpace(cfg.DataFile) == "" {
			return nil, errors.New("SUBWAY_DATA_FILE must not be empty")
		}
	case SourcePostgres:
		dsn, err := databaseURL(cfg.Network)
		if err != nil {
			return nil, err
		}
		cfg.DatabaseURL = dsn
	default:
		return nil, fmt.Errorf("invalid SUBWAY_SOURCE: %q (want %s or %s)", cfg.Source, SourceFile, SourcePostgres)
	}

	cfg.ShutdownTimeout = 5 * time.Second
	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %q", v)
		}
		cfg.ShutdownTimeout = d
	}

	if strings.TrimSpace(cfg.NATSSubjectPrefix) == "" || strings.ContainsAny(cfg.NATSSubjectPrefix, " *>") {
		return nil, fmt.Errorf("invalid NATS_SUBJECT_PREFIX: %q", cfg.NATSSubjectPrefix)
	}

	return cfg, nil
}

// databaseURL prefers DATABASE_URL / PG_DSN, else assembles a DSN from the
// libpq PG* variables. With a network set and no PGDATABASE it points at the
// 'postgres' database, where the network catalogue lives.
func databaseURL(network string) (string, error) {
	if dsn := firstNonEmpty(os.Getenv("DATABASE_URL"), os.Getenv("PG_DSN")); dsn != "" {
		return dsn, nil
	}

	dbName := os.Getenv("PGDATABASE")
	if dbName == "" && network != "" {
		dbName = "postgres"
	}
	if dbName == "" {
		return "", errors.New("PGDATABASE or DATABASE_URL must be set when SUBWAY_SOURCE=postgres")
	}

	u := &url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(getenvDefault("PGHOST", "127.0.0.1"), getenvDefault("PGPORT", "5432")),
		Path:     "/" + dbName,
		RawQuery: url.Values{"sslmode": {getenvDefault("PGSSLMODE", "disable")}}.Encode(),
	}
	user := getenvDefault("PGUSER", "postgres")
	if pass := os.Getenv("PGPASSWORD"); pass != "" {
		u.User = url.UserPassword(user, pass)
	} else {
		u.User = url.User(user)
	}
	return u.String(), nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"subway-map/internal/subway"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// The network is read once at startup.
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// segmentsQuery reads one row per undirected connection. seq orders the
// rows within a line the way they appear in the published distance table.
const segmentsQuery = `
SELECT line_id::text, from_station, to_station, distance_km::float8
FROM subway_segments
ORDER BY line_id, seq`

// FetchSegmentRecords returns the rows of subway_segments in table order.
func FetchSegmentRecords(ctx context.Context, db *sql.DB) ([]subway.Record, error) {
	rows, err := db.QueryContext(ctx, segmentsQuery)
	if err != nil {
		return nil, fmt.Errorf("query subway_segments: %w", err)
	}
	defer rows.Close()

	var recs []subway.Record
	for rows.Next() {
		var (
			r    subway.Record
			dist sql.NullFloat64
		)
		if err := rows.Scan(&r.Line, &r.From, &r.To, &dist); err != nil {
			return nil, fmt.Errorf("scan subway_segments: %w", err)
		}
		if !dist.Valid {
			return nil, fmt.Errorf("subway_segments %s %s---%s: %w", r.Line, r.From, r.To, subway.ErrInvalidDistance)
		}
		r.Distance = dist.Float64
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// LoadNetwork reads subway_segments and builds the network from it.
func LoadNetwork(ctx context.Context, db *sql.DB) (*subway.Network, error) {
	recs, err := FetchSegmentRecords(ctx, db)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("subway_segments is empty")
	}
	return subway.FromRecords(recs)
}

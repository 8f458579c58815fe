package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrNetworkNotFound is returned when the catalogue has no loaded database
// for a network key.
var ErrNetworkNotFound = errors.New("network not in catalogue")

// catalogQuery picks the newest database loaded for a network. Keys are
// matched exactly, ignoring case; loads that produced no segments are skipped.
const catalogQuery = `
SELECT db_name
FROM public.subway_networks
WHERE lower(network_key) = lower($1)
  AND segment_count > 0
ORDER BY loaded_at DESC
LIMIT 1`

// LookupNetworkDB returns the database holding the most recent non-empty load
// of network, as recorded in public.subway_networks. meta must be connected
// to the database that carries the catalogue.
func LookupNetworkDB(ctx context.Context, meta *sql.DB, network string) (string, error) {
	key := strings.TrimSpace(network)
	if key == "" {
		return "", errors.New("network key is required")
	}

	var name sql.NullString
	err := meta.QueryRowContext(ctx, catalogQuery, key).Scan(&name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", fmt.Errorf("%w: %q", ErrNetworkNotFound, key)
	case err != nil:
		return "", fmt.Errorf("query network catalogue: %w", err)
	}

	dbName := strings.TrimSpace(name.String)
	if dbName == "" {
		return "", fmt.Errorf("catalogue entry for %q has no db_name", key)
	}
	return dbName, nil
}

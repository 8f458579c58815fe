package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"subway-map/internal/subway"
)

// cannedDriver answers every query with the rows registered for its DSN.
type cannedDriver struct{}

var (
	cannedMu   sync.Mutex
	cannedRows = map[string][][]driver.Value{}
)

func init() { sql.Register("canned", cannedDriver{}) }

func (cannedDriver) Open(dsn string) (driver.Conn, error) { return &cannedConn{dsn: dsn}, nil }

type cannedConn struct{ dsn string }

func (c *cannedConn) Prepare(query string) (driver.Stmt, error) { return &cannedStmt{dsn: c.dsn}, nil }
func (c *cannedConn) Close() error                              { return nil }
func (c *cannedConn) Begin() (driver.Tx, error)                 { return nil, errors.New("not supported") }

type cannedStmt struct{ dsn string }

func (s *cannedStmt) Close() error                               { return nil }
func (s *cannedStmt) NumInput() int                              { return -1 }
func (s *cannedStmt) Exec([]driver.Value) (driver.Result, error) { return nil, errors.New("not supported") }
func (s *cannedStmt) Query([]driver.Value) (driver.Rows, error) {
	cannedMu.Lock()
	defer cannedMu.Unlock()
	return &cannedResult{rows: cannedRows[s.dsn]}, nil
}

type cannedResult struct {
	rows [][]driver.Value
	pos  int
}

func (r *cannedResult) Columns() []string {
	if len(r.rows) == 0 {
		return []string{"line_id", "from_station", "to_station", "distance_km"}
	}
	cols := make([]string, len(r.rows[0]))
	for i := range cols {
		cols[i] = fmt.Sprintf("col%d", i)
	}
	return cols
}
func (r *cannedResult) Close() error { return nil }
func (r *cannedResult) Next(dest []driver.Value) error {
	if r.pos >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.pos])
	r.pos++
	return nil
}

func openCanned(t *testing.T, rows [][]driver.Value) *sql.DB {
	t.Helper()
	cannedMu.Lock()
	cannedRows[t.Name()] = rows
	cannedMu.Unlock()
	conn, err := sql.Open("canned", t.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestLoadNetwork(t *testing.T) {
	conn := openCanned(t, [][]driver.Value{
		{"1", "车站A", "车站B", 2.5},
		{"1", "车站B", "车站C", 1.0},
		{"2", "车站B", "车站D", 0.8},
	})
	net, err := LoadNetwork(context.Background(), conn)
	if err != nil {
		t.Fatalf("LoadNetwork: %v", err)
	}
	if net.StationCount() != 4 || net.SegmentCount() != 6 {
		t.Fatalf("unexpected size: %d stations, %d segments", net.StationCount(), net.SegmentCount())
	}
	transfers := net.TransferStations()
	if len(transfers) != 1 || transfers[0].Name != "车站B" {
		t.Fatalf("expected 车站B as the transfer station, got %v", transfers)
	}
}

func TestLoadNetworkEmpty(t *testing.T) {
	conn := openCanned(t, nil)
	if _, err := LoadNetwork(context.Background(), conn); err == nil || !strings.Contains(err.Error(), "empty") {
		t.Fatalf("expected empty table error, got %v", err)
	}
}

func TestFetchSegmentRecordsNullDistance(t *testing.T) {
	conn := openCanned(t, [][]driver.Value{{"1", "甲", "乙", nil}})
	_, err := FetchSegmentRecords(context.Background(), conn)
	if !errors.Is(err, subway.ErrInvalidDistance) {
		t.Fatalf("expected ErrInvalidDistance, got %v", err)
	}
}

func TestLoadNetworkRejectsNegativeDistance(t *testing.T) {
	conn := openCanned(t, [][]driver.Value{{"1", "甲", "乙", -3.0}})
	_, err := LoadNetwork(context.Background(), conn)
	var le *subway.LoadError
	if !errors.As(err, &le) || !errors.Is(err, subway.ErrInvalidDistance) {
		t.Fatalf("expected LoadError wrapping ErrInvalidDistance, got %v", err)
	}
}

func TestLookupNetworkDB(t *testing.T) {
	meta := openCanned(t, [][]driver.Value{{"subway_wuhan_20260901"}})
	got, err := LookupNetworkDB(context.Background(), meta, " Wuhan ")
	if err != nil {
		t.Fatalf("LookupNetworkDB: %v", err)
	}
	if got != "subway_wuhan_20260901" {
		t.Fatalf("unexpected database %q", got)
	}
}

func TestLookupNetworkDBNotFound(t *testing.T) {
	meta := openCanned(t, nil)
	if _, err := LookupNetworkDB(context.Background(), meta, "wuhan"); !errors.Is(err, ErrNetworkNotFound) {
		t.Fatalf("expected ErrNetworkNotFound, got %v", err)
	}
}

func TestLookupNetworkDBNullName(t *testing.T) {
	meta := openCanned(t, [][]driver.Value{{nil}})
	_, err := LookupNetworkDB(context.Background(), meta, "wuhan")
	if err == nil || errors.Is(err, ErrNetworkNotFound) || !strings.Contains(err.Error(), "no db_name") {
		t.Fatalf("expected missing db_name error, got %v", err)
	}
}

func TestLookupNetworkDBRequiresKey(t *testing.T) {
	meta := openCanned(t, nil)
	if _, err := LookupNetworkDB(context.Background(), meta, "  "); err == nil {
		t.Fatal("expected error for blank key")
	}
}

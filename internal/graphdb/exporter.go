package graphdb

import (
	"context"
	"fmt"
	"log/slog"

	"subway-map/internal/subway"
)

const (
	clearCypher = `MATCH (n:Station) DETACH DELETE n`

	stationsCypher = `
UNWIND $stations AS s
MERGE (n:Station {name: s.name})
SET n.lines = s.lines, n.transfer = s.transfer`

	segmentsCypher = `
UNWIND $segments AS seg
MATCH (a:Station {name: seg.from}), (b:Station {name: seg.to})
MERGE (a)-[r:SEGMENT {line: seg.line}]->(b)
SET r.distanceKm = seg.distanceKm`

	countCypher = `MATCH (n:Station) RETURN count(n) AS stations`
)

const defaultBatchSize = 500

// Exporter mirrors a loaded network into a graph database, replacing any
// stations already there.
type Exporter struct {
	client    Client
	logger    *slog.Logger
	batchSize int
}

func NewExporter(client Client, logger *slog.Logger) *Exporter {
	return &Exporter{client: client, logger: logger, batchSize: defaultBatchSize}
}

// Export clears the stored stations and writes net in batches, all within a
// single write transaction. A failed export leaves the previous mirror intact.
func (e *Exporter) Export(ctx context.Context, net *subway.Network) error {
	stmts := []Statement{{Cypher: clearCypher}}

	stations := net.Stations()
	rows := make([]any, 0, len(stations))
	for _, st := range stations {
		rows = append(rows, map[string]any{
			"name":     st.Name,
			"lines":    st.LineIDs(),
			"transfer": st.IsTransfer(),
		})
	}
	stmts = append(stmts, e.batches(stationsCypher, "stations", rows)...)

	segments := net.Segments()
	rows = make([]any, 0, len(segments))
	for _, s := range segments {
		rows = append(rows, map[string]any{
			"line":       s.Line,
			"from":       s.From,
			"to":         s.To,
			"distanceKm": s.Distance,
		})
	}
	stmts = append(stmts, e.batches(segmentsCypher, "segments", rows)...)

	if err := e.client.ExecuteWriteTx(ctx, stmts); err != nil {
		return fmt.Errorf("export network: %w", err)
	}
	e.logger.Info("network exported to graph database",
		"stations", len(stations), "segments", len(segments), "statements", len(stmts))
	return nil
}

func (e *Exporter) batches(cypher, param string, rows []any) []Statement {
	var out []Statement
	for start := 0; start < len(rows); start += e.batchSize {
		end := min(start+e.batchSize, len(rows))
		out = append(out, Statement{Cypher: cypher, Params: map[string]any{param: rows[start:end]}})
	}
	return out
}

// Verify checks that the graph database holds as many stations as net.
func (e *Exporter) Verify(ctx context.Context, net *subway.Network) error {
	res, err := e.client.ExecuteRead(ctx, countCypher, nil)
	if err != nil {
		return fmt.Errorf("count stations: %w", err)
	}
	if len(res.Records) == 0 {
		return fmt.Errorf("count stations: no result")
	}
	got, ok := res.Records[0]["stations"].(int64)
	if !ok {
		return fmt.Errorf("count stations: unexpected value %T", res.Records[0]["stations"])
	}
	if want := int64(net.StationCount()); got != want {
		return fmt.Errorf("graph database holds %d stations, expected %d", got, want)
	}
	return nil
}
